package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hingecraft/internal/adapter/repo"
	"hingecraft/internal/http/handlers"
	httpapi "hingecraft/internal/http/httpapi"
	"hingecraft/internal/infra"
	"hingecraft/internal/infra/geoip"
	"hingecraft/internal/middleware"
	"hingecraft/internal/service"
)

func main() {
	// optional .env
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx := context.Background()
	store, closeStore, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("failed to open donation store")
	}
	defer closeStore()

	var lookup middleware.CountryLookup
	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	donations := service.NewDonationService(store, logger)
	app := handlers.NewApp(donations, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		APIKey:            cfg.APIKey,
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitPerMin:   cfg.RateLimitPerMin,
		TrustProxyHeaders: cfg.TrustProxy,
		MaxBodyBytes:      middleware.DefaultMaxBodyBytes,
		CountryLookup:     lookup,
		Logger:            logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("env", cfg.AppEnv).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
