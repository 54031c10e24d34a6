package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"hingecraft/internal/http/handlers"
	"hingecraft/internal/middleware"
)

// Options configures the cross-cutting middleware.
type Options struct {
	APIKey          string
	CORSOrigins     []string
	RateLimitPerMin int
	// TrustProxyHeaders mounts chi's RealIP. Leave it off unless a proxy
	// overwrites X-Forwarded-For and X-Real-IP.
	TrustProxyHeaders bool
	MaxBodyBytes      int64
	CountryLookup     middleware.CountryLookup
	Logger            zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		middleware.Logger(opts.Logger, opts.CountryLookup),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.MaxBody(opts.MaxBodyBytes),
	)

	r.Get("/health", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
			middleware.APIKey(opts.APIKey),
		)

		r.Route("/donations", func(r chi.Router) {
			r.Get("/", app.DonationsList)
			r.Post("/", app.DonationsCreate)
			r.Get("/latest", app.DonationsLatest)
			r.Get("/{id}", app.DonationsGet)
			r.Patch("/{id}", app.DonationsUpdate)
		})

		r.Route("/export", func(r chi.Router) {
			r.Get("/json", app.ExportJSON)
			r.Get("/xlsx", app.ExportXLSX)
			r.Get("/bundle", app.ExportBundle)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"route not found"}` + "\n"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":"method_not_allowed","message":"method not allowed"}` + "\n"))
	})

	return r
}
