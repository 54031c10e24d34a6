package infra

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Host             string
	Port             string
	LogLevel         string
	DatabaseDriver   string
	DatabaseURL      string
	SQLitePath       string
	DBMaxConns       int32
	DBMinConns       int32
	CommandTimeout   time.Duration
	APIKey           string
	CORSOrigins      []string
	RateLimitPerMin  int
	TrustProxy       bool
	GeoIPDBPath      string
	ExportDir        string
	ExportS3Bucket   string
	ExportS3Region   string
	ExportS3Endpoint string
	ExportS3Prefix   string
	ExportS3KeyID    string
	ExportS3Secret   string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	appEnv := getEnv("APP_ENV", "development")
	defaultLevel := "info"
	if appEnv == "development" {
		defaultLevel = "debug"
	}

	cfg := &Config{
		AppEnv:           appEnv,
		Host:             getEnv("HOST", "0.0.0.0"),
		Port:             getEnv("PORT", "8000"),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLevel)),
		DatabaseDriver:   strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:       getEnv("SQLITE_PATH", "hingecraft.db"),
		DBMaxConns:       int32(getEnvInt("DB_MAX_CONNS", 10)),
		DBMinConns:       int32(getEnvInt("DB_MIN_CONNS", 1)),
		CommandTimeout:   time.Second * time.Duration(getEnvInt("DB_COMMAND_TIMEOUT_SECONDS", 30)),
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		TrustProxy:       getEnvBool("TRUST_PROXY_HEADERS", false),
		GeoIPDBPath:      strings.TrimSpace(os.Getenv("GEOIP_DB_PATH")),
		ExportDir:        getEnv("EXPORT_DIR", "./exports"),
		ExportS3Bucket:   strings.TrimSpace(os.Getenv("EXPORT_S3_BUCKET")),
		ExportS3Region:   getEnv("EXPORT_S3_REGION", "us-east-1"),
		ExportS3Endpoint: strings.TrimSpace(os.Getenv("EXPORT_S3_ENDPOINT")),
		ExportS3Prefix:   getEnv("EXPORT_S3_PREFIX", "exports"),
		ExportS3KeyID:    strings.TrimSpace(os.Getenv("EXPORT_S3_ACCESS_KEY_ID")),
		ExportS3Secret:   strings.TrimSpace(os.Getenv("EXPORT_S3_SECRET_ACCESS_KEY")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.APIKey == "" {
		cfg.APIKey = strings.TrimSpace(os.Getenv("SECRET_KEY"))
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = postgresURLFromParts()
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	if cfg.DBMaxConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS")
	}
	if cfg.CommandTimeout <= 0 {
		return nil, fmt.Errorf("DB_COMMAND_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// postgresURLFromParts assembles a connection string from the discrete DB_*
// variables used by the legacy deployment.
func postgresURLFromParts() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(getEnv("DB_USER", "hingecraft_user"), os.Getenv("DB_PASSWORD")),
		Host:   net.JoinHostPort(getEnv("DB_HOST", "localhost"), getEnv("DB_PORT", "5432")),
		Path:   "/" + getEnv("DB_NAME", "hingecraft_db"),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
