// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage, booking rules, sessions, mail,
// background jobs, rate limiting and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "citas-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
	Environment string  // DEPLOY_ENV, reported as deployment.environment
}

// DBConfig selects the appointment store.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH (sqlite)
	URL    string // DATABASE_URL (postgres)
}

// DSN returns the driver-specific connection string.
func (d DBConfig) DSN() string {
	if d.Driver == "postgres" {
		return d.URL
	}
	return d.Path
}

// BookingConfig holds the public booking rules.
type BookingConfig struct {
	CalendarPath  string         // CALENDAR_PATH, optional YAML calendar
	TimeZone      string         // APP_TIMEZONE
	Location      *time.Location // resolved from TimeZone
	MinLeadDays   int            // BOOKING_MIN_LEAD_DAYS
	MaxAheadDays  int            // BOOKING_MAX_AHEAD_DAYS
	UpcomingDays  int            // UPCOMING_DAYS
	OfficeAddress string         // OFFICE_LOCATION
}

// SessionConfig controls admin sessions.
type SessionConfig struct {
	Secret   string        // SESSION_SECRET
	TTL      time.Duration // SESSION_TTL, sliding
	MaxAge   time.Duration // SESSION_MAX_AGE, absolute token lifetime
	RedisURL string        // REDIS_URL, memory store when empty
}

// MailConfig configures outbound email.
type MailConfig struct {
	SendGridAPIKey         string // SENDGRID_API_KEY, log-only sender when empty
	FromEmail              string // MAIL_FROM_EMAIL
	FromName               string // MAIL_FROM_NAME
	ConfirmationTemplateID string // MAIL_CONFIRMATION_TEMPLATE_ID
	DigestTemplateID       string // MAIL_DIGEST_TEMPLATE_ID
	DigestTo               string // DIGEST_EMAIL
}

// JobsConfig schedules background jobs.
type JobsConfig struct {
	Enabled    bool   // JOBS_ENABLED
	PurgeCron  string // PURGE_CRON
	DigestCron string // DIGEST_CRON
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DB      DBConfig
	Booking BookingConfig
	Session SessionConfig
	Mail    MailConfig
	Jobs    JobsConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "app.db"),
			URL:    getenv("DATABASE_URL", ""),
		},

		// Booking
		Booking: BookingConfig{
			CalendarPath:  getenv("CALENDAR_PATH", ""),
			TimeZone:      getenv("APP_TIMEZONE", "Local"),
			MinLeadDays:   getint("BOOKING_MIN_LEAD_DAYS", 1),
			MaxAheadDays:  getint("BOOKING_MAX_AHEAD_DAYS", 61),
			UpcomingDays:  getint("UPCOMING_DAYS", 30),
			OfficeAddress: getenv("OFFICE_LOCATION", "Oficina del Obispo - Capilla Local"),
		},

		// Sessions
		Session: SessionConfig{
			Secret:   getenv("SESSION_SECRET", ""),
			TTL:      getdur("SESSION_TTL", 24*time.Hour),
			MaxAge:   getdur("SESSION_MAX_AGE", 7*24*time.Hour),
			RedisURL: getenv("REDIS_URL", ""),
		},

		// Mail
		Mail: MailConfig{
			SendGridAPIKey:         getenv("SENDGRID_API_KEY", ""),
			FromEmail:              getenv("MAIL_FROM_EMAIL", "obispado@example.org"),
			FromName:               getenv("MAIL_FROM_NAME", "Obispado SUD"),
			ConfirmationTemplateID: getenv("MAIL_CONFIRMATION_TEMPLATE_ID", ""),
			DigestTemplateID:       getenv("MAIL_DIGEST_TEMPLATE_ID", ""),
			DigestTo:               getenv("DIGEST_EMAIL", ""),
		},

		// Jobs
		Jobs: JobsConfig{
			Enabled:    getbool("JOBS_ENABLED", false),
			PurgeCron:  getenv("PURGE_CRON", "0 3 * * *"),
			DigestCron: getenv("DIGEST_CRON", "0 8 * * 1"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "citas-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
			Environment: getenv("DEPLOY_ENV", ""),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = "postgres"
	}
	cfg.Mail.FromEmail = strings.ToLower(strings.TrimSpace(cfg.Mail.FromEmail))

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}

	loc, err := time.LoadLocation(cfg.Booking.TimeZone)
	if err != nil {
		return cfg, fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	cfg.Booking.Location = loc
	if cfg.Booking.MinLeadDays < 0 {
		return cfg, errors.New("BOOKING_MIN_LEAD_DAYS must be >= 0")
	}
	if cfg.Booking.MaxAheadDays < cfg.Booking.MinLeadDays {
		return cfg, errors.New("BOOKING_MAX_AHEAD_DAYS must be >= BOOKING_MIN_LEAD_DAYS")
	}
	if cfg.Booking.UpcomingDays < 1 || cfg.Booking.UpcomingDays > 366 {
		return cfg, errors.New("UPCOMING_DAYS must be between 1 and 366")
	}

	if cfg.Session.TTL <= 0 || cfg.Session.MaxAge <= 0 {
		return cfg, errors.New("SESSION_TTL and SESSION_MAX_AGE must be positive durations")
	}
	if cfg.GinMode == "release" && len(cfg.Session.Secret) < 32 {
		return cfg, errors.New("SESSION_SECRET must be at least 32 bytes in release mode")
	}

	if cfg.Jobs.Enabled && (strings.TrimSpace(cfg.Jobs.PurgeCron) == "" || strings.TrimSpace(cfg.Jobs.DigestCron) == "") {
		return cfg, errors.New("PURGE_CRON and DIGEST_CRON must not be empty when JOBS_ENABLED")
	}

	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
