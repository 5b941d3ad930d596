// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// MigrateOnStart applies the embedded goose migrations before serving.
	MigrateOnStart bool

	// BcryptCost is the work factor for stored credentials.
	BcryptCost int

	Enrichment Enrichment
}

// Enrichment configures the activity metadata gateway client.
type Enrichment struct {
	// URL is the gateway base URL. Empty disables lookups and every
	// attached activity is listed with placeholder details.
	URL string

	// Timeout bounds a single gateway request. Defaults to 5s.
	Timeout time.Duration

	// CacheTTL is how long a resolved activity is served from memory.
	CacheTTL time.Duration

	// CacheSize is the maximum number of cached activities.
	CacheSize int64

	// RPS is the outbound request rate limit. Zero or less disables it.
	RPS float64

	// Concurrency bounds simultaneous lookups while listing one trip.
	Concurrency int
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or
// naming the first variable that cannot be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		Enrichment: Enrichment{
			URL: strings.TrimRight(os.Getenv("ENRICHMENT_URL"), "/"),
		},
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	p := parser{}
	cfg.MaxBodyBytes = p.int64("MAX_BODY_BYTES", 1<<20)
	cfg.MigrateOnStart = p.bool("MIGRATE_ON_START", false)
	cfg.BcryptCost = int(p.int64("BCRYPT_COST", 12))
	cfg.Enrichment.Timeout = p.duration("ENRICHMENT_TIMEOUT", 5*time.Second)
	cfg.Enrichment.CacheTTL = p.duration("ENRICHMENT_CACHE_TTL", 10*time.Minute)
	cfg.Enrichment.CacheSize = p.int64("ENRICHMENT_CACHE_SIZE", 1000)
	cfg.Enrichment.RPS = p.float("ENRICHMENT_RPS", 10)
	cfg.Enrichment.Concurrency = int(p.int64("ENRICHMENT_CONCURRENCY", 4))
	if p.err != nil {
		return Config{}, p.err
	}

	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", cfg.MaxBodyBytes)
	}
	if cfg.Enrichment.CacheSize <= 0 {
		return Config{}, fmt.Errorf("ENRICHMENT_CACHE_SIZE must be positive, got %d", cfg.Enrichment.CacheSize)
	}
	if cfg.Enrichment.Concurrency <= 0 {
		return Config{}, fmt.Errorf("ENRICHMENT_CONCURRENCY must be positive, got %d", cfg.Enrichment.Concurrency)
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser reads typed optional variables and keeps the first parse error.
type parser struct {
	err error
}

func (p *parser) lookup(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (p *parser) fail(key, raw string, err error) {
	p.err = fmt.Errorf("invalid value %q for %s: %w", raw, key, err)
}

func (p *parser) int64(key string, fallback int64) int64 {
	raw, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	raw, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return f
}

func (p *parser) bool(key string, fallback bool) bool {
	raw, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return d
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
