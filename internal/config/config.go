package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string
	Timezone string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
	WriteTimeout   time.Duration

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string
	SentryDSN    string
	Environment  string
	Release      string

	// Supabase
	SupabaseURL string
	SupabaseKey string
	UseSupabase bool

	// Owner login
	JWTSecret         string
	OwnerPasswordHash string
	JWTAccessTTL      time.Duration

	// Board notifications
	RedisURL     string
	BoardChannel string

	// Periodic reload from the store, cron syntax. Empty disables it.
	ResyncSchedule string
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "America/Sao_Paulo"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),
		WriteTimeout:   getEnvDuration("WRITE_TIMEOUT", 10*time.Second),

		CacheTTL: getEnvDuration("CACHE_TTL", time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		SentryDSN:    getEnv("SENTRY_DSN", ""),
		Environment:  getEnv("ENVIRONMENT", "development"),
		Release:      getEnv("RELEASE", ""),

		SupabaseURL: strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseKey: getEnv("SUPABASE_KEY", ""),
		UseSupabase: getEnvBool("USE_SUPABASE", true),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		OwnerPasswordHash: getEnv("OWNER_PASSWORD_HASH", ""),
		JWTAccessTTL:      getEnvDuration("JWT_ACCESS_TTL", 12*time.Hour),

		RedisURL:     getEnv("REDIS_URL", ""),
		BoardChannel: getEnv("BOARD_CHANNEL", "crm:board"),

		ResyncSchedule: getEnv("RESYNC_SCHEDULE", "@every 5m"),
	}
}

// MissingStore lists the store settings that are still empty.
func (c *Config) MissingStore() []string {
	var missing []string
	if c.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.SupabaseKey == "" {
		missing = append(missing, "SUPABASE_KEY")
	}
	return missing
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
