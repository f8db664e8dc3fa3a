package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Services
	API    APIConfig
	Ingest IngestConfig
	Source SourceConfig
	Store  StoreConfig
	Cron   CronConfig
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port         int
	RateLimitRPS int
}

// IngestConfig holds ingestion pipeline configuration
type IngestConfig struct {
	// Interval between scheduled cycles (nominal: 5 minutes)
	Interval time.Duration
	// FetchTimeout bounds one source fetch; expiry counts as a failure
	FetchTimeout time.Duration
	// SchedulerEnabled runs the in-process ticker; disable it when an
	// external cron worker drives /api/v1/trigger-update instead
	SchedulerEnabled bool
}

// SourceConfig holds raw data source configuration
type SourceConfig struct {
	Provider          string // "nse" or "mock"
	BaseURL           string
	Symbols           []string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

// StoreConfig holds OI store configuration
type StoreConfig struct {
	// RetentionSessions is how many completed prior trading sessions are
	// kept in addition to the in-progress one
	RetentionSessions int
	// Bucket is the observation bucket width; duplicate polls inside one
	// bucket overwrite rather than append
	Bucket time.Duration
}

// CronConfig holds the external trigger worker configuration
type CronConfig struct {
	TargetURL string
	Interval  time.Duration
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory or parent directories
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		API: APIConfig{
			Port:         getEnvAsInt("API_PORT", 8000),
			RateLimitRPS: getEnvAsInt("API_RATE_LIMIT_RPS", 100),
		},
		Ingest: IngestConfig{
			Interval:         getEnvAsDuration("INGEST_INTERVAL", 5*time.Minute),
			FetchTimeout:     getEnvAsDuration("INGEST_FETCH_TIMEOUT", 60*time.Second),
			SchedulerEnabled: getEnvAsBool("INGEST_SCHEDULER_ENABLED", true),
		},
		Source: SourceConfig{
			Provider:          getEnv("SOURCE_PROVIDER", "nse"),
			BaseURL:           getEnv("SOURCE_BASE_URL", "https://www.nseindia.com"),
			Symbols:           getEnvAsStringSlice("SOURCE_SYMBOLS", nil),
			RequestTimeout:    getEnvAsDuration("SOURCE_REQUEST_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getEnvAsFloat("SOURCE_REQUESTS_PER_SECOND", 2),
		},
		Store: StoreConfig{
			RetentionSessions: getEnvAsInt("STORE_RETENTION_SESSIONS", 3),
			Bucket:            getEnvAsDuration("STORE_BUCKET", 5*time.Minute),
		},
		Cron: CronConfig{
			TargetURL: getEnv("CRON_TARGET_URL", "http://localhost:8000/api/v1/trigger-update"),
			Interval:  getEnvAsDuration("CRON_INTERVAL", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Source.Provider != "nse" && c.Source.Provider != "mock" {
		return fmt.Errorf("SOURCE_PROVIDER must be \"nse\" or \"mock\", got %q", c.Source.Provider)
	}
	if c.Ingest.Interval <= 0 {
		return fmt.Errorf("INGEST_INTERVAL must be positive")
	}
	if c.Store.RetentionSessions < 1 {
		return fmt.Errorf("STORE_RETENTION_SESSIONS must be at least 1")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("API_PORT must be a valid port")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
