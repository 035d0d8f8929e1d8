package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Portal    PortalConfig
	Parse     ParseConfig
	LLM       LLMConfig
	Storage   StorageConfig
	Ledger    LedgerConfig
	Scheduler SchedulerConfig
}

// PortalConfig holds loan-portal configuration
type PortalConfig struct {
	BaseURL  string
	Username string
	Password string
	Headless bool
	Timeout  time.Duration
}

// ParseConfig holds text-extraction-service configuration
type ParseConfig struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	Timeout      time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// StorageConfig holds blob-storage configuration
type StorageConfig struct {
	ConnectionString string
	Container        string
	LocalDir         string // filesystem fallback when no connection string is set
}

// LedgerConfig selects the dedup-ledger backend.
// Backend is one of "blob", "sqlite", "postgres".
type LedgerConfig struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
}

// SchedulerConfig holds orchestration knobs
type SchedulerConfig struct {
	Concurrency    int
	MaxAttempts    int
	BaseBackoff    time.Duration
	BackoffFactor  float64
	AttemptTimeout time.Duration
	MinTextLength  int
	StatusAddr     string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:  getEnv("PORTAL_BASE_URL", ""),
			Username: getEnv("PORTAL_USERNAME", ""),
			Password: getEnv("PORTAL_PASSWORD", ""),
			Headless: getEnvAsBool("HEADLESS_MODE", true),
			Timeout:  getEnvAsDuration("PORTAL_TIMEOUT", 30*time.Second),
		},
		Parse: ParseConfig{
			BaseURL:      getEnv("LLAMA_CLOUD_BASE_URL", "https://api.cloud.llamaindex.ai"),
			APIKey:       getEnv("LLAMA_CLOUD_API_KEY", ""),
			PollInterval: getEnvAsDuration("LLAMA_POLL_INTERVAL", 2*time.Second),
			Timeout:      getEnvAsDuration("LLAMA_TIMEOUT", 2*time.Minute),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 90*time.Second),
		},
		Storage: StorageConfig{
			ConnectionString: getEnv("AZURE_CONNECTION_STRING", ""),
			Container:        getEnv("AZURE_CONTAINER", "appraisals"),
			LocalDir:         getEnv("LOCAL_STORE_DIR", "./data"),
		},
		Ledger: LedgerConfig{
			Backend:     getEnv("LEDGER_BACKEND", "blob"),
			SQLitePath:  getEnv("LEDGER_SQLITE_PATH", "./ledger.db"),
			PostgresDSN: getEnv("LEDGER_POSTGRES_DSN", ""),
		},
		Scheduler: SchedulerConfig{
			Concurrency:    getEnvAsInt("WORKER_CONCURRENCY", 4),
			MaxAttempts:    getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			BaseBackoff:    getEnvAsDuration("RETRY_BASE_BACKOFF", time.Second),
			BackoffFactor:  getEnvAsFloat64("RETRY_BACKOFF_FACTOR", 2.0),
			AttemptTimeout: getEnvAsDuration("ATTEMPT_TIMEOUT", 90*time.Second),
			MinTextLength:  getEnvAsInt("MIN_TEXT_LENGTH", 100),
			StatusAddr:     getEnv("STATUS_ADDR", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return Fatalf("config", "PORTAL_BASE_URL is required")
	}
	if c.Parse.APIKey == "" {
		return Fatalf("config", "LLAMA_CLOUD_API_KEY is required")
	}
	if c.LLM.APIKey == "" {
		return Fatalf("config", "OPENAI_API_KEY is required")
	}
	if c.Scheduler.Concurrency < 1 {
		return Fatalf("config", "WORKER_CONCURRENCY must be at least 1")
	}
	switch c.Ledger.Backend {
	case "blob", "sqlite":
	case "postgres":
		if c.Ledger.PostgresDSN == "" {
			return Fatalf("config", "LEDGER_POSTGRES_DSN is required for the postgres ledger")
		}
	default:
		return Fatalf("config", "unknown ledger backend %q", c.Ledger.Backend)
	}
	return nil
}
