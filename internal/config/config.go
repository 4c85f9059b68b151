package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Development bool
	// API configuration
	APIPort int
	// CronSecret authenticates the sweep trigger and the resender.
	CronSecret string

	// Database configuration
	DatabaseDriver   string
	SQLitePath       string
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string

	// Chain scope
	ChainID   int
	ChainName string

	// Sweep configuration
	PageSize         int
	ColdStartDepth   int
	SweepConcurrency int
	CallTimeout      time.Duration
	SweepTimeout     time.Duration
	// SweepSchedule is a cron expression for the in-process trigger. Empty disables it.
	SweepSchedule string
	InstanceID    string

	// Chain data provider
	CovalentAPIKey     string
	CovalentBaseURL    string
	CovalentRatePerSec int

	// Text generation
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Farcaster (Neynar)
	NeynarAPIKey     string
	NeynarBaseURL    string
	NeynarSignerUUID string
	FrameBaseURL     string

	// Telegram
	TelegramBotToken string

	// SMTP configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPSender   string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	hostname, _ := os.Hostname()

	cfg := &Config{
		Development: getEnvAsBool("DEVELOPMENT", false),
		APIPort:     getEnvAsInt("API_PORT", 6532),
		CronSecret:  getEnv("CRON_SECRET", ""),

		DatabaseDriver:   getEnv("DATABASE_DRIVER", DriverPostgres),
		SQLitePath:       getEnv("SQLITE_PATH", "radar.db"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "radar"),

		ChainID:   getEnvAsInt("CHAIN_ID", 8453), // Base mainnet
		ChainName: getEnv("CHAIN_NAME", "base"),

		PageSize:         getEnvAsInt("PAGE_SIZE", 10),
		ColdStartDepth:   getEnvAsInt("COLD_START_DEPTH", 10),
		SweepConcurrency: getEnvAsInt("SWEEP_CONCURRENCY", 8),
		CallTimeout:      getEnvAsDuration("CALL_TIMEOUT", 15*time.Second),
		SweepTimeout:     getEnvAsDuration("SWEEP_TIMEOUT", 4*time.Minute),
		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "@every 5m"),
		InstanceID:       getEnv("INSTANCE_ID", hostname),

		CovalentAPIKey:     getEnv("COVALENT_API_KEY", ""),
		CovalentBaseURL:    getEnv("COVALENT_BASE_URL", "https://api.covalenthq.com/v1"),
		CovalentRatePerSec: getEnvAsInt("COVALENT_RATE_PER_SEC", 4),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		NeynarAPIKey:     getEnv("NEYNAR_API_KEY", ""),
		NeynarBaseURL:    getEnv("NEYNAR_BASE_URL", "https://api.neynar.com/v2"),
		NeynarSignerUUID: getEnv("NEYNAR_SIGNER_UUID", ""),
		FrameBaseURL:     getEnv("FRAME_BASE_URL", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPSender:   getEnv("SMTP_SENDER", ""),
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET is required")
	}

	if c.CovalentAPIKey == "" {
		return fmt.Errorf("COVALENT_API_KEY is required")
	}

	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive")
	}
	if c.ColdStartDepth <= 0 || c.ColdStartDepth > c.PageSize {
		return fmt.Errorf("COLD_START_DEPTH must be between 1 and PAGE_SIZE")
	}
	if c.SweepConcurrency <= 0 {
		return fmt.Errorf("SWEEP_CONCURRENCY must be positive")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("CALL_TIMEOUT must be positive")
	}
	if c.SweepTimeout <= 0 {
		return fmt.Errorf("SWEEP_TIMEOUT must be positive")
	}

	if !c.FarcasterEnabled() && !c.TelegramEnabled() && !c.EmailEnabled() {
		return fmt.Errorf("at least one notification channel (NEYNAR_*, TELEGRAM_BOT_TOKEN or SMTP_*) is required")
	}
	if c.NeynarAPIKey != "" && c.NeynarSignerUUID == "" {
		return fmt.Errorf("NEYNAR_SIGNER_UUID is required when NEYNAR_API_KEY is set")
	}

	return nil
}

// FarcasterEnabled reports whether casts can be sent
func (c *Config) FarcasterEnabled() bool {
	return c.NeynarAPIKey != "" && c.NeynarSignerUUID != ""
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPSender != ""
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
