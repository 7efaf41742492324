// Package config loads NewsGuard configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port    int
	DevMode bool

	LogLevel string

	DataDir      string
	DatabasePath string
	SnapshotPath string

	// External analyst (AI gateway) service
	AnalystURL    string
	AnalystAPIKey string

	// Sync scheduling
	StaleAfter         time.Duration // max tolerable age of cached events
	StalenessReschedule string        // cron spec for the periodic re-check

	// Notification dispatching
	NotifyPollInterval time.Duration
	NotifyPollSlack    time.Duration
	NotifyCommand      string
	LedgerGrace        time.Duration // how long past an event its ledger entry survives
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		Port:    getEnvAsInt("PORT", 8090),
		DevMode: getEnvAsBool("DEV_MODE", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataDir:      dataDir,
		DatabasePath: getEnv("DATABASE_PATH", filepath.Join(dataDir, "newsguard.db")),
		SnapshotPath: getEnv("SNAPSHOT_PATH", filepath.Join(dataDir, "snapshot.bin")),

		AnalystURL:    getEnv("ANALYST_URL", "http://localhost:8000"),
		AnalystAPIKey: getEnv("ANALYST_API_KEY", ""),

		StaleAfter:          getEnvAsDuration("SYNC_STALE_AFTER", 4*time.Hour),
		StalenessReschedule: getEnv("SYNC_RECHECK_SCHEDULE", "@every 15m"),

		NotifyPollInterval: getEnvAsDuration("NOTIFY_POLL_INTERVAL", 20*time.Second),
		NotifyPollSlack:    getEnvAsDuration("NOTIFY_POLL_SLACK", 30*time.Second),
		NotifyCommand:      getEnv("NOTIFY_COMMAND", "notify-send"),
		LedgerGrace:        getEnvAsDuration("LEDGER_GRACE", 24*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.AnalystURL == "" {
		return fmt.Errorf("ANALYST_URL is required")
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("SYNC_STALE_AFTER must be positive")
	}
	// The slack buffer must cover at least one full poll interval, otherwise
	// the alert window can fall between two polls and never fire.
	if c.NotifyPollSlack < c.NotifyPollInterval {
		return fmt.Errorf("NOTIFY_POLL_SLACK (%s) must be >= NOTIFY_POLL_INTERVAL (%s)",
			c.NotifyPollSlack, c.NotifyPollInterval)
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
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
