// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string `validate:"required"` // Base directory for history.db and snapshots (always absolute)
	UniverseFile     string // YAML universe registry; built-in default universe when absent
	OutputFile       string `validate:"required"` // data.json consumed by the front-end
	WorkbookFile     string // Optional .xlsx export
	LogLevel         string `validate:"oneof=debug info warn error"`
	Port             int    `validate:"gt=0,lt=65536"`
	DevMode          bool
	RefreshCron      string `validate:"required"`
	ReturnMethod     string `validate:"oneof=compounded arithmetic log"`
	ParallelHorizons bool
	HistoryStart     time.Time
	SyncConcurrency  int `validate:"gt=0"`
	R2               R2Config
}

// R2Config holds the S3-compatible bucket the result document is published to.
// Publishing is disabled when Bucket is empty.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	ObjectKey       string
}

// Enabled reports whether an upload target is configured.
func (c R2Config) Enabled() bool {
	return c.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("RISKMAP_DATA_DIR", "data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	historyStart, err := time.Parse("2006-01-02", getEnv("RISKMAP_HISTORY_START", "1990-01-01"))
	if err != nil {
		return nil, fmt.Errorf("invalid RISKMAP_HISTORY_START: %w", err)
	}

	cfg := &Config{
		DataDir:          dataDir,
		UniverseFile:     getEnv("RISKMAP_UNIVERSE_FILE", "config/universe.yaml"),
		OutputFile:       getEnv("RISKMAP_OUTPUT_FILE", "public/data.json"),
		WorkbookFile:     getEnv("RISKMAP_WORKBOOK_FILE", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Port:             getEnvAsInt("GO_PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		RefreshCron:      getEnv("RISKMAP_REFRESH_CRON", "0 30 6 * * *"), // with seconds: 06:30:00 daily
		ReturnMethod:     getEnv("RISKMAP_RETURN_METHOD", "compounded"),
		ParallelHorizons: getEnvAsBool("RISKMAP_PARALLEL_HORIZONS", true),
		HistoryStart:     historyStart,
		SyncConcurrency:  getEnvAsInt("RISKMAP_SYNC_CONCURRENCY", 4),
		R2: R2Config{
			AccountID:       getEnv("RISKMAP_R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("RISKMAP_R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("RISKMAP_R2_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("RISKMAP_R2_BUCKET", ""),
			ObjectKey:       getEnv("RISKMAP_R2_OBJECT_KEY", "data.json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.R2.Enabled() && (c.R2.AccountID == "" || c.R2.AccessKeyID == "" || c.R2.SecretAccessKey == "") {
		return fmt.Errorf("invalid configuration: R2 bucket %q set without account id and credentials", c.R2.Bucket)
	}
	return nil
}

// HistoryDBPath returns the location of the price history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// SnapshotsDBPath returns the path of the stored analysis runs.
func (c *Config) SnapshotsDBPath() string {
	return filepath.Join(c.DataDir, "snapshots.db")
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
