// Package config provides configuration management for the prediction server.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for data files

	// Cache settings
	CacheMaxItems int           // Maximum items in memory cache
	CacheTTL      time.Duration // Default cache TTL

	// Prediction settings
	ModelVersion        string  // Version label attached to predictions
	ConfidenceThreshold float64 // Minimum confidence reported to callers
	MaxPredictions      int     // Maximum ranked predictions per request

	// Remote model service (optional)
	ModelServiceURL    string // Optional: remote scoring service base URL
	ModelServiceAPIKey string // Optional: API key for the scoring service

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".pdpcds")

	return &LiteConfig{
		DataDir:             dataDir,
		CacheMaxItems:       1000,
		CacheTTL:            24 * time.Hour,
		ModelVersion:        "v1.0",
		ConfidenceThreshold: 0.5,
		MaxPredictions:      3,
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directory
	if v := os.Getenv("PDPCDS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Cache settings
	if v := os.Getenv("PDPCDS_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("PDPCDS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	// Prediction settings
	if v := os.Getenv("PDPCDS_MODEL_VERSION"); v != "" {
		cfg.ModelVersion = v
	}
	if v := os.Getenv("PDPCDS_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv("PDPCDS_MAX_PREDICTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPredictions = n
		}
	}

	// Remote model service
	cfg.ModelServiceURL = os.Getenv("MODEL_SERVICE_URL")
	cfg.ModelServiceAPIKey = os.Getenv("MODEL_SERVICE_API_KEY")

	// Logging
	if v := os.Getenv("PDPCDS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PDPCDS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// TrainingDBPath returns the path to the training SQLite database.
func (c *LiteConfig) TrainingDBPath() string {
	return filepath.Join(c.DataDir, "training.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
