// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// AnalysisConfig holds the operational knobs of the batch engines.
// Detection thresholds themselves are fixed in the domain packages;
// only window sizes and batch concurrency are configurable.
type AnalysisConfig struct {
	SubscriptionLookbackMonths int `yaml:"subscription_lookback_months"`
	IncomeMonthsBack           int `yaml:"income_months_back"`
	BatchWorkers               int `yaml:"batch_workers"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${LEDGERLENS_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Addr: getEnv("LEDGERLENS_ADDR", ":8080"),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("LEDGERLENS_DB_PATH", "ledgerlens.db"),
		},
		Analysis: AnalysisConfig{
			SubscriptionLookbackMonths: getEnvInt("LEDGERLENS_SUBSCRIPTION_LOOKBACK_MONTHS", 6),
			IncomeMonthsBack:           getEnvInt("LEDGERLENS_INCOME_MONTHS_BACK", 3),
			BatchWorkers:               getEnvInt("LEDGERLENS_BATCH_WORKERS", 4),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills in zero values so a sparse YAML file still
// yields a runnable config.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "ledgerlens.db"
	}
	if c.Analysis.SubscriptionLookbackMonths <= 0 {
		c.Analysis.SubscriptionLookbackMonths = 6
	}
	if c.Analysis.IncomeMonthsBack <= 0 {
		c.Analysis.IncomeMonthsBack = 3
	}
	if c.Analysis.BatchWorkers <= 0 {
		c.Analysis.BatchWorkers = 4
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}
