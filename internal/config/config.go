// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir     string // Base directory for the run history database (always absolute)
	LogLevel    string
	Port        int
	DevMode     bool
	PersistRuns bool // Store every allocation in allocation_runs

	// Model defaults applied when a request leaves them unset
	RiskAversion float64
	Tau          float64
	OmegaMethod  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("ALLOCATOR_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnvAsInt("GO_PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		PersistRuns:  getEnvAsBool("BL_PERSIST_RUNS", true),
		RiskAversion: getEnvAsFloat("BL_RISK_AVERSION", optimization.DefaultRiskAversion),
		Tau:          getEnvAsFloat("BL_TAU", optimization.DefaultTau),
		OmegaMethod:  getEnv("BL_OMEGA_METHOD", string(optimization.DefaultOmegaMethod)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.PersistRuns {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// Validate rejects model defaults the allocator cannot run with
func (c *Config) Validate() error {
	if !(c.RiskAversion > 0) || math.IsInf(c.RiskAversion, 0) {
		return fmt.Errorf("BL_RISK_AVERSION must be positive, got %v", c.RiskAversion)
	}
	if !(c.Tau > 0) || math.IsInf(c.Tau, 0) {
		return fmt.Errorf("BL_TAU must be positive, got %v", c.Tau)
	}
	if !optimization.OmegaMethod(c.OmegaMethod).Valid() {
		return fmt.Errorf("BL_OMEGA_METHOD must be %q or %q, got %q",
			optimization.OmegaPriorVariance, optimization.OmegaUserConfidence, c.OmegaMethod)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be a valid port, got %d", c.Port)
	}
	return nil
}

// Allocator returns the engine defaults
func (c *Config) Allocator() optimization.Config {
	return optimization.Config{
		RiskAversion: c.RiskAversion,
		Tau:          c.Tau,
		OmegaMethod:  optimization.OmegaMethod(c.OmegaMethod),
	}
}

// DatabasePath returns the run history database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "allocator.db")
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
