// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/internal/utils"
	"github.com/joho/godotenv"
)

// Config holds process configuration read from the environment
type Config struct {
	LogLevel  string
	LogPretty bool
	// RunFile is the YAML run definition (always absolute)
	RunFile string
	// PanelFile is the long-format CSV return panel (always absolute)
	PanelFile string
	// Universe overrides the run file universe when non-empty
	Universe []string
	// Workers overrides the run file worker count when > 0
	Workers  int
	FailFast bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:  getEnv("SECTORBL_LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("SECTORBL_LOG_PRETTY", false),
		RunFile:   getEnv("SECTORBL_RUN_FILE", "run.yaml"),
		PanelFile: getEnv("SECTORBL_PANEL_FILE", "panel.csv"),
		Universe:  utils.ParseCSV(getEnv("SECTORBL_UNIVERSE", "")),
		Workers:   getEnvAsInt("SECTORBL_WORKERS", 0),
		FailFast:  getEnvAsBool("SECTORBL_FAIL_FAST", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var err error
	if cfg.RunFile, err = filepath.Abs(cfg.RunFile); err != nil {
		return nil, fmt.Errorf("failed to resolve run file path: %w", err)
	}
	if cfg.PanelFile, err = filepath.Abs(cfg.PanelFile); err != nil {
		return nil, fmt.Errorf("failed to resolve panel file path: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	var errs domain.ConfigurationErrors

	if c.RunFile == "" {
		errs = append(errs, domain.ConfigurationError{Field: "SECTORBL_RUN_FILE", Message: "is required"})
	}
	if c.PanelFile == "" {
		errs = append(errs, domain.ConfigurationError{Field: "SECTORBL_PANEL_FILE", Message: "is required"})
	}
	if c.Workers < 0 {
		errs = append(errs, domain.ConfigurationError{Field: "SECTORBL_WORKERS", Message: fmt.Sprintf("must be >= 0, got %d", c.Workers)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Apply overrides the execution settings of params with the environment.
func (c *Config) Apply(params *domain.ModelParams) {
	if c.Workers > 0 {
		params.Workers = c.Workers
	}
	if c.FailFast {
		params.FailFast = true
	}
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
