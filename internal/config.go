package internal

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the engine's global defaults, sourced from environment
// variables the CLI dispatcher reads once at startup.
type Config struct {
	DefaultConnections int
	MaxRetries         int

	LogLevel    string
	EnableDebug bool
	QuietMode   bool
	LogFile     string
}

// DefaultConfig returns the built-in defaults before any environment
// override is applied.
func DefaultConfig() *Config {
	return &Config{
		DefaultConnections: 4,
		MaxRetries:         3,

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "",
	}
}

// LoadFromEnv overrides defaults from SERVEFETCH_* environment variables.
func (c *Config) LoadFromEnv() {
	if conns := os.Getenv("SERVEFETCH_CONNECTIONS"); conns != "" {
		if n, err := strconv.Atoi(conns); err == nil && n >= 1 && n <= 16 {
			c.DefaultConnections = n
		}
	}

	if retries := os.Getenv("SERVEFETCH_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil && n >= 0 {
			c.MaxRetries = n
		}
	}

	if logLevel := os.Getenv("SERVEFETCH_LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}

	if debug := os.Getenv("SERVEFETCH_DEBUG"); debug != "" {
		c.EnableDebug = debug == "true" || debug == "1"
	}

	if quiet := os.Getenv("SERVEFETCH_QUIET"); quiet != "" {
		c.QuietMode = quiet == "true" || quiet == "1"
	}

	if logFile := os.Getenv("SERVEFETCH_LOG_FILE"); logFile != "" {
		c.LogFile = logFile
	}
}

// GetEnvWithDefault returns the named environment variable, or a default
// when it is unset or empty.
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ValidateConfig checks the configuration's values are all in their
// documented ranges.
func (c *Config) ValidateConfig() error {
	if c.DefaultConnections < 1 || c.DefaultConnections > 16 {
		return fmt.Errorf("invalid default connections: %d (must be 1-16)", c.DefaultConnections)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid max retries: %d (must be >= 0)", c.MaxRetries)
	}
	return nil
}
