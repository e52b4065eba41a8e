// Package config loads and persists the application configuration from
// ~/.config/aide/config.json, merged over defaults.
package config

import (
	"fmt"
)

const (
	// ConfigDir is the directory name under ~/.config.
	ConfigDir = "aide"
	// ConfigFile is the config file name.
	ConfigFile = "config.json"
)

// Config holds all application configuration values. Values in the
// config file override defaults, including explicit zero values; missing
// keys are left at their defaults.
type Config struct {
	// Model is the provider model name.
	Model string `json:"model"`

	// ModelRetryBudget is the total number of model request attempts per
	// turn before the failure surfaces to the user.
	ModelRetryBudget int `json:"model_retry_budget"`

	// AutoFix enables the recovery engine for code and resource failures.
	AutoFix bool `json:"auto_fix"`

	// MaxFixAttempts bounds recovery cycles per failing tool call.
	MaxFixAttempts int `json:"max_fix_attempts"`

	// TrustedPaths are always-allowed path patterns for the permission
	// gate. Tilde expansion and doublestar globs apply.
	TrustedPaths []string `json:"trusted_paths"`

	// MaxFileSize bounds file reads and writes, in bytes.
	MaxFileSize int64 `json:"max_file_size"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:            "gemini-2.0-flash",
		ModelRetryBudget: 3,
		AutoFix:          true,
		MaxFixAttempts:   3,
		MaxFileSize:      20 * 1024 * 1024,
	}
}

// Validate checks the merged configuration for correctness.
func (c *Config) Validate() error {
	var errs []string

	if c.Model == "" {
		errs = append(errs, "model must not be empty")
	}
	if c.ModelRetryBudget < 1 {
		errs = append(errs, "model_retry_budget must be >= 1")
	}
	if c.MaxFixAttempts < 1 {
		errs = append(errs, "max_fix_attempts must be >= 1")
	}
	if c.MaxFileSize < 1 {
		errs = append(errs, "max_file_size must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}
	return nil
}
