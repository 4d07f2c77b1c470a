// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and manages vidion configuration.
//
// Configuration sources, later entries overriding earlier ones:
//   - Built-in defaults
//   - ~/.vidion/config.toml
//   - A .env file next to the binary or in ~/.vidion
//   - Environment variables
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/preetam-90/vidion-ai/internal/model"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete vidion configuration.
type Config struct {
	Version string `toml:"version"`

	// DefaultModel is the catalog ID selected when no persisted selection
	// exists.
	DefaultModel string `toml:"default_model"`

	Providers ProvidersConfig `toml:"providers"`
	Streaming StreamingConfig `toml:"streaming"`
	UI        UIConfig        `toml:"ui"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ProvidersConfig carries vendor credentials and request tuning.
type ProvidersConfig struct {
	// GroqAPIKey authenticates against the Groq endpoint.
	GroqAPIKey string `toml:"groq_api_key"`
	// OpenRouterAPIKey authenticates against the OpenRouter endpoint.
	OpenRouterAPIKey string `toml:"openrouter_api_key"`
	// SiteURL and SiteName populate OpenRouter's attribution headers.
	SiteURL  string `toml:"site_url"`
	SiteName string `toml:"site_name"`
	// RequestsPerSecond is the client-side rate limit.
	RequestsPerSecond float64 `toml:"requests_per_second"`
	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries int `toml:"max_retries"`
}

// StreamingConfig tunes the response reveal behavior.
type StreamingConfig struct {
	// CharDelayMs is the per-character delay for simulated streaming.
	CharDelayMs int `toml:"char_delay_ms"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is "dark", "light", or "auto".
	Theme string `toml:"theme"`
	// CompactMode tightens message spacing.
	CompactMode bool `toml:"compact_mode"`
	// ShowThinking reveals model thinking blocks in the transcript.
	ShowThinking bool `toml:"show_thinking"`
}

// LoggingConfig controls the rotating log file.
type LoggingConfig struct {
	// File is the log path. Empty means ~/.vidion/vidion.log.
	File string `toml:"file"`
	// Level is a zap level name: debug, info, warn, error.
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version:      "1.0.0",
		DefaultModel: model.DefaultModel.ID,

		Providers: ProvidersConfig{
			SiteURL:           "https://vidion.ai",
			SiteName:          "Vidion AI",
			RequestsPerSecond: 2,
			MaxRetries:        3,
		},

		Streaming: StreamingConfig{
			CharDelayMs: 10,
		},

		UI: UIConfig{
			Theme:        "dark",
			ShowThinking: true,
		},

		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// Dir returns the vidion configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".vidion"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions tightens the config file to owner read/write
// since it can hold API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix permissions (was %o): %w", info.Mode().Perm(), err)
		}
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads the config file, layers .env and environment overrides on top,
// and validates the result. A missing config file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	loadDotEnv()

	path, err := Path()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := loadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation. Used by tests and the --config flag.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := loadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv populates the environment from .env files without overriding
// variables that are already set. Missing files are fine.
func loadDotEnv() {
	_ = godotenv.Load()
	if dir, err := Dir(); err == nil {
		_ = godotenv.Load(filepath.Join(dir, ".env"))
	}
}

func loadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.DefaultModel == "" {
		c.DefaultModel = defaults.DefaultModel
	}

	if c.Providers.SiteURL == "" {
		c.Providers.SiteURL = defaults.Providers.SiteURL
	}
	if c.Providers.SiteName == "" {
		c.Providers.SiteName = defaults.Providers.SiteName
	}
	if c.Providers.RequestsPerSecond == 0 {
		c.Providers.RequestsPerSecond = defaults.Providers.RequestsPerSecond
	}
	if c.Providers.MaxRetries == 0 {
		c.Providers.MaxRetries = defaults.Providers.MaxRetries
	}

	if c.Streaming.CharDelayMs == 0 {
		c.Streaming.CharDelayMs = defaults.Streaming.CharDelayMs
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = defaults.Logging.MaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = defaults.Logging.MaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = defaults.Logging.MaxAgeDays
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - GROQ_API_KEY: overrides providers.groq_api_key
//   - OPENROUTER_API_KEY: overrides providers.openrouter_api_key
//   - VIDION_MODEL: overrides default_model
//   - VIDION_THEME: overrides ui.theme
//   - VIDION_LOG_LEVEL: overrides logging.level
//   - VIDION_CHAR_DELAY_MS: overrides streaming.char_delay_ms
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Providers.GroqAPIKey = key
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.Providers.OpenRouterAPIKey = key
	}
	if id := os.Getenv("VIDION_MODEL"); id != "" {
		c.DefaultModel = id
	}
	if theme := os.Getenv("VIDION_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if level := os.Getenv("VIDION_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if delay := os.Getenv("VIDION_CHAR_DELAY_MS"); delay != "" {
		if ms, err := strconv.Atoi(delay); err == nil {
			c.Streaming.CharDelayMs = ms
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, ok := model.GetModel(c.DefaultModel); !ok {
		errs = append(errs, ValidationError{
			Field:   "default_model",
			Message: fmt.Sprintf("unknown model %q", c.DefaultModel),
		})
	}

	if c.Providers.RequestsPerSecond <= 0 {
		errs = append(errs, ValidationError{
			Field:   "providers.requests_per_second",
			Message: "must be positive",
		})
	}
	if c.Providers.MaxRetries < 0 || c.Providers.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "providers.max_retries",
			Message: fmt.Sprintf("must be 0-10, got %d", c.Providers.MaxRetries),
		})
	}
	if c.Providers.SiteURL != "" {
		if _, err := url.Parse(c.Providers.SiteURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "providers.site_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}

	if c.Streaming.CharDelayMs < 1 || c.Streaming.CharDelayMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "streaming.char_delay_ms",
			Message: fmt.Sprintf("must be 1-1000, got %d", c.Streaming.CharDelayMs),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme %q, must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level %q, must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file with owner-only
// permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# vidion configuration file")
	fmt.Fprintln(file, "# Edit with care; unknown fields are ignored.")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
