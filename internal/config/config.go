// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// patentforge.
//
// TOML configuration with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file location:
//   - ~/.patentforge/config.toml
//   - Built-in defaults when absent
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/patentforge-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete patentforge configuration.
type Config struct {
	Version string `toml:"version"`

	// Server configuration
	Server ServerConfig `toml:"server"`

	// Retry policy for failed sends
	Retry RetryConfig `toml:"retry"`

	// Conversation archive
	Archive ArchiveConfig `toml:"archive"`

	// Working draft document
	Document DocumentConfig `toml:"document"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Debug enables wire-level logging to stderr
	Debug bool `toml:"debug"`
}

// ServerConfig describes the agent backend endpoint.
type ServerConfig struct {
	// BaseURL is the agent backend base URL
	BaseURL string `toml:"base_url"`
	// TimeoutSecs bounds the run registration request
	TimeoutSecs int `toml:"timeout_secs"`
	// IdleTimeoutSecs fails a stream with no traffic for this long
	// (0 = disabled)
	IdleTimeoutSecs int `toml:"idle_timeout_secs"`
	// RunsPerSecond caps run registrations client-side
	RunsPerSecond float64 `toml:"runs_per_second"`
}

// RetryConfig describes the bounded retry policy.
type RetryConfig struct {
	// MaxRetries is retries after the first failure
	MaxRetries int `toml:"max_retries"`
	// DelaySecs is the pause between retries
	DelaySecs int `toml:"delay_secs"`
}

// ArchiveConfig describes the local conversation archive.
type ArchiveConfig struct {
	// Enabled turns the archive on
	Enabled bool `toml:"enabled"`
	// Path is the SQLite database path (empty = ~/.patentforge/archive.db)
	Path string `toml:"path"`
	// MaxConversations caps the archive size; oldest are pruned (0 = unlimited)
	MaxConversations int `toml:"max_conversations"`
}

// DocumentConfig describes the working draft document.
type DocumentConfig struct {
	// DraftPath is the local draft file; empty disables the document host
	DraftPath string `toml:"draft_path"`
}

// UIConfig contains display configuration.
type UIConfig struct {
	// Theme selects the color theme: "dark", "light"
	Theme string `toml:"theme"`
	// Plain forces the line-mode REPL instead of the full-screen TUI
	Plain bool `toml:"plain"`
	// ShowThoughts expands agent reasoning under assistant turns
	ShowThoughts bool `toml:"show_thoughts"`
	// UndoWindowSecs is how long a cleared conversation stays restorable
	UndoWindowSecs int `toml:"undo_window_secs"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Server: ServerConfig{
			BaseURL:       "http://127.0.0.1:8000",
			TimeoutSecs:   30,
			RunsPerSecond: 1,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			DelaySecs:  1,
		},
		Archive: ArchiveConfig{
			Enabled:          true,
			MaxConversations: 100,
		},
		UI: UIConfig{
			Theme:          "dark",
			ShowThoughts:   true,
			UndoWindowSecs: 5,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the patentforge configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".patentforge"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ArchivePath resolves the archive database path.
func (c *Config) ArchivePath() (string, error) {
	if c.Archive.Path != "" {
		return c.Archive.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "archive.db"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from the default location, falling back to
// defaults when no file exists. Environment overrides are applied last,
// then validation.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from an explicit path. A missing
// file is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default location atomically.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to an explicit path atomically.
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies PATENTFORGE_* environment variables over the
// loaded values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PATENTFORGE_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("PATENTFORGE_DRAFT"); v != "" {
		c.Document.DraftPath = v
	}
	if v := os.Getenv("PATENTFORGE_ARCHIVE_PATH"); v != "" {
		c.Archive.Path = v
	}
	if v := os.Getenv("PATENTFORGE_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("PATENTFORGE_PLAIN"); v != "" {
		c.UI.Plain = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PATENTFORGE_DEBUG"); v != "" {
		c.Debug = v == "1" || strings.EqualFold(v, "true")
	}
}

// SetDefaults fills zero values with defaults after a partial file load.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = def.Server.BaseURL
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = def.Server.TimeoutSecs
	}
	if c.Server.RunsPerSecond == 0 {
		c.Server.RunsPerSecond = def.Server.RunsPerSecond
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = def.Retry.MaxRetries
	}
	if c.Retry.DelaySecs == 0 {
		c.Retry.DelaySecs = def.Retry.DelaySecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.UndoWindowSecs == 0 {
		c.UI.UndoWindowSecs = def.UI.UndoWindowSecs
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Server.BaseURL); err != nil {
		return ValidationError{Field: "server.base_url", Message: "must be a valid URL"}
	}
	if c.Server.TimeoutSecs < 0 {
		return ValidationError{Field: "server.timeout_secs", Message: "must not be negative"}
	}
	if c.Server.IdleTimeoutSecs < 0 {
		return ValidationError{Field: "server.idle_timeout_secs", Message: "must not be negative"}
	}
	if c.Retry.MaxRetries < 0 || c.Retry.MaxRetries > 10 {
		return ValidationError{Field: "retry.max_retries", Message: "must be between 0 and 10"}
	}
	if c.Retry.DelaySecs < 0 {
		return ValidationError{Field: "retry.delay_secs", Message: "must not be negative"}
	}
	if c.UI.Theme != "dark" && c.UI.Theme != "light" {
		return ValidationError{Field: "ui.theme", Message: `must be "dark" or "light"`}
	}
	if c.UI.UndoWindowSecs < 1 || c.UI.UndoWindowSecs > 60 {
		return ValidationError{Field: "ui.undo_window_secs", Message: "must be between 1 and 60"}
	}
	if c.Archive.MaxConversations < 0 {
		return ValidationError{Field: "archive.max_conversations", Message: "must not be negative"}
	}
	return nil
}

// =============================================================================
// DURATION HELPERS
// =============================================================================

// Timeout returns the run registration timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// IdleTimeout returns the stream idle timeout, 0 when disabled.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Server.IdleTimeoutSecs) * time.Second
}

// RetryDelay returns the pause between retries.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelaySecs) * time.Second
}

// UndoWindow returns the undo window duration.
func (c *Config) UndoWindow() time.Duration {
	return time.Duration(c.UI.UndoWindowSecs) * time.Second
}
