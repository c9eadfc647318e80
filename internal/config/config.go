// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/gemsheets-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete gemsheets configuration.
type Config struct {
	Gemini  GeminiConfig  `toml:"gemini" json:"gemini"`
	Google  GoogleConfig  `toml:"google" json:"google"`
	Export  ExportConfig  `toml:"export" json:"export"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// GeminiConfig configures the model connection.
type GeminiConfig struct {
	// APIKey is read from GEMINI_API_KEY when unset.
	APIKey string `toml:"api_key" json:"api_key"`
	Model  string `toml:"model" json:"model"`
}

// GoogleConfig configures sign-in and the Sheets API.
type GoogleConfig struct {
	ClientID string `toml:"client_id" json:"client_id"`
	// ClientSecret is optional for desktop clients using PKCE.
	ClientSecret        string `toml:"client_secret" json:"client_secret"`
	DiscoveryURL        string `toml:"discovery_url" json:"discovery_url"`
	SheetsURL           string `toml:"sheets_url" json:"sheets_url"`
	CallbackTimeoutSecs int    `toml:"callback_timeout_secs" json:"callback_timeout_secs"`

	// ClientIDFromEnv is set when GOOGLE_CLIENT_ID supplied ClientID. The
	// identifier is then read-only in the settings screen.
	ClientIDFromEnv bool `toml:"-" json:"-"`
}

// ExportConfig configures both export destinations.
type ExportConfig struct {
	OutputDir        string `toml:"output_dir" json:"output_dir"`
	SpreadsheetTitle string `toml:"spreadsheet_title" json:"spreadsheet_title"`
	SheetTitle       string `toml:"sheet_title" json:"sheet_title"`
	StatusClearSecs  int    `toml:"status_clear_secs" json:"status_clear_secs"`
}

// StorageConfig locates the key-value database.
type StorageConfig struct {
	Path string `toml:"path" json:"path"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	defaultModel            = "gemini-2.5-flash"
	defaultDiscoveryURL     = "https://accounts.google.com/.well-known/openid-configuration"
	defaultSheetsURL        = "https://sheets.googleapis.com/v4/spreadsheets"
	defaultCallbackTimeout  = 180
	defaultSpreadsheetTitle = "Gemini Sheets Exporter"
	defaultSheetTitle       = "Conversations"
	defaultStatusClearSecs  = 4
	defaultLogLevel         = "info"
)

// Default returns a Config with default values.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".gemsheets"
	}
	return &Config{
		Gemini: GeminiConfig{
			Model: defaultModel,
		},
		Google: GoogleConfig{
			DiscoveryURL:        defaultDiscoveryURL,
			SheetsURL:           defaultSheetsURL,
			CallbackTimeoutSecs: defaultCallbackTimeout,
		},
		Export: ExportConfig{
			OutputDir:        ".",
			SpreadsheetTitle: defaultSpreadsheetTitle,
			SheetTitle:       defaultSheetTitle,
			StatusClearSecs:  defaultStatusClearSecs,
		},
		Storage: StorageConfig{
			Path: filepath.Join(dir, "state.db"),
		},
		Log: LogConfig{
			Level: defaultLogLevel,
			File:  filepath.Join(dir, "gemsheets.log"),
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the gemsheets configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".gemsheets"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ensureSecurePermissions tightens a config file to 0600.
// SECURITY: The file may hold the API key and client secret.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.gemsheets. Tries TOML first, then JSON,
// and falls back to defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	return finish(Default())
}

// LoadFromPath loads configuration from a specific file. Files ending in
// .json are read as JSON; anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	// SECURITY: Check and fix file permissions if needed
	if err := ensureSecurePermissions(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config from %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config from %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config from %s: %w", path, err)
		}
	}

	fillDefaults(cfg)
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = defaults.Gemini.Model
	}

	if cfg.Google.DiscoveryURL == "" {
		cfg.Google.DiscoveryURL = defaults.Google.DiscoveryURL
	}
	if cfg.Google.SheetsURL == "" {
		cfg.Google.SheetsURL = defaults.Google.SheetsURL
	}
	if cfg.Google.CallbackTimeoutSecs == 0 {
		cfg.Google.CallbackTimeoutSecs = defaults.Google.CallbackTimeoutSecs
	}

	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = defaults.Export.OutputDir
	}
	if cfg.Export.SpreadsheetTitle == "" {
		cfg.Export.SpreadsheetTitle = defaults.Export.SpreadsheetTitle
	}
	if cfg.Export.SheetTitle == "" {
		cfg.Export.SheetTitle = defaults.Export.SheetTitle
	}
	if cfg.Export.StatusClearSecs == 0 {
		cfg.Export.StatusClearSecs = defaults.Export.StatusClearSecs
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaults.Storage.Path
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.File == "" {
		cfg.Log.File = defaults.Log.File
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path. Values that came from the environment are not
// written.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	out := *cfg
	if out.Google.ClientIDFromEnv {
		out.Google.ClientID = ""
	}

	var buf bytes.Buffer
	buf.WriteString("# gemsheets configuration file\n")
	buf.WriteString("# GEMINI_API_KEY and GOOGLE_CLIENT_ID in the environment take precedence.\n\n")
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
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

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if strings.TrimSpace(c.Gemini.Model) == "" {
		errs = append(errs, ValidationError{Field: "gemini.model", Message: "must not be empty"})
	}

	for field, raw := range map[string]string{
		"google.discovery_url": c.Google.DiscoveryURL,
		"google.sheets_url":    c.Google.SheetsURL,
	} {
		if err := validateHTTPURL(raw); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
		}
	}

	if c.Google.CallbackTimeoutSecs < 10 || c.Google.CallbackTimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "google.callback_timeout_secs",
			Message: fmt.Sprintf("invalid timeout %d, must be between 10 and 3600", c.Google.CallbackTimeoutSecs),
		})
	}

	if c.Export.StatusClearSecs < 1 || c.Export.StatusClearSecs > 60 {
		errs = append(errs, ValidationError{
			Field:   "export.status_clear_secs",
			Message: fmt.Sprintf("invalid delay %d, must be between 1 and 60", c.Export.StatusClearSecs),
		})
	}
	if strings.TrimSpace(c.Export.SheetTitle) == "" {
		errs = append(errs, ValidationError{Field: "export.sheet_title", Message: "must not be empty"})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme '%s', must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL '%s' has no host", raw)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - GEMINI_API_KEY (or API_KEY): overrides gemini.api_key
//   - GEMSHEETS_MODEL: overrides gemini.model
//   - GOOGLE_CLIENT_ID: overrides google.client_id and locks it
//   - GOOGLE_CLIENT_SECRET: overrides google.client_secret
//   - GEMSHEETS_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	} else if key := os.Getenv("API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}

	if model := os.Getenv("GEMSHEETS_MODEL"); model != "" {
		c.Gemini.Model = model
	}

	if id := strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")); id != "" {
		c.Google.ClientID = id
		c.Google.ClientIDFromEnv = true
	}

	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		c.Google.ClientSecret = secret
	}

	if level := os.Getenv("GEMSHEETS_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// ResolveClientID picks the client identifier to use: the environment value,
// then saved (from the settings screen), then the config file.
func (c *Config) ResolveClientID(saved string) string {
	if c.Google.ClientIDFromEnv {
		return c.Google.ClientID
	}
	if saved = strings.TrimSpace(saved); saved != "" {
		return saved
	}
	return strings.TrimSpace(c.Google.ClientID)
}

// CallbackTimeout returns the sign-in redirect timeout.
func (c *Config) CallbackTimeout() time.Duration {
	return time.Duration(c.Google.CallbackTimeoutSecs) * time.Second
}

// StatusClearDelay returns how long export notices stay visible.
func (c *Config) StatusClearDelay() time.Duration {
	return time.Duration(c.Export.StatusClearSecs) * time.Second
}

// String returns the config as indented JSON with secrets redacted.
func (c *Config) String() string {
	safe := *c
	if safe.Gemini.APIKey != "" {
		safe.Gemini.APIKey = "[REDACTED]"
	}
	if safe.Google.ClientSecret != "" {
		safe.Google.ClientSecret = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
