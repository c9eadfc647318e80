// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable ApplyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GEMINI_API_KEY", "API_KEY", "GEMSHEETS_MODEL",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GEMSHEETS_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("Gemini.Model = %q, want gemini-2.5-flash", cfg.Gemini.Model)
	}
	if cfg.StatusClearDelay() != 4*time.Second {
		t.Errorf("StatusClearDelay() = %v, want 4s", cfg.StatusClearDelay())
	}
}

func TestLoadFromPath_TOMLFillsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[gemini]
api_key = "file-key"

[google]
client_id = "1-file.apps.googleusercontent.com"

[export]
output_dir = "/tmp/exports"
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Gemini.APIKey != "file-key" {
		t.Errorf("Gemini.APIKey = %q, want file-key", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("Gemini.Model = %q, want default", cfg.Gemini.Model)
	}
	if cfg.Export.OutputDir != "/tmp/exports" {
		t.Errorf("Export.OutputDir = %q", cfg.Export.OutputDir)
	}
	if cfg.Export.SheetTitle != "Conversations" {
		t.Errorf("Export.SheetTitle = %q, want Conversations", cfg.Export.SheetTitle)
	}
	if cfg.Google.ClientIDFromEnv {
		t.Error("ClientIDFromEnv should be false without GOOGLE_CLIENT_ID")
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"gemini":{"model":"gemini-2.5-pro"},"log":{"level":"debug"}}`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Gemini.Model != "gemini-2.5-pro" {
		t.Errorf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadFromPath_FixesPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[gemini]\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	info, _ := os.Stat(path)
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoad_UsesHomeDirectory(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load without a file failed: %v", err)
	}
	if cfg.Storage.Path != filepath.Join(home, ".gemsheets", "state.db") {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}

	if err := os.MkdirAll(filepath.Join(home, ".gemsheets"), 0700); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(home, ".gemsheets", "config.toml"), "[gemini]\nmodel = \"from-file\"\n")

	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Gemini.Model != "from-file" {
		t.Errorf("Gemini.Model = %q, want from-file", cfg.Gemini.Model)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("API_KEY", "ignored")
	t.Setenv("GEMSHEETS_MODEL", "gemini-env")
	t.Setenv("GOOGLE_CLIENT_ID", " 2-env.apps.googleusercontent.com ")
	t.Setenv("GOOGLE_CLIENT_SECRET", "shh")
	t.Setenv("GEMSHEETS_LOG_LEVEL", "warn")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("Gemini.APIKey = %q, want env-key", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.Model != "gemini-env" {
		t.Errorf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if cfg.Google.ClientID != "2-env.apps.googleusercontent.com" || !cfg.Google.ClientIDFromEnv {
		t.Errorf("Google.ClientID = %q, FromEnv = %v", cfg.Google.ClientID, cfg.Google.ClientIDFromEnv)
	}
	if cfg.Google.ClientSecret != "shh" {
		t.Errorf("Google.ClientSecret = %q", cfg.Google.ClientSecret)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestApplyEnvOverrides_APIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "fallback-key")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Gemini.APIKey != "fallback-key" {
		t.Errorf("Gemini.APIKey = %q, want fallback-key", cfg.Gemini.APIKey)
	}
}

func TestResolveClientID(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		fromEnv bool
		saved   string
		want    string
	}{
		{"env wins over saved", "1-env.apps.googleusercontent.com", true, "2-saved.apps.googleusercontent.com", "1-env.apps.googleusercontent.com"},
		{"saved wins over file", "3-file.apps.googleusercontent.com", false, " 2-saved.apps.googleusercontent.com ", "2-saved.apps.googleusercontent.com"},
		{"file as last resort", "3-file.apps.googleusercontent.com", false, "", "3-file.apps.googleusercontent.com"},
		{"nothing configured", "", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Google.ClientID = tt.file
			cfg.Google.ClientIDFromEnv = tt.fromEnv
			if got := cfg.ResolveClientID(tt.saved); got != tt.want {
				t.Errorf("ResolveClientID(%q) = %q, want %q", tt.saved, got, tt.want)
			}
		})
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate_Errors(t *testing.T) {
	cfg := Default()
	cfg.Gemini.Model = " "
	cfg.Google.SheetsURL = "ftp://example.com"
	cfg.Google.CallbackTimeoutSecs = 5
	cfg.Export.StatusClearSecs = 0
	cfg.Log.Level = "verbose"

	err := cfg.Validate()
	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Validate() = %v, want ValidateErrors", err)
	}

	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, want := range []string{
		"gemini.model", "google.sheets_url", "google.callback_timeout_secs",
		"export.status_clear_secs", "log.level",
	} {
		if !fields[want] {
			t.Errorf("missing validation error for %s (got %v)", want, err)
		}
	}
	if fields["google.discovery_url"] {
		t.Error("discovery_url is valid and should not be reported")
	}
}

func TestLoadFromPath_InvalidConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[log]\nlevel = \"loud\"\n")

	_, err := LoadFromPath(path)
	if err == nil || !strings.Contains(err.Error(), "log.level") {
		t.Errorf("LoadFromPath() error = %v, want log.level failure", err)
	}
}

// =============================================================================
// SAVE AND DISPLAY
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.Gemini.Model = "gemini-2.5-pro"
	cfg.Google.ClientID = "9-env.apps.googleusercontent.com"
	cfg.Google.ClientIDFromEnv = true

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, _ := os.Stat(path)
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("perm = %o, want 600", perm)
		}
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Gemini.Model != "gemini-2.5-pro" {
		t.Errorf("Gemini.Model = %q", loaded.Gemini.Model)
	}
	if loaded.Google.ClientID != "" {
		t.Errorf("env-sourced client ID was written: %q", loaded.Google.ClientID)
	}
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Gemini.APIKey = "AIza-secret"
	cfg.Google.ClientSecret = "GOCSPX-secret"

	s := cfg.String()
	if strings.Contains(s, "AIza-secret") || strings.Contains(s, "GOCSPX-secret") {
		t.Errorf("String() leaked a secret:\n%s", s)
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Error("String() should mark redacted fields")
	}
	if cfg.Gemini.APIKey != "AIza-secret" {
		t.Error("String() must not modify the config")
	}
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[gemini]\nmodel = \"before\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 8)
	err := Watch(ctx, path, func(cfg *Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writeFile(t, path, "[gemini]\nmodel = \"after\"\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Gemini.Model == "after" {
				return
			}
		case <-deadline:
			t.Fatal("config was not reloaded")
		}
	}
}
