// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for gemsheets.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, validation, and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - GeminiConfig: API key and model
//   - GoogleConfig: OAuth client and Google endpoints
//   - ExportConfig: CSV directory and spreadsheet layout
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GEMINI_API_KEY, GOOGLE_CLIENT_ID, GEMSHEETS_*)
//   - ~/.gemsheets/config.toml
//   - ~/.gemsheets/config.json
//   - Built-in defaults
//
// The Google client identifier has one more source: the value saved from the
// settings screen, which sits between the environment and the file. See
// Config.ResolveClientID.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	model := cfg.Gemini.Model
package config
