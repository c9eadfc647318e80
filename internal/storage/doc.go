// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local key-value persistence for gemsheets.
//
// Only two kinds of values are kept: the saved Google client identifier and
// the per-identity spreadsheet target. Access tokens are never persisted.
//
// # Key Types
//
//   - KV: the key-value contract
//   - SQLiteKV: durable store backed by modernc.org/sqlite
//   - MemoryKV: process-local store for tests and --ephemeral runs
//   - Targets: spreadsheet ID per signed-in identity
//   - Settings: the saved client identifier
//
// # Usage
//
//	kv, err := storage.OpenSQLite(storage.DefaultPath())
//	defer kv.Close()
//
//	targets := storage.NewTargets(kv)
//	id, ok, err := targets.Lookup(ctx, "user@example.com")
//
// # Storage Location
//
// State is stored in ~/.gemsheets/state.db.
package storage
