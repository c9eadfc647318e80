// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"strings"
)

// Keys used in the store.
const (
	// TargetKeyPrefix prefixes the spreadsheet ID saved per identity.
	TargetKeyPrefix = "sheets.spreadsheetId."
	// DefaultIdentity is used when the signed-in user has no email.
	DefaultIdentity = "default"
	// ClientIDKey holds the saved Google client identifier.
	ClientIDKey = "googleClientId"
)

// =============================================================================
// TARGETS
// =============================================================================

// Targets maps an identity to the spreadsheet exports are appended to.
type Targets struct {
	kv KV
}

// NewTargets wraps kv.
func NewTargets(kv KV) *Targets {
	return &Targets{kv: kv}
}

// TargetKey returns the store key for identity. A blank identity maps to
// DefaultIdentity.
func TargetKey(identity string) string {
	if strings.TrimSpace(identity) == "" {
		identity = DefaultIdentity
	}
	return TargetKeyPrefix + identity
}

// Lookup returns the saved spreadsheet ID for identity.
func (t *Targets) Lookup(ctx context.Context, identity string) (string, bool, error) {
	id, ok, err := t.kv.Get(ctx, TargetKey(identity))
	if err != nil || !ok || id == "" {
		return "", false, err
	}
	return id, true, nil
}

// Store saves the spreadsheet ID for identity.
func (t *Targets) Store(ctx context.Context, identity, id string) error {
	return t.kv.Set(ctx, TargetKey(identity), id)
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings holds user-editable values persisted across runs.
type Settings struct {
	kv KV
}

// NewSettings wraps kv.
func NewSettings(kv KV) *Settings {
	return &Settings{kv: kv}
}

// ClientID returns the saved client identifier, or "".
func (s *Settings) ClientID(ctx context.Context) (string, error) {
	id, _, err := s.kv.Get(ctx, ClientIDKey)
	return id, err
}

// SaveClientID trims and saves id. A blank id removes the entry.
func (s *Settings) SaveClientID(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", s.kv.Delete(ctx, ClientIDKey)
	}
	return id, s.kv.Set(ctx, ClientIDKey, id)
}
