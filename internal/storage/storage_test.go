// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"testing"
)

// =============================================================================
// KV CONTRACT
// =============================================================================

func kvImplementations(t *testing.T) map[string]KV {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "state.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]KV{
		"memory": NewMemoryKV(),
		"sqlite": sqlite,
	}
}

func TestKV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v, err %v; want false, nil", ok, err)
			}

			if err := kv.Set(ctx, "k", "v1"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := kv.Set(ctx, "k", "v2"); err != nil {
				t.Fatalf("Set (overwrite) failed: %v", err)
			}

			got, ok, err := kv.Get(ctx, "k")
			if err != nil || !ok {
				t.Fatalf("Get(k) = ok %v, err %v", ok, err)
			}
			if got != "v2" {
				t.Errorf("Get(k) = %q, want %q", got, "v2")
			}

			if err := kv.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if err := kv.Delete(ctx, "k"); err != nil {
				t.Errorf("second Delete failed: %v", err)
			}
			if _, ok, _ := kv.Get(ctx, "k"); ok {
				t.Error("key still present after Delete")
			}
		})
	}
}

func TestSQLiteKV_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	kv, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if kv.Path() != path {
		t.Errorf("Path() = %q, want %q", kv.Path(), path)
	}
	if err := kv.Set(ctx, ClientIDKey, "123-abc.apps.googleusercontent.com"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	kv, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer kv.Close()

	got, ok, err := kv.Get(ctx, ClientIDKey)
	if err != nil || !ok {
		t.Fatalf("Get after reopen = ok %v, err %v", ok, err)
	}
	if got != "123-abc.apps.googleusercontent.com" {
		t.Errorf("Get after reopen = %q", got)
	}
}

// =============================================================================
// TARGETS
// =============================================================================

func TestTargetKey(t *testing.T) {
	tests := []struct {
		identity string
		want     string
	}{
		{"user@example.com", "sheets.spreadsheetId.user@example.com"},
		{"", "sheets.spreadsheetId.default"},
		{"   ", "sheets.spreadsheetId.default"},
	}
	for _, tt := range tests {
		if got := TargetKey(tt.identity); got != tt.want {
			t.Errorf("TargetKey(%q) = %q, want %q", tt.identity, got, tt.want)
		}
	}
}

func TestTargets_LookupAndStore(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	targets := NewTargets(kv)

	if _, ok, err := targets.Lookup(ctx, "a@example.com"); ok || err != nil {
		t.Fatalf("Lookup on empty store = ok %v, err %v", ok, err)
	}

	if err := targets.Store(ctx, "a@example.com", "sheet-a"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := targets.Store(ctx, "", "sheet-default"); err != nil {
		t.Fatalf("Store(default) failed: %v", err)
	}

	id, ok, err := targets.Lookup(ctx, "a@example.com")
	if err != nil || !ok || id != "sheet-a" {
		t.Errorf("Lookup(a) = %q, %v, %v; want sheet-a, true, nil", id, ok, err)
	}
	id, ok, _ = targets.Lookup(ctx, "")
	if !ok || id != "sheet-default" {
		t.Errorf("Lookup(default) = %q, %v", id, ok)
	}
	if _, ok, _ := targets.Lookup(ctx, "b@example.com"); ok {
		t.Error("identities must not share a target")
	}

	raw, _, _ := kv.Get(ctx, "sheets.spreadsheetId.a@example.com")
	if raw != "sheet-a" {
		t.Errorf("raw key value = %q, want sheet-a", raw)
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestSettings_ClientID(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	settings := NewSettings(kv)

	if id, err := settings.ClientID(ctx); err != nil || id != "" {
		t.Fatalf("ClientID on empty store = %q, %v", id, err)
	}

	saved, err := settings.SaveClientID(ctx, "  42-abc.apps.googleusercontent.com \n")
	if err != nil {
		t.Fatalf("SaveClientID failed: %v", err)
	}
	if saved != "42-abc.apps.googleusercontent.com" {
		t.Errorf("SaveClientID returned %q", saved)
	}
	if id, _ := settings.ClientID(ctx); id != saved {
		t.Errorf("ClientID = %q, want %q", id, saved)
	}

	if _, err := settings.SaveClientID(ctx, "   "); err != nil {
		t.Fatalf("SaveClientID(blank) failed: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, ClientIDKey); ok {
		t.Error("blank client ID should remove the entry")
	}
}
