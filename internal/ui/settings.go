// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/gemsheets-tui/internal/auth"
)

// copyFeedbackDelay is how long "Copied!" stays visible.
const copyFeedbackDelay = 2 * time.Second

// =============================================================================
// OVERLAY
// =============================================================================

// openSettings shows the overlay and moves focus to the client ID input.
func (m *Model) openSettings() tea.Cmd {
	if m.settingsOpen {
		return nil
	}
	m.settingsOpen = true
	m.settingsErr = ""
	m.clientInput.SetValue(m.clientID)
	m.input.Blur()
	if m.deps.ClientIDLocked {
		return nil
	}
	return m.clientInput.Focus()
}

func (m *Model) closeSettings() tea.Cmd {
	m.settingsOpen = false
	m.clientInput.Blur()
	return m.input.Focus()
}

// handleSettingsKey handles keys while the overlay is open.
func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.settingsKeys.Close):
		return m, m.closeSettings()

	case key.Matches(msg, m.settingsKeys.Save):
		if m.deps.ClientIDLocked {
			return m, nil
		}
		return m, m.saveClientID(m.clientInput.Value())

	case key.Matches(msg, m.settingsKeys.Connect):
		if m.auth.SignedIn {
			return m, nil
		}
		return m, m.signIn()

	case key.Matches(msg, m.settingsKeys.Disconnect):
		if !m.auth.SignedIn {
			return m, nil
		}
		return m, m.signOut()

	case key.Matches(msg, m.settingsKeys.CopyOrigin):
		return m, m.copyOrigin()
	}

	if m.deps.ClientIDLocked {
		return m, nil
	}
	var cmd tea.Cmd
	m.clientInput, cmd = m.clientInput.Update(msg)
	return m, cmd
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) saveClientID(raw string) tea.Cmd {
	ident, store, ctx := m.deps.Auth, m.deps.ClientIDs, m.ctx
	return func() tea.Msg {
		id, err := applyClientID(ctx, ident, store, raw)
		return clientIDAppliedMsg{id: id, err: err}
	}
}

func (m Model) signIn() tea.Cmd {
	ident, ctx := m.deps.Auth, m.ctx
	return func() tea.Msg {
		return signInMsg{err: ident.SignIn(ctx)}
	}
}

func (m Model) signOut() tea.Cmd {
	ident := m.deps.Auth
	return func() tea.Msg {
		ident.SignOut()
		return authStateMsg{state: ident.State()}
	}
}

func (m Model) copyOrigin() tea.Cmd {
	copyText := m.deps.CopyText
	return func() tea.Msg {
		return copyResultMsg{err: copyText(auth.LoopbackOrigin)}
	}
}

func clearCopyAfter(seq int) tea.Cmd {
	return tea.Tick(copyFeedbackDelay, func(time.Time) tea.Msg {
		return copyClearMsg{seq: seq}
	})
}

// handleConfigReload re-applies the client identifier from a reloaded config
// file. The environment and the saved identifier still take precedence.
func (m Model) handleConfigReload(msg configReloadedMsg) tea.Cmd {
	if msg.err != nil {
		m.log.Warn("config reload failed", zap.Error(msg.err))
		return nil
	}
	if m.deps.ClientIDLocked || msg.cfg == nil {
		return nil
	}

	ident, store, ctx, log := m.deps.Auth, m.deps.ClientIDs, m.ctx, m.log
	cfg := msg.cfg
	return func() tea.Msg {
		saved, err := store.ClientID(ctx)
		if err != nil {
			log.Warn("saved client ID unavailable", zap.Error(err))
		}
		id := cfg.ResolveClientID(saved)
		if id == ident.ClientID() {
			return nil
		}
		log.Info("client ID changed by config reload")
		switchClientID(ident, id)
		return clientIDAppliedMsg{id: id}
	}
}

// =============================================================================
// CLIENT IDENTIFIER CHANGES
// =============================================================================

// applyClientID saves raw as the client identifier and rebuilds the token
// client for it. A signed-in user is signed out first when the identifier
// changes.
func applyClientID(ctx context.Context, ident Identity, store ClientIDStore, raw string) (string, error) {
	id := strings.TrimSpace(raw)
	signOutIfChanged(ident, id)

	saved, err := store.SaveClientID(ctx, id)
	if err != nil {
		return "", err
	}
	ident.SetClientID(saved)
	return saved, nil
}

// switchClientID applies id without saving it.
func switchClientID(ident Identity, id string) {
	signOutIfChanged(ident, id)
	ident.SetClientID(id)
}

func signOutIfChanged(ident Identity, id string) {
	if ident.State().SignedIn && id != ident.ClientID() {
		ident.SignOut()
	}
}
