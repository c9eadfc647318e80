// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/jeranaias/gemsheets-tui/internal/auth"
	"github.com/jeranaias/gemsheets-tui/internal/config"
)

// =============================================================================
// CONTROLLER MESSAGES
// =============================================================================

// chatChangedMsg signals that the transcript or chat state changed.
type chatChangedMsg struct{}

// chatReadyMsg reports the outcome of chat initialization.
type chatReadyMsg struct{ err error }

// sendDoneMsg reports that a send finished.
type sendDoneMsg struct {
	accepted bool
	err      error
}

// authStateMsg carries a new identity state.
type authStateMsg struct{ state auth.State }

// authLoadedMsg reports the outcome of loading provider metadata.
type authLoadedMsg struct{ err error }

// signInMsg reports that a token request was started or refused.
type signInMsg struct{ err error }

// clientIDAppliedMsg reports a client identifier change from settings or the
// config file.
type clientIDAppliedMsg struct {
	id  string
	err error
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// noticeMsg carries the current export notice text.
type noticeMsg struct{ text string }

// csvDoneMsg reports a finished local export.
type csvDoneMsg struct {
	path string
	err  error
}

// sheetsDoneMsg reports a finished remote export.
type sheetsDoneMsg struct{ err error }

// openSettingsMsg asks the view to show the settings overlay.
type openSettingsMsg struct{}

// =============================================================================
// SETTINGS MESSAGES
// =============================================================================

// copyResultMsg reports a clipboard copy.
type copyResultMsg struct{ err error }

// copyClearMsg hides the copy feedback set with the same seq.
type copyClearMsg struct{ seq int }

// configReloadedMsg carries a reloaded config file.
type configReloadedMsg struct {
	cfg *config.Config
	err error
}

// =============================================================================
// NOTIFIER
// =============================================================================

// chatRefreshRate caps transcript redraws while a reply streams. The final
// state is always drawn when the send completes.
const chatRefreshRate = 30

// Notifier forwards controller callbacks to a running program. Callbacks made
// before Attach are dropped.
type Notifier struct {
	program atomic.Pointer[tea.Program]
	limiter *rate.Limiter
}

// NewNotifier creates a detached notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		limiter: rate.NewLimiter(rate.Every(time.Second/chatRefreshRate), 1),
	}
}

// Attach starts forwarding to p.
func (n *Notifier) Attach(p *tea.Program) {
	n.program.Store(p)
}

func (n *Notifier) send(msg tea.Msg) {
	if p := n.program.Load(); p != nil {
		p.Send(msg)
	}
}

// ChatChanged is the chat controller's OnChange hook.
func (n *Notifier) ChatChanged() {
	if n.limiter.Allow() {
		n.send(chatChangedMsg{})
	}
}

// AuthChanged is the identity controller's OnChange hook.
func (n *Notifier) AuthChanged(state auth.State) {
	n.send(authStateMsg{state: state})
}

// NoticeChanged is the export notice's change hook.
func (n *Notifier) NoticeChanged(text string) {
	n.send(noticeMsg{text: text})
}

// OpenSettings is the remote exporter's settings opener.
func (n *Notifier) OpenSettings() {
	n.send(openSettingsMsg{})
}

// ConfigChanged is the config watcher's callback.
func (n *Notifier) ConfigChanged(cfg *config.Config, err error) {
	n.send(configReloadedMsg{cfg: cfg, err: err})
}
