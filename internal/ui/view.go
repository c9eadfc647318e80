// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/gemsheets-tui/internal/auth"
	"github.com/jeranaias/gemsheets-tui/internal/model"
	"github.com/jeranaias/gemsheets-tui/internal/util"
)

const (
	appTitle   = "Gemini Sheets Exporter"
	savingText = "Saving to Google Sheets..."
)

// newRenderer builds a markdown renderer for the given width. A nil renderer
// makes model turns render as plain text.
func newRenderer(theme *Theme, width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.MarkdownStyle),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return nil
	}
	return r
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(m.theme.Notice.Render(util.TruncateWidth(util.SingleLine(m.notice), m.width)))
	}
	b.WriteString("\n")

	if m.settingsOpen {
		b.WriteString(m.renderSettings())
		return b.String()
	}

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.chatErr != "":
		b.WriteString(m.theme.Error.Render(util.TruncateWidth(util.SingleLine(m.chatErr), m.width)))
	case m.loading():
		b.WriteString(m.theme.Muted.Render(m.spinner.View() + " Gemini is responding..."))
	case m.exporting:
		b.WriteString(m.theme.Muted.Render(m.spinner.View() + " " + savingText))
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render(appTitle)

	var account string
	if m.auth.SignedIn && m.auth.User != nil {
		account = m.theme.Account.Render(profileLine(m.auth.User, max(m.width-lipgloss.Width(title)-2, 0)))
	} else {
		account = m.theme.Muted.Render("not connected")
	}

	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(account), 1)
	return title + strings.Repeat(" ", gap) + account
}

// renderTranscript renders every turn in order.
func (m Model) renderTranscript() string {
	var b strings.Builder
	last := len(m.messages) - 1
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		typing := m.loading() && i == last && msg.Sender == model.SenderModel && msg.Text == ""
		b.WriteString(m.renderMessage(msg, typing))
	}
	return b.String()
}

func (m Model) renderMessage(msg model.Message, typing bool) string {
	if msg.Sender == model.SenderUser {
		return m.theme.UserLabel.Render("You") + "\n" +
			m.theme.UserText.Render(wrap(msg.Text, max(m.width-2, 10))) + "\n"
	}

	label := m.theme.ModelLabel.Render(model.SenderModel.Label())
	if typing {
		return label + "\n  " + m.spinner.View() + "\n"
	}
	if m.renderer != nil {
		if out, err := m.renderer.Render(msg.Text); err == nil {
			return label + "\n" + strings.TrimRight(out, "\n") + "\n"
		}
	}
	return label + "\n" + m.theme.UserText.Render(wrap(msg.Text, max(m.width-2, 10))) + "\n"
}

func wrap(text string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(text)
}

// =============================================================================
// SETTINGS OVERLAY
// =============================================================================

func (m Model) renderSettings() string {
	inner := max(m.width-8, 20)
	var b strings.Builder

	b.WriteString(m.theme.Title.Render("Settings"))
	b.WriteString("\n\n")

	b.WriteString(m.theme.Muted.Render("Google Client ID"))
	b.WriteString("\n")
	if m.deps.ClientIDLocked {
		b.WriteString("  " + util.TruncateWidth(m.clientID, inner-2))
		b.WriteString("\n")
		b.WriteString(m.theme.Muted.Render("Client ID is configured via environment variables and cannot be edited here."))
	} else {
		b.WriteString(m.clientInput.View())
		b.WriteString("\n")
		b.WriteString(m.theme.Muted.Render("Used for Google integrations like exporting to Google Sheets."))
	}
	b.WriteString("\n")
	if m.settingsErr != "" {
		b.WriteString(m.theme.Error.Render(m.settingsErr))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.theme.Muted.Render("Loopback Redirect Origin"))
	b.WriteString("\n")
	b.WriteString("  " + auth.LoopbackOrigin)
	if m.copyStatus != "" {
		b.WriteString("  " + m.theme.Notice.Render(m.copyStatus))
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Muted.Render("Use a Desktop OAuth client in the Google Cloud Console; it accepts loopback redirects on any port."))
	b.WriteString("\n\n")

	b.WriteString(m.theme.Title.Render("Google Account Connection"))
	b.WriteString("\n")
	switch {
	case m.clientID == "":
		b.WriteString(m.theme.Muted.Render("Please save a Google Client ID above to connect your account."))
	case m.auth.SignedIn && m.auth.User != nil:
		b.WriteString(m.theme.Account.Render(profileLine(m.auth.User, inner)))
	case m.auth.Initialized:
		b.WriteString("Connect Google Account (C-l)")
	default:
		b.WriteString(m.theme.Muted.Render("Initializing..."))
	}
	b.WriteString("\n")
	if m.auth.Error != "" && !m.auth.SignedIn {
		b.WriteString(m.theme.Error.Render(m.auth.Error))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.settingsKeys))

	return m.theme.Overlay.Width(max(m.width-4, 24)).Render(b.String())
}

// profileLine renders "Name <email>" fitted to width cells.
func profileLine(u *auth.UserProfile, width int) string {
	line := u.Email
	if u.Name != "" {
		line = u.Name + " <" + u.Email + ">"
	}
	return util.TruncateWidth(line, width)
}
