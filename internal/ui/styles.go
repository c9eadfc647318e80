// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// COLORS
// =============================================================================

var (
	colorPurple  = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	colorCyan    = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}
	colorEmerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	colorRose    = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	colorAmber   = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	colorOverlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
)

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styles used by the view.
type Theme struct {
	IsDark bool

	// MarkdownStyle is the glamour standard style name for model turns.
	MarkdownStyle string

	Title      lipgloss.Style
	Account    lipgloss.Style
	Notice     lipgloss.Style
	Error      lipgloss.Style
	UserLabel  lipgloss.Style
	ModelLabel lipgloss.Style
	UserText   lipgloss.Style
	Muted      lipgloss.Style
	Overlay    lipgloss.Style
	Success    lipgloss.Style
}

// NewTheme detects the terminal background and builds a theme for it.
func NewTheme() *Theme {
	return newTheme(termenv.HasDarkBackground())
}

// PlainTheme returns a theme whose markdown renderer emits no escape codes.
func PlainTheme() *Theme {
	t := newTheme(true)
	t.MarkdownStyle = styles.NoTTYStyle
	return t
}

func newTheme(isDark bool) *Theme {
	md := styles.LightStyle
	if isDark {
		md = styles.DarkStyle
	}
	return &Theme{
		IsDark:        isDark,
		MarkdownStyle: md,
		Title:         lipgloss.NewStyle().Bold(true).Foreground(colorPurple),
		Account:       lipgloss.NewStyle().Foreground(colorEmerald),
		Notice:        lipgloss.NewStyle().Foreground(colorAmber),
		Error:         lipgloss.NewStyle().Foreground(colorRose),
		UserLabel:     lipgloss.NewStyle().Bold(true).Foreground(colorCyan),
		ModelLabel:    lipgloss.NewStyle().Bold(true).Foreground(colorPurple),
		UserText:      lipgloss.NewStyle().PaddingLeft(2),
		Muted:         lipgloss.NewStyle().Foreground(colorMuted),
		Overlay: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorOverlay).
			Padding(1, 2),
		Success: lipgloss.NewStyle().Foreground(colorEmerald),
	}
}
