// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the chat view bindings.
type KeyMap struct {
	Send         key.Binding
	Newline      key.Binding
	ExportCSV    key.Binding
	ExportSheets key.Binding
	Settings     key.Binding
	ScrollUp     key.Binding
	ScrollDown   key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the default chat view bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter"),
			key.WithHelp("alt+enter", "newline"),
		),
		ExportCSV: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "save CSV"),
		),
		ExportSheets: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "export to Sheets"),
		),
		Settings: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "settings"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap. Disabled bindings are hidden by the help
// view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Newline, k.ExportCSV, k.ExportSheets, k.Settings, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Newline},
		{k.ExportCSV, k.ExportSheets},
		{k.ScrollUp, k.ScrollDown},
		{k.Settings, k.Quit},
	}
}

// =============================================================================
// SETTINGS KEY MAP
// =============================================================================

// SettingsKeyMap defines the settings overlay bindings.
type SettingsKeyMap struct {
	Save       key.Binding
	Connect    key.Binding
	Disconnect key.Binding
	CopyOrigin key.Binding
	Close      key.Binding
}

// DefaultSettingsKeyMap returns the default settings overlay bindings.
func DefaultSettingsKeyMap() SettingsKeyMap {
	return SettingsKeyMap{
		Save: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save client ID"),
		),
		Connect: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "connect account"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "disconnect"),
		),
		CopyOrigin: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy redirect origin"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc", "ctrl+o"),
			key.WithHelp("esc", "close"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k SettingsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.Connect, k.Disconnect, k.CopyOrigin, k.Close}
}

// FullHelp implements help.KeyMap.
func (k SettingsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
