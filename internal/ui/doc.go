// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the gemsheets terminal interface.
//
// The bubbletea update loop is the only place UI state changes. Chat sends,
// exports and sign-in run in tea.Cmd goroutines; the controllers report
// progress back through a Notifier, which forwards to the running program.
//
// Layout, top to bottom:
//   - header with the connected account
//   - export status notice
//   - transcript viewport (model turns rendered as markdown)
//   - chat error line and loading spinner
//   - input box and key help
//
// ctrl+o swaps the transcript for the settings overlay.
package ui
