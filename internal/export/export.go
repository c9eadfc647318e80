// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"

	"github.com/jeranaias/gemsheets-tui/internal/model"
)

// Notice texts.
const (
	MsgNothingToExport = "No conversation to export."
	MsgConnectAccount  = "Please connect your Google account. You can connect from Settings."
	MsgAuthInvalid     = "Authentication is no longer valid. Please reconnect your Google account."
	MsgCreateFailed    = "Failed to create the spreadsheet: "
	MsgExportFailed    = "Export failed: "
	MsgRemoteComplete  = "Export complete. Opening the spreadsheet."
	MsgLocalComplete   = "Saved "
)

// Sentinel errors. The matching notice has already been shown when these are
// returned.
var (
	ErrExportInFlight  = errors.New("export already in progress")
	ErrNothingToExport = errors.New("no conversation to export")
	ErrNotSignedIn     = errors.New("not signed in")
)

// =============================================================================
// FILTER
// =============================================================================

// Exportable returns the messages that belong in an export: every message
// except the seeded welcome turn.
func Exportable(msgs []model.Message) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsWelcome() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// HasConversation reports whether msgs holds more than the welcome turn.
// Exports are no-ops otherwise.
func HasConversation(msgs []model.Message) bool {
	return len(msgs) > 1
}
