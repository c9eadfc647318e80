// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the chat transcript out of the application.
//
// Two destinations are supported: a local CSV file and rows appended to a
// Google spreadsheet. Both skip the seeded welcome turn and report their
// outcome through a Notice that clears itself after a short delay.
//
// # Key Types
//
//   - LocalExporter: writes gemini-chat-history-<timestamp>.csv
//   - RemoteExporter: creates (once per identity) and appends to a spreadsheet
//   - Notice: auto-clearing status line
//
// # Usage
//
//	notice := export.NewNotice(4*time.Second, nil)
//	local := export.NewLocalExporter(dir, notice, logger)
//	path, err := local.Export(store.Snapshot())
package export
