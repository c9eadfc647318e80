// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across gemsheets.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// Display:
//   - TruncateWidth: cut a string to a terminal column budget
//
// Desktop:
//   - OpenURL: open a URL in the user's browser
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0644)
//	line := util.TruncateWidth(profile.Email, 30)
//	_ = util.OpenURL("https://docs.google.com/spreadsheets/d/" + id)
package util
