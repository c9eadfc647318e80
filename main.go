// gemsheets - Gemini chat in the terminal with CSV and Google Sheets export.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import "github.com/jeranaias/gemsheets-tui/internal/cli"

func main() {
	cli.Execute()
}
