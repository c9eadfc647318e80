// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TruncateWidth cuts s to at most maxWidth terminal columns, ending with an
// ellipsis when anything was removed. Wide (CJK) characters count as two.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return runewidth.Truncate(s, 1, "")
	}
	return runewidth.Truncate(s, maxWidth, "…")
}

// SingleLine collapses s onto one line for status displays.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
