// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sheets is a minimal Google Sheets v4 REST client.
//
// It covers the three calls an export needs: creating a spreadsheet,
// writing a fixed range, and appending rows. Every call takes the caller's
// bearer token; nothing is cached.
package sheets
