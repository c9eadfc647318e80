// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the gemsheets command tree.
//
// # Commands
//
//   - gemsheets, gemsheets tui: full-screen chat with CSV and Sheets export
//   - gemsheets ask <prompt...>: stream one answer to stdout
//   - gemsheets chat: line-mode chat (/csv saves the transcript, /quit exits)
//   - gemsheets config show|path|init|set-client-id|clear-client-id
//   - gemsheets version
//
// # Global Flags
//
//	--config PATH      config file (default ~/.gemsheets/config.toml)
//	--ephemeral        keep saved settings in memory only
//	--log-level LEVEL  debug, info, warn or error
//
// Every command builds the same component graph through newApp: config,
// logging, key-value storage, the Gemini provider, and the chat, identity and
// export controllers.
package cli
