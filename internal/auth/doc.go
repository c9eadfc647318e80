// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth signs the user in to Google and keeps the identity state.
//
// Sign-in is driven by two inputs: the provider metadata (the OpenID
// discovery document) and the OAuth client identifier. The Controller moves
// through explicit phases as they arrive:
//
//	NoScript -> ScriptLoaded -> ClientReady | ClientAbsent
//
// A token client is rebuilt every time the identifier changes. Token
// callbacks from a client that has since been replaced are dropped, so a
// stale token is never attributed to a new identifier.
//
// The access token lives only in memory.
package auth
