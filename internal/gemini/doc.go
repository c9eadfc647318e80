// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini provides the Gemini chat session used by the chat controller.
//
// The package wraps google.golang.org/genai behind two small interfaces so the
// controller can be driven by fakes in tests:
//
//   - Provider starts chat sessions for a model
//   - Session streams the reply to one user turn as text chunks
//
// # Usage
//
//	client, err := gemini.NewClient(ctx, apiKey)
//	if errors.Is(err, gemini.ErrMissingAPIKey) {
//	    // configuration error
//	}
//	session, err := client.StartChat(ctx, gemini.DefaultModel)
//	for chunk, err := range session.SendMessageStream(ctx, "hello") {
//	    ...
//	}
package gemini
