// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
//
// # Key Types
//
//   - Message: one turn with an opaque ID, a sender and its text
//   - Sender: who produced a turn (user or model)
//   - Store: the ordered, mutex-guarded list of turns shared by the chat
//     controller, the exporters and the view
//
// # Usage
//
//	store := model.NewStore()
//	store.Append(model.NewWelcomeMessage("Welcome!"))
//	user := model.NewUserMessage("hi")
//	store.Append(user)
//	for _, msg := range store.Snapshot() {
//	    fmt.Println(msg.Sender.Label(), msg.Text)
//	}
package model
