// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderModel Sender = "model"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// Label returns the column label used by exports.
func (s Sender) Label() string {
	if s == SenderUser {
		return "User"
	}
	return "Gemini"
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// WelcomeIDPrefix marks the seeded welcome turn. Exports skip model turns
// carrying it.
const WelcomeIDPrefix = "gemini-initial-"

// Message is a single chat turn.
type Message struct {
	ID     string `json:"id"`
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// NewWelcomeMessage creates the model turn that seeds a fresh session.
func NewWelcomeMessage(text string) Message {
	return Message{
		ID:     fmt.Sprintf("%s%d", WelcomeIDPrefix, time.Now().UnixMilli()),
		Sender: SenderModel,
		Text:   text,
	}
}

// NewUserMessage creates a user turn.
func NewUserMessage(text string) Message {
	return Message{ID: "user-" + uuid.NewString(), Sender: SenderUser, Text: text}
}

// NewModelPlaceholder creates the empty model turn that a stream fills in.
func NewModelPlaceholder() Message {
	return Message{ID: "model-" + uuid.NewString(), Sender: SenderModel}
}

// IsWelcome reports whether m is the seeded welcome turn.
func (m Message) IsWelcome() bool {
	return m.Sender == SenderModel && strings.HasPrefix(m.ID, WelcomeIDPrefix)
}
