// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sync"

// Store is the ordered in-memory transcript.
//
// The stream goroutine writes while the UI loop reads, so every access goes
// through the mutex. Readers get copies via Snapshot.
type Store struct {
	mu       sync.RWMutex
	messages []Message
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{messages: make([]Message, 0, 16)}
}

// Reset replaces the transcript with msgs.
func (s *Store) Reset(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(make([]Message, 0, len(msgs)+16), msgs...)
}

// Append adds messages at the end of the transcript.
func (s *Store) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
}

// SetText overwrites the text of the message with the given ID.
// Returns false if no such message exists.
func (s *Store) SetText(id, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			s.messages[i].Text = text
			return true
		}
	}
	return false
}

// RemoveLastIf removes the final message only when its ID matches.
func (s *Store) RemoveLastIf(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.messages)
	if n == 0 || s.messages[n-1].ID != id {
		return false
	}
	s.messages = s.messages[:n-1]
	return true
}

// Last returns the most recent message.
func (s *Store) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Snapshot returns a copy of the transcript in insertion order.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
