// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestSender_Label(t *testing.T) {
	if got := SenderUser.Label(); got != "User" {
		t.Errorf("SenderUser.Label() = %q, want %q", got, "User")
	}
	if got := SenderModel.Label(); got != "Gemini" {
		t.Errorf("SenderModel.Label() = %q, want %q", got, "Gemini")
	}
}

func TestMessageIDs(t *testing.T) {
	welcome := NewWelcomeMessage("hello")
	if !strings.HasPrefix(welcome.ID, WelcomeIDPrefix) {
		t.Errorf("welcome ID %q lacks prefix %q", welcome.ID, WelcomeIDPrefix)
	}
	if !welcome.IsWelcome() {
		t.Error("welcome message should report IsWelcome")
	}

	user := NewUserMessage("hi")
	if !strings.HasPrefix(user.ID, "user-") || user.Sender != SenderUser {
		t.Errorf("unexpected user message %+v", user)
	}

	a, b := NewModelPlaceholder(), NewModelPlaceholder()
	if a.ID == b.ID {
		t.Error("placeholders should get distinct IDs")
	}
	if a.Text != "" || a.IsWelcome() {
		t.Errorf("unexpected placeholder %+v", a)
	}
}

func TestIsWelcome_RequiresModelSender(t *testing.T) {
	msg := Message{ID: WelcomeIDPrefix + "1", Sender: SenderUser}
	if msg.IsWelcome() {
		t.Error("user turns are never the welcome turn")
	}
}

// =============================================================================
// STORE TESTS
// =============================================================================

func TestStore_AppendAndSnapshot(t *testing.T) {
	s := NewStore()
	s.Append(Message{ID: "1", Sender: SenderUser, Text: "a"}, Message{ID: "2", Sender: SenderModel, Text: "b"})

	want := []Message{
		{ID: "1", Sender: SenderUser, Text: "a"},
		{ID: "2", Sender: SenderModel, Text: "b"},
	}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("Snapshot mismatch (-want +got):\n%s", diff)
	}

	snap := s.Snapshot()
	snap[0].Text = "mutated"
	if got := s.Snapshot()[0].Text; got != "a" {
		t.Errorf("Snapshot should be a copy, store now has %q", got)
	}
}

func TestStore_SetText(t *testing.T) {
	s := NewStore()
	s.Append(Message{ID: "x", Sender: SenderModel})

	if !s.SetText("x", "full") {
		t.Fatal("SetText returned false for existing ID")
	}
	if s.SetText("missing", "y") {
		t.Error("SetText returned true for unknown ID")
	}
	last, ok := s.Last()
	if !ok || last.Text != "full" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestStore_RemoveLastIf(t *testing.T) {
	s := NewStore()
	s.Append(Message{ID: "a"}, Message{ID: "b"})

	if s.RemoveLastIf("a") {
		t.Error("RemoveLastIf removed a non-final message")
	}
	if !s.RemoveLastIf("b") {
		t.Error("RemoveLastIf did not remove the final message")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	empty := NewStore()
	if empty.RemoveLastIf("a") {
		t.Error("RemoveLastIf on empty store returned true")
	}
	if _, ok := empty.Last(); ok {
		t.Error("Last() on empty store returned ok")
	}
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	s.Append(Message{ID: "old"})
	s.Reset(Message{ID: "new"})

	if diff := cmp.Diff([]Message{{ID: "new"}}, s.Snapshot()); diff != "" {
		t.Errorf("Reset mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	s.Append(Message{ID: "m", Sender: SenderModel})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetText("m", "text")
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
}
