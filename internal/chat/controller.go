// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jeranaias/gemsheets-tui/internal/gemini"
	"github.com/jeranaias/gemsheets-tui/internal/model"
)

// DefaultWelcomeText seeds every new session.
const DefaultWelcomeText = "Welcome! I'm Gemini. How can I help you today?"

// User-facing error texts.
const (
	msgNotConfigured = "API key is not configured."
	msgInitFailed    = "Failed to initialize the chat session."
)

// ErrNotConfigured indicates the controller has no provider because no API
// key was configured.
var ErrNotConfigured = errors.New("chat provider not configured")

// =============================================================================
// STATE
// =============================================================================

// State is the controller's position in its lifecycle.
type State int32

const (
	StateUninitialized State = iota
	StateIdle
	StateSending
	StateStreaming
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Options configures a Controller.
type Options struct {
	// Model is the model identifier the session is bound to.
	Model string
	// WelcomeText is the text of the seeded welcome turn.
	WelcomeText string
	// Logger receives structured logs. Nil disables logging.
	Logger *zap.Logger
	// OnChange is called after every store or state mutation.
	OnChange func()
}

// Controller owns the chat session and mutates the transcript.
type Controller struct {
	store    *model.Store
	provider gemini.Provider
	opts     Options
	log      *zap.Logger

	state   atomic.Int32
	session gemini.Session

	mu      sync.RWMutex
	errText string
}

// New creates a controller. provider may be nil when no API key is configured;
// Initialize then fails permanently.
func New(store *model.Store, provider gemini.Provider, opts Options) *Controller {
	if opts.Model == "" {
		opts.Model = gemini.DefaultModel
	}
	if opts.WelcomeText == "" {
		opts.WelcomeText = DefaultWelcomeText
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		store:    store,
		provider: provider,
		opts:     opts,
		log:      log.Named("chat"),
	}
}

// Initialize creates the session and seeds the welcome turn. It is a no-op
// once the controller has left the Uninitialized state.
func (c *Controller) Initialize(ctx context.Context) error {
	if c.State() != StateUninitialized {
		return nil
	}
	defer c.notify()

	if c.provider == nil {
		c.setErr(msgNotConfigured)
		c.state.Store(int32(StateFailed))
		c.log.Error("no provider configured")
		return ErrNotConfigured
	}

	session, err := c.provider.StartChat(ctx, c.opts.Model)
	if err != nil {
		c.setErr(msgInitFailed)
		c.state.Store(int32(StateFailed))
		c.log.Error("session init failed", zap.Error(err))
		return fmt.Errorf("initialize chat: %w", err)
	}

	c.session = session
	c.store.Reset(model.NewWelcomeMessage(c.opts.WelcomeText))
	c.state.Store(int32(StateIdle))
	return nil
}

// Send appends a user turn and streams the model's reply into a placeholder.
//
// accepted is false when the controller is not Idle; nothing changes then.
// On stream failure the placeholder is removed and the error is returned and
// surfaced through Err.
func (c *Controller) Send(ctx context.Context, text string) (accepted bool, err error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateSending)) {
		c.log.Debug("send dropped", zap.Stringer("state", c.State()))
		return false, nil
	}
	defer func() {
		c.state.Store(int32(StateIdle))
		c.notify()
	}()

	c.setErr("")
	user := model.NewUserMessage(text)
	placeholder := model.NewModelPlaceholder()
	c.store.Append(user, placeholder)
	c.notify()

	var acc strings.Builder
	chunks := 0
	for chunk, streamErr := range c.session.SendMessageStream(ctx, text) {
		if streamErr != nil {
			return true, c.rollback(placeholder.ID, streamErr)
		}
		chunks++
		c.state.Store(int32(StateStreaming))
		acc.WriteString(chunk)
		c.store.SetText(placeholder.ID, acc.String())
		c.notify()
	}

	c.log.Debug("reply complete", zap.Int("chunks", chunks), zap.Int("chars", acc.Len()))
	return true, nil
}

// rollback removes the placeholder and records the failure.
func (c *Controller) rollback(placeholderID string, cause error) error {
	if !c.store.RemoveLastIf(placeholderID) {
		c.log.Warn("placeholder was not the final turn", zap.String("id", placeholderID))
	}
	c.setErr(fmt.Sprintf("Failed to send message: %v", cause))
	c.log.Warn("send failed", zap.Error(cause))
	return fmt.Errorf("send message: %w", cause)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Loading reports whether a send is in flight.
func (c *Controller) Loading() bool {
	s := c.State()
	return s == StateSending || s == StateStreaming
}

// Err returns the user-facing error text, or "".
func (c *Controller) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errText
}

// Store returns the transcript the controller writes to.
func (c *Controller) Store() *model.Store {
	return c.store
}

func (c *Controller) setErr(text string) {
	c.mu.Lock()
	c.errText = text
	c.mu.Unlock()
}

func (c *Controller) notify() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}
