// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is the model a session is bound to unless configured otherwise.
const DefaultModel = "gemini-2.5-flash"

// ErrMissingAPIKey indicates no API key was configured.
var ErrMissingAPIKey = errors.New("gemini API key not configured")

// Session is one ongoing conversation with the model. It accumulates history
// across sends.
type Session interface {
	// SendMessageStream sends text as a user turn and yields reply chunks in
	// delivery order. A non-nil error ends the sequence.
	SendMessageStream(ctx context.Context, text string) iter.Seq2[string, error]
}

// Provider creates sessions.
type Provider interface {
	StartChat(ctx context.Context, model string) (Session, error)
}

// =============================================================================
// GENAI CLIENT
// =============================================================================

// Client is a Provider backed by the Gemini API.
type Client struct {
	client *genai.Client
	log    *zap.Logger
}

// NewClient creates a Gemini API client. A blank key yields ErrMissingAPIKey.
func NewClient(ctx context.Context, apiKey string, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	return newClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, log)
}

func newClient(ctx context.Context, cfg *genai.ClientConfig, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{client: client, log: log}, nil
}

// StartChat creates a chat session bound to model.
func (c *Client) StartChat(ctx context.Context, model string) (Session, error) {
	if model == "" {
		model = DefaultModel
	}
	chat, err := c.client.Chats.Create(ctx, model, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}
	c.log.Info("chat session created", zap.String("model", model))
	return &chatSession{chat: chat, model: model, log: c.log}, nil
}

// chatSession adapts genai.Chat to Session.
type chatSession struct {
	chat  *genai.Chat
	model string
	log   *zap.Logger
}

// SendMessageStream streams the model's reply to text.
func (s *chatSession) SendMessageStream(ctx context.Context, text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		chunks := 0
		for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: text}) {
			if err != nil {
				s.log.Warn("stream failed", zap.String("model", s.model), zap.Int("chunks", chunks), zap.Error(err))
				yield("", err)
				return
			}
			chunks++
			if !yield(ChunkText(resp), nil) {
				return
			}
		}
		s.log.Debug("stream complete", zap.String("model", s.model), zap.Int("chunks", chunks))
	}
}

// ChunkText concatenates the text parts of the first candidate. Thought parts
// are skipped.
func ChunkText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
