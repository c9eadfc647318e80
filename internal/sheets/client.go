// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Defaults.
const (
	DefaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"
	// SpreadsheetURLPrefix is the browser URL of a spreadsheet, minus its ID.
	SpreadsheetURLPrefix = "https://docs.google.com/spreadsheets/d/"
	// DefaultTimeout bounds every API call. A stalled call would otherwise
	// hold the export in flight.
	DefaultTimeout = 30 * time.Second
)

// Value input options.
const (
	InputRaw         = "RAW"
	InputUserEntered = "USER_ENTERED"
)

// SpreadsheetURL returns the browser URL for id.
func SpreadsheetURL(id string) string {
	return SpreadsheetURLPrefix + id
}

// =============================================================================
// CLIENT
// =============================================================================

// Client calls the Sheets REST API.
type Client struct {
	baseURL string
	// base is the client the oauth2 client wraps. Its Timeout carries over.
	base *http.Client
	log  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the underlying HTTP client. The default has a
// DefaultTimeout limit.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.base = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		base:    &http.Client{Timeout: DefaultTimeout},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("sheets")
	return c
}

// httpClient returns an HTTP client that attaches token as a bearer header.
func (c *Client) httpClient(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	hc.Timeout = c.base.Timeout
	return hc
}

func (c *Client) do(ctx context.Context, token, method, endpoint string, body, out any) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, &payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient(ctx, token).Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	err = decodeResponse(resp, out)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
	}
	return err
}

func (c *Client) valuesURL(id, rng, suffix, inputOption string) string {
	q := url.Values{}
	q.Set("valueInputOption", inputOption)
	return fmt.Sprintf("%s/%s/values/%s%s?%s",
		c.baseURL, url.PathEscape(id), url.PathEscape(rng), suffix, q.Encode())
}

// =============================================================================
// OPERATIONS
// =============================================================================

type sheetProperties struct {
	Title string `json:"title"`
}

type createRequest struct {
	Properties sheetProperties `json:"properties"`
	Sheets     []struct {
		Properties sheetProperties `json:"properties"`
	} `json:"sheets"`
}

type createResponse struct {
	SpreadsheetID string `json:"spreadsheetId"`
}

type valueRange struct {
	Values [][]string `json:"values"`
}

// Create creates a spreadsheet titled title with a single tab sheetTitle and
// returns its ID.
func (c *Client) Create(ctx context.Context, token, title, sheetTitle string) (string, error) {
	req := createRequest{Properties: sheetProperties{Title: title}}
	req.Sheets = append(req.Sheets, struct {
		Properties sheetProperties `json:"properties"`
	}{Properties: sheetProperties{Title: sheetTitle}})

	var resp createResponse
	if err := c.do(ctx, token, http.MethodPost, c.baseURL, req, &resp); err != nil {
		return "", err
	}
	if resp.SpreadsheetID == "" {
		return "", errors.New("create spreadsheet: response has no spreadsheetId")
	}
	c.log.Info("spreadsheet created", zap.String("id", resp.SpreadsheetID))
	return resp.SpreadsheetID, nil
}

// WriteValues overwrites rng with rows, stored as raw strings.
func (c *Client) WriteValues(ctx context.Context, token, id, rng string, rows [][]string) error {
	endpoint := c.valuesURL(id, rng, "", InputRaw)
	return c.do(ctx, token, http.MethodPut, endpoint, valueRange{Values: rows}, nil)
}

// AppendValues appends rows after the last row of rng. Values are parsed as
// if typed by a user.
func (c *Client) AppendValues(ctx context.Context, token, id, rng string, rows [][]string) error {
	endpoint := c.valuesURL(id, rng, ":append", InputUserEntered)
	return c.do(ctx, token, http.MethodPost, endpoint, valueRange{Values: rows}, nil)
}
