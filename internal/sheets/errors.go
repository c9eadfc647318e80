// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sheets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned for HTTP 401 responses.
var ErrUnauthorized = errors.New("sheets: unauthorized")

// APIError is a non-2xx response other than 401.
type APIError struct {
	StatusCode int
	Status     string
	// Body is the trimmed response body.
	Body string
	// Message is taken from the Google error envelope when present.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sheets api request failed (%s): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("sheets api request failed (%s): %s", e.Status, e.Detail())
}

// Detail returns the response body, or the status line when the body is
// empty.
func (e *APIError) Detail() string {
	if e.Body != "" {
		return e.Body
	}
	return e.Status
}

// errorEnvelope is the standard Google API error body.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// decodeResponse closes resp.Body and decodes it into out on success.
// out may be nil.
func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
		var env errorEnvelope
		if err := json.Unmarshal(body, &env); err == nil {
			apiErr.Message = strings.TrimSpace(env.Error.Message)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
