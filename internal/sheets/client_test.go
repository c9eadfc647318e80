// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
		}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(
		WithBaseURL(srv.URL+"/v4/spreadsheets/"),
		WithHTTPClient(srv.Client()),
		WithLogger(zaptest.NewLogger(t)),
	)
	return c, &calls
}

func TestCreate(t *testing.T) {
	c, calls := newTestServer(t, http.StatusOK, `{"spreadsheetId":"sheet-123"}`)

	id, err := c.Create(context.Background(), "tok", "Gemini Sheets Exporter", "Conversations")
	require.NoError(t, err)
	assert.Equal(t, "sheet-123", id)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/v4/spreadsheets", call.path)
	assert.Equal(t, "Bearer tok", call.auth)
	assert.Equal(t, map[string]any{"title": "Gemini Sheets Exporter"}, call.body["properties"])
	sheets, ok := call.body["sheets"].([]any)
	require.True(t, ok)
	require.Len(t, sheets, 1)
	assert.Equal(t,
		map[string]any{"properties": map[string]any{"title": "Conversations"}},
		sheets[0])
}

func TestCreate_MissingID(t *testing.T) {
	c, _ := newTestServer(t, http.StatusOK, `{}`)
	_, err := c.Create(context.Background(), "tok", "t", "s")
	require.Error(t, err)
}

func TestWriteValues(t *testing.T) {
	c, calls := newTestServer(t, http.StatusOK, `{}`)

	err := c.WriteValues(context.Background(), "tok", "sheet-123", "Conversations!A1:C1",
		[][]string{{"Timestamp", "Sender", "Message"}})
	require.NoError(t, err)

	call := (*calls)[0]
	assert.Equal(t, http.MethodPut, call.method)
	assert.Equal(t, "/v4/spreadsheets/sheet-123/values/Conversations!A1:C1", call.path)
	assert.Equal(t, "valueInputOption=RAW", call.query)
	assert.Equal(t, []any{[]any{"Timestamp", "Sender", "Message"}}, call.body["values"])
}

func TestAppendValues(t *testing.T) {
	c, calls := newTestServer(t, http.StatusOK, `{"updates":{}}`)

	rows := [][]string{{"ts", "User", "hi"}, {"ts", "Gemini", "hello"}}
	require.NoError(t, c.AppendValues(context.Background(), "tok", "sheet-123", "Conversations!A:C", rows))

	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/v4/spreadsheets/sheet-123/values/Conversations!A:C:append", call.path)
	assert.Equal(t, "valueInputOption=USER_ENTERED", call.query)
	assert.Len(t, call.body["values"], 2)
}

func TestErrors(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		c, _ := newTestServer(t, http.StatusUnauthorized, `{"error":{"code":401}}`)
		err := c.AppendValues(context.Background(), "tok", "id", "A:C", nil)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("google envelope", func(t *testing.T) {
		body := `{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`
		c, _ := newTestServer(t, http.StatusForbidden, body)
		_, err := c.Create(context.Background(), "tok", "t", "s")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Equal(t, "The caller does not have permission", apiErr.Message)
		assert.Equal(t, body, apiErr.Detail())
		assert.Contains(t, apiErr.Error(), "The caller does not have permission")
	})

	t.Run("empty body falls back to status", func(t *testing.T) {
		c, _ := newTestServer(t, http.StatusInternalServerError, ``)
		err := c.WriteValues(context.Background(), "tok", "id", "A1", nil)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "500 Internal Server Error", apiErr.Detail())
		assert.Empty(t, apiErr.Message)
	})
}

func TestSpreadsheetURL(t *testing.T) {
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc", SpreadsheetURL("abc"))
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := NewClient(WithHTTPClient(nil))
	require.NotNil(t, c.base)
	assert.Equal(t, DefaultTimeout, c.base.Timeout)
	assert.Equal(t, DefaultTimeout, c.httpClient(context.Background(), "tok").Timeout)
}

func TestStalledCallTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewClient(
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
		WithLogger(zaptest.NewLogger(t)),
	)

	start := time.Now()
	_, err := c.Create(context.Background(), "tok", "Title", "Sheet")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
