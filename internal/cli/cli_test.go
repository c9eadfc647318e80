// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/gemsheets-tui/internal/chat"
	"github.com/jeranaias/gemsheets-tui/internal/export"
	"github.com/jeranaias/gemsheets-tui/internal/gemini"
	"github.com/jeranaias/gemsheets-tui/internal/model"
	"github.com/jeranaias/gemsheets-tui/internal/storage"
)

// =============================================================================
// HARNESS
// =============================================================================

type echoSession struct{}

func (echoSession) SendMessageStream(_ context.Context, text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !yield("echo: ", nil) {
			return
		}
		yield(text, nil)
	}
}

type echoProvider struct{}

func (echoProvider) StartChat(context.Context, string) (gemini.Session, error) {
	return echoSession{}, nil
}

func echoFactory(context.Context, string, *zap.Logger) (gemini.Provider, error) {
	return echoProvider{}, nil
}

func missingKeyFactory(context.Context, string, *zap.Logger) (gemini.Provider, error) {
	return nil, gemini.ErrMissingAPIKey
}

type env struct {
	dir        string
	configPath string
	outputDir  string
	dbPath     string
}

// newEnv writes a config whose every path lives in a temp directory and
// clears the environment overrides.
func newEnv(t *testing.T, extra string) *env {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "API_KEY", "GEMSHEETS_MODEL", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GEMSHEETS_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	e := &env{
		dir:        dir,
		configPath: filepath.Join(dir, "config.toml"),
		outputDir:  filepath.Join(dir, "out"),
		dbPath:     filepath.Join(dir, "state.db"),
	}
	require.NoError(t, os.MkdirAll(e.outputDir, 0755))

	content := extra + `
[export]
output_dir = "` + filepath.ToSlash(e.outputDir) + `"

[storage]
path = "` + filepath.ToSlash(e.dbPath) + `"

[log]
level = "debug"
file = "` + filepath.ToSlash(filepath.Join(dir, "test.log")) + `"
`
	require.NoError(t, os.WriteFile(e.configPath, []byte(content), 0600))
	return e
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (e *env) run(t *testing.T, factory ProviderFactory, stdin string, args ...string) result {
	t.Helper()
	if factory == nil {
		factory = echoFactory
	}
	root := newRootCommand(&rootOptions{newProvider: factory})

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := root.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func csvFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "gemini-chat-history-*.csv"))
	require.NoError(t, err)
	return matches
}

// =============================================================================
// SIMPLE COMMANDS
// =============================================================================

func TestVersion(t *testing.T) {
	e := newEnv(t, "")
	res := e.run(t, nil, "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "gemsheets "+Version)
}

func TestConfigPath_UsesFlag(t *testing.T) {
	e := newEnv(t, "")
	res := e.run(t, nil, "", "config", "path")
	require.NoError(t, res.err)
	assert.Equal(t, e.configPath+"\n", res.stdout)
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	e := newEnv(t, `[gemini]
api_key = "super-secret-key"
`)
	res := e.run(t, nil, "", "config", "show")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stdout, "super-secret-key")
	assert.Contains(t, res.stdout, "[REDACTED]")
	assert.Contains(t, res.stdout, e.configPath)
}

func TestConfigInit(t *testing.T) {
	e := newEnv(t, "")
	target := filepath.Join(e.dir, "fresh", "config.toml")

	root := newRootCommand(&rootOptions{newProvider: echoFactory})
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", target, "config", "init"})
	require.NoError(t, root.Execute())

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	root = newRootCommand(&rootOptions{newProvider: echoFactory})
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", target, "config", "init"})
	err = root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

// =============================================================================
// CLIENT IDENTIFIER
// =============================================================================

func savedClientID(t *testing.T, path string) string {
	t.Helper()
	db, err := storage.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	id, err := storage.NewSettings(db).ClientID(context.Background())
	require.NoError(t, err)
	return id
}

func TestSetClientID_SavesAndClears(t *testing.T) {
	e := newEnv(t, "")
	const id = "123456-abcdef.apps.googleusercontent.com"

	res := e.run(t, nil, "", "config", "set-client-id", "  "+id+"  ")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Client ID saved.")
	assert.Equal(t, id, savedClientID(t, e.dbPath))

	res = e.run(t, nil, "", "config", "clear-client-id")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Client ID cleared.")
	assert.Equal(t, "", savedClientID(t, e.dbPath))
}

func TestSetClientID_RejectsMalformed(t *testing.T) {
	e := newEnv(t, "")
	res := e.run(t, nil, "", "config", "set-client-id", "not-a-client-id")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid client ID")
}

func TestSetClientID_WarnsWhenEnvironmentWins(t *testing.T) {
	e := newEnv(t, "")
	t.Setenv("GOOGLE_CLIENT_ID", "999-env.apps.googleusercontent.com")

	res := e.run(t, nil, "", "config", "set-client-id", "123-abc.apps.googleusercontent.com")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "takes precedence")
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_StreamsReply(t *testing.T) {
	e := newEnv(t, "")
	res := e.run(t, nil, "", "ask", "hello", "world")
	require.NoError(t, res.err)
	assert.Equal(t, "echo: hello world\n", res.stdout)
	assert.Empty(t, csvFiles(t, e.outputDir))
}

func TestAsk_SavesCSV(t *testing.T) {
	e := newEnv(t, "")
	res := e.run(t, nil, "", "ask", "--csv", "hello")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Saved ")

	files := csvFiles(t, e.outputDir)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo: hello")
}

func TestAsk_MissingAPIKey(t *testing.T) {
	e := newEnv(t, "")
	res := e.run(t, missingKeyFactory, "", "ask", "hello")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "API key")
}

func TestAsk_ProviderFailure(t *testing.T) {
	e := newEnv(t, "")
	boom := func(context.Context, string, *zap.Logger) (gemini.Provider, error) {
		return nil, errors.New("boom")
	}
	res := e.run(t, boom, "", "ask", "hello")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "boom")
}

// =============================================================================
// CHAT
// =============================================================================

func TestChat_ScriptedSession(t *testing.T) {
	e := newEnv(t, "")
	res := e.run(t, nil, "hello\n\n/csv\n/quit\nignored\n", "chat")
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, chat.DefaultWelcomeText)
	assert.Contains(t, res.stdout, "echo: hello\n")
	assert.Contains(t, res.stdout, "Saved ")
	assert.NotContains(t, res.stdout, "echo: ignored")
	assert.Len(t, csvFiles(t, e.outputDir), 1)
}

func TestChat_ExportsNeedConversation(t *testing.T) {
	e := newEnv(t, "")
	res := e.run(t, nil, "/csv\n/sheets\n", "chat")
	require.NoError(t, res.err)
	assert.Equal(t, 2, strings.Count(res.stdout, export.MsgNothingToExport))
	assert.Empty(t, csvFiles(t, e.outputDir))
}

func TestChat_SheetsNeedsSignIn(t *testing.T) {
	e := newEnv(t, "")
	res := e.run(t, nil, "hi\n/sheets\n", "chat")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, export.MsgConnectAccount)
}

func TestChat_Commands(t *testing.T) {
	e := newEnv(t, "")
	res := e.run(t, nil, "/help\n/disconnect\n/bogus\n", "chat")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "/connect")
	assert.Contains(t, res.stdout, "Not connected.")
	assert.Contains(t, res.stdout, "Unknown command /bogus")
}

func TestChat_EphemeralDoesNotCreateDatabase(t *testing.T) {
	e := newEnv(t, "")
	res := e.run(t, nil, "/quit\n", "--ephemeral", "chat")
	require.NoError(t, res.err)
	_, err := os.Stat(e.dbPath)
	assert.True(t, os.IsNotExist(err))
}

// =============================================================================
// STREAM PRINTER
// =============================================================================

func TestStreamPrinter(t *testing.T) {
	store := model.NewStore()
	var out bytes.Buffer
	p := newStreamPrinter(&out, store)

	store.Reset(model.NewWelcomeMessage("hi there"))
	p.update()
	assert.Empty(t, out.String(), "welcome turn is not streamed")

	placeholder := model.NewModelPlaceholder()
	store.Append(model.NewUserMessage("q1"), placeholder)
	p.update()
	store.SetText(placeholder.ID, "Hel")
	p.update()
	store.SetText(placeholder.ID, "Hello")
	p.update()
	p.update()
	p.finish()
	assert.Equal(t, "Hello\n", out.String())

	next := model.NewModelPlaceholder()
	store.Append(model.NewUserMessage("q2"), next)
	store.SetText(next.ID, "Again")
	p.finish()
	assert.Equal(t, "Hello\nAgain\n", out.String())

	p.finish()
	assert.Equal(t, "Hello\nAgain\n", out.String(), "finish is idempotent")
}
