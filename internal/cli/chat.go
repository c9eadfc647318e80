// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/gemsheets-tui/internal/auth"
	"github.com/jeranaias/gemsheets-tui/internal/config"
	"github.com/jeranaias/gemsheets-tui/internal/export"
)

const chatPrompt = "you> "

const chatHelp = `Commands:
  /csv         save the conversation as a CSV file
  /sheets      append the conversation to your Google spreadsheet
  /connect     sign in with Google
  /disconnect  sign out
  /help        show this help
  /quit        exit`

func newChatCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Line-mode chat session",
		Long: `Start a line-mode chat with Gemini.

Replies stream as they arrive. Lines starting with / are commands; type /help
for the list. Input is read line by line when stdin is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}
}

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line of user input per call. io.EOF ends the session.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close()
}

// historyReader is the interactive reader with arrow-key history.
type historyReader struct {
	line        *liner.State
	historyFile string
}

func newHistoryReader() *historyReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &historyReader{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *historyReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (r *historyReader) Close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// scanReader reads piped input without echoing a prompt.
type scanReader struct {
	sc *bufio.Scanner
}

func newScanReader(in io.Reader) *scanReader {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scanReader{sc: sc}
}

func (r *scanReader) ReadLine(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) Close() {}

// =============================================================================
// SESSION
// =============================================================================

// chatSession runs the read-send loop over an app.
type chatSession struct {
	app     *app
	out     io.Writer
	printer *streamPrinter
	authCh  chan auth.State
}

func runChat(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()
	in, out := cmd.InOrStdin(), cmd.OutOrStdout()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	s := &chatSession{
		app:     a,
		out:     out,
		printer: newStreamPrinter(out, a.chat.Store()),
		authCh:  make(chan auth.State, 16),
	}
	a.hooks.chat = s.printer.update
	a.hooks.auth = func(st auth.State) {
		select {
		case s.authCh <- st:
		default:
		}
	}

	if err := a.chat.Initialize(ctx); err != nil {
		return errors.New(a.chat.Err())
	}

	var reader lineReader
	if isInteractive(in, out) {
		reader = newHistoryReader()
	} else {
		reader = newScanReader(in)
	}
	defer reader.Close()

	if welcome, ok := a.chat.Store().Last(); ok {
		fmt.Fprintln(out, infoStyle.Render(welcome.Text))
	}
	return s.loop(ctx, reader)
}

func (s *chatSession) loop(ctx context.Context, reader lineReader) error {
	for {
		input, err := reader.ReadLine(promptStyle.Render(chatPrompt))
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if !s.command(ctx, input) {
				return nil
			}
			continue
		}

		if _, err := s.app.chat.Send(ctx, input); err != nil {
			s.printer.finish()
			fmt.Fprintln(s.out, errorStyle.Render(s.app.chat.Err()))
			continue
		}
		s.printer.finish()
	}
}

// command runs a slash command. It returns false when the session should end.
func (s *chatSession) command(ctx context.Context, input string) bool {
	name := strings.ToLower(strings.Fields(input)[0])
	switch name {
	case "/quit", "/exit":
		return false

	case "/help":
		fmt.Fprintln(s.out, chatHelp)

	case "/csv":
		path, err := s.app.csv.Export(s.app.chat.Store().Snapshot())
		switch {
		case errors.Is(err, export.ErrNothingToExport):
			fmt.Fprintln(s.out, infoStyle.Render(export.MsgNothingToExport))
		case err != nil:
			fmt.Fprintln(s.out, errorStyle.Render(err.Error()))
		default:
			fmt.Fprintln(s.out, infoStyle.Render("Saved "+path))
		}

	case "/sheets":
		err := s.app.sheets.Export(ctx, s.app.chat.Store().Snapshot())
		text := s.app.notice.Text()
		if err != nil && !errors.Is(err, export.ErrNothingToExport) {
			fmt.Fprintln(s.out, errorStyle.Render(text))
		} else {
			fmt.Fprintln(s.out, infoStyle.Render(text))
		}

	case "/connect":
		s.connect(ctx)

	case "/disconnect":
		if !s.app.auth.State().SignedIn {
			fmt.Fprintln(s.out, infoStyle.Render("Not connected."))
			break
		}
		s.app.auth.SignOut()
		fmt.Fprintln(s.out, infoStyle.Render("Disconnected."))

	default:
		fmt.Fprintln(s.out, errorStyle.Render("Unknown command "+name+". Type /help for the list."))
	}
	return true
}

// connect signs in and waits for the redirect to complete or fail.
func (s *chatSession) connect(ctx context.Context) {
	ident := s.app.auth
	if st := ident.State(); st.SignedIn {
		fmt.Fprintln(s.out, infoStyle.Render("Connected as "+describeUser(st.User)))
		return
	}
	if !ident.State().Initialized {
		if err := ident.Load(ctx); err != nil {
			fmt.Fprintln(s.out, errorStyle.Render(auth.MsgLoadFailed))
			return
		}
	}

	for len(s.authCh) > 0 {
		<-s.authCh
	}
	if err := ident.SignIn(ctx); err != nil {
		fmt.Fprintln(s.out, errorStyle.Render(ident.State().Error))
		return
	}
	fmt.Fprintln(s.out, infoStyle.Render("Complete the sign-in in your browser..."))

	for {
		select {
		case <-ctx.Done():
			return
		case st := <-s.authCh:
			if st.SignedIn {
				fmt.Fprintln(s.out, infoStyle.Render("Connected as "+describeUser(st.User)))
				return
			}
			if st.Error != "" {
				fmt.Fprintln(s.out, errorStyle.Render(st.Error))
				return
			}
		}
	}
}

func describeUser(u *auth.UserProfile) string {
	if u == nil {
		return "unknown user"
	}
	if u.Name == "" {
		return u.Email
	}
	return u.Name + " <" + u.Email + ">"
}
