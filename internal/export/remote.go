// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/gemsheets-tui/internal/auth"
	"github.com/jeranaias/gemsheets-tui/internal/model"
	"github.com/jeranaias/gemsheets-tui/internal/sheets"
)

// Spreadsheet layout defaults.
const (
	DefaultSpreadsheetTitle = "Gemini Sheets Exporter"
	DefaultSheetTitle       = "Conversations"
)

// rowTimeLayout is the timestamp written into every appended row. Sheets
// parses it as a date under USER_ENTERED.
const rowTimeLayout = "2006-01-02 15:04:05"

// SheetsAPI is the subset of the Sheets client an export uses.
type SheetsAPI interface {
	Create(ctx context.Context, token, title, sheetTitle string) (string, error)
	WriteValues(ctx context.Context, token, id, rng string, rows [][]string) error
	AppendValues(ctx context.Context, token, id, rng string, rows [][]string) error
}

// IdentitySource provides the current sign-in state.
type IdentitySource interface {
	State() auth.State
}

// TargetStore remembers the spreadsheet per identity.
type TargetStore interface {
	Lookup(ctx context.Context, identity string) (string, bool, error)
	Store(ctx context.Context, identity, id string) error
}

// RemoteOptions configures a RemoteExporter.
type RemoteOptions struct {
	SpreadsheetTitle string
	SheetTitle       string
	// Open shows the finished spreadsheet.
	Open func(url string) error
	// OpenSettings is called when the user must sign in first.
	OpenSettings func()
	Logger       *zap.Logger
	Now          func() time.Time
}

// RemoteExporter appends the transcript to the user's spreadsheet.
type RemoteExporter struct {
	api      SheetsAPI
	identity IdentitySource
	targets  TargetStore
	notice   *Notice
	opts     RemoteOptions
	log      *zap.Logger

	inFlight atomic.Bool
}

// NewRemoteExporter creates an exporter.
func NewRemoteExporter(api SheetsAPI, identity IdentitySource, targets TargetStore, notice *Notice, opts RemoteOptions) *RemoteExporter {
	if opts.SpreadsheetTitle == "" {
		opts.SpreadsheetTitle = DefaultSpreadsheetTitle
	}
	if opts.SheetTitle == "" {
		opts.SheetTitle = DefaultSheetTitle
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if notice == nil {
		notice = NewNotice(DefaultNoticeDelay, nil)
	}
	return &RemoteExporter{
		api:      api,
		identity: identity,
		targets:  targets,
		notice:   notice,
		opts:     opts,
		log:      log.Named("export.sheets"),
	}
}

// InFlight reports whether an export is running.
func (e *RemoteExporter) InFlight() bool {
	return e.inFlight.Load()
}

// Export appends msgs to the identity's spreadsheet, creating it on first
// use. The outcome is always flashed on the notice; the returned error is for
// callers that need to branch on it.
func (e *RemoteExporter) Export(ctx context.Context, msgs []model.Message) error {
	if !e.inFlight.CompareAndSwap(false, true) {
		return ErrExportInFlight
	}
	defer e.inFlight.Store(false)

	e.notice.Clear()
	text, err := e.export(ctx, msgs)
	e.notice.Flash(text)
	return err
}

// export runs the export and returns the notice text for its outcome.
func (e *RemoteExporter) export(ctx context.Context, msgs []model.Message) (string, error) {
	if !HasConversation(msgs) {
		return MsgNothingToExport, ErrNothingToExport
	}

	st := e.identity.State()
	if !st.SignedIn || st.AccessToken == "" {
		if e.opts.OpenSettings != nil {
			e.opts.OpenSettings()
		}
		return MsgConnectAccount, ErrNotSignedIn
	}

	rows := Exportable(msgs)
	if len(rows) == 0 {
		return MsgNothingToExport, ErrNothingToExport
	}

	identity := st.Identity()
	token := st.AccessToken

	id, ok, err := e.targets.Lookup(ctx, identity)
	if err != nil {
		e.log.Warn("target lookup failed", zap.Error(err))
		return MsgExportFailed + err.Error(), fmt.Errorf("lookup target: %w", err)
	}
	if !ok {
		id, err = e.create(ctx, token, identity)
		if err != nil {
			return failureText(MsgCreateFailed, err), err
		}
	}

	timestamp := e.opts.Now().Format(rowTimeLayout)
	values := make([][]string, 0, len(rows))
	for _, m := range rows {
		values = append(values, []string{timestamp, m.Sender.Label(), m.Text})
	}

	if err := e.api.AppendValues(ctx, token, id, e.opts.SheetTitle+"!A:C", values); err != nil {
		e.log.Warn("append failed", zap.String("spreadsheet", id), zap.Error(err))
		return failureText(MsgExportFailed, err), fmt.Errorf("append rows: %w", err)
	}
	e.log.Info("exported", zap.String("spreadsheet", id), zap.Int("rows", len(values)))

	if e.opts.Open != nil {
		if err := e.opts.Open(sheets.SpreadsheetURL(id)); err != nil {
			e.log.Warn("could not open spreadsheet", zap.Error(err))
		}
	}
	return MsgRemoteComplete, nil
}

// create makes a new spreadsheet with a header row and saves it as the
// identity's target.
func (e *RemoteExporter) create(ctx context.Context, token, identity string) (string, error) {
	id, err := e.api.Create(ctx, token, e.opts.SpreadsheetTitle, e.opts.SheetTitle)
	if err != nil {
		e.log.Warn("create failed", zap.Error(err))
		return "", fmt.Errorf("create spreadsheet: %w", err)
	}

	header := [][]string{{"Timestamp", "Sender", "Message"}}
	if err := e.api.WriteValues(ctx, token, id, e.opts.SheetTitle+"!A1:C1", header); err != nil {
		e.log.Warn("header row not written", zap.String("spreadsheet", id), zap.Error(err))
	}

	// Logged only: the spreadsheet already exists.
	if err := e.targets.Store(ctx, identity, id); err != nil {
		e.log.Error("target not saved", zap.String("spreadsheet", id), zap.Error(err))
	}
	return id, nil
}

// failureText maps err to its notice.
func failureText(prefix string, err error) string {
	if errors.Is(err, sheets.ErrUnauthorized) {
		return MsgAuthInvalid
	}
	var apiErr *sheets.APIError
	if errors.As(err, &apiErr) {
		return prefix + apiErr.Detail()
	}
	if inner := errors.Unwrap(err); inner != nil {
		return prefix + inner.Error()
	}
	return prefix + err.Error()
}
