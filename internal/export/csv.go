// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/gemsheets-tui/internal/model"
	"github.com/jeranaias/gemsheets-tui/internal/util"
)

// bom makes spreadsheet applications read the file as UTF-8.
const bom = "\ufeff"

// csvHeader is the first line of every local export.
const csvHeader = "Sender,Message"

// EscapeField quotes field when it contains a comma, a double quote, or a
// newline, doubling any embedded quotes. Other fields are returned as is.
func EscapeField(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// BuildCSV renders the exportable messages of msgs, BOM included.
// Lines are separated by "\n" with no trailing newline after the last row.
func BuildCSV(msgs []model.Message) []byte {
	rows := Exportable(msgs)
	lines := make([]string, 0, len(rows))
	for _, m := range rows {
		lines = append(lines, m.Sender.Label()+","+EscapeField(m.Text))
	}

	var b strings.Builder
	b.WriteString(bom)
	b.WriteString(csvHeader)
	b.WriteString("\n")
	b.WriteString(strings.Join(lines, "\n"))
	return []byte(b.String())
}

// FileName returns gemini-chat-history-<ts>.csv, where ts is the UTC ISO-8601
// time with ':' and '.' replaced by '-'.
func FileName(now time.Time) string {
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return "gemini-chat-history-" + ts + ".csv"
}

// =============================================================================
// LOCAL EXPORTER
// =============================================================================

// LocalExporter writes the transcript as a CSV file.
type LocalExporter struct {
	dir    string
	notice *Notice
	log    *zap.Logger
	now    func() time.Time
}

// NewLocalExporter creates an exporter writing into dir. notice may be nil.
func NewLocalExporter(dir string, notice *Notice, log *zap.Logger) *LocalExporter {
	if dir == "" {
		dir = "."
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalExporter{dir: dir, notice: notice, log: log.Named("export.csv"), now: time.Now}
}

// Export writes msgs and returns the file path. When msgs holds no more than
// the welcome turn nothing is written and ErrNothingToExport is returned.
func (e *LocalExporter) Export(msgs []model.Message) (string, error) {
	if !HasConversation(msgs) {
		e.flash(MsgNothingToExport)
		return "", ErrNothingToExport
	}

	path := filepath.Join(e.dir, FileName(e.now()))
	if err := util.AtomicWriteFile(path, BuildCSV(msgs), 0644); err != nil {
		e.log.Error("write failed", zap.String("path", path), zap.Error(err))
		e.flash(MsgExportFailed + err.Error())
		return "", fmt.Errorf("write csv: %w", err)
	}

	e.log.Info("exported", zap.String("path", path), zap.Int("messages", len(msgs)))
	e.flash(MsgLocalComplete + path)
	return path, nil
}

func (e *LocalExporter) flash(text string) {
	if e.notice != nil {
		e.notice.Flash(text)
	}
}
