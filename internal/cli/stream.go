// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"sync"

	"github.com/jeranaias/gemsheets-tui/internal/model"
)

// streamPrinter writes the growing text of the newest model turn to out as
// it arrives. It is the chat controller's change hook in line mode.
type streamPrinter struct {
	out   io.Writer
	store *model.Store

	mu      sync.Mutex
	id      string
	printed int
	open    bool
}

func newStreamPrinter(out io.Writer, store *model.Store) *streamPrinter {
	return &streamPrinter{out: out, store: store}
}

// update prints whatever the last model turn gained since the previous call.
func (p *streamPrinter) update() {
	p.mu.Lock()
	defer p.mu.Unlock()

	last, ok := p.store.Last()
	if !ok || last.Sender != model.SenderModel || last.IsWelcome() {
		return
	}
	if last.ID != p.id {
		p.id = last.ID
		p.printed = 0
	}
	if len(last.Text) <= p.printed {
		return
	}
	io.WriteString(p.out, last.Text[p.printed:])
	p.printed = len(last.Text)
	p.open = true
}

// finish terminates the current line if a reply was printed.
func (p *streamPrinter) finish() {
	p.update()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		io.WriteString(p.out, "\n")
		p.open = false
	}
}
