// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"sync"
	"time"
)

// DefaultNoticeDelay is how long a flashed notice stays visible.
const DefaultNoticeDelay = 4 * time.Second

// Notice is a status line that clears itself a fixed delay after it was
// flashed, unless it was replaced in the meantime.
type Notice struct {
	delay    time.Duration
	onChange func(string)

	mu    sync.Mutex
	text  string
	seq   uint64
	timer *time.Timer
}

// NewNotice creates a notice. onChange, if set, receives the text after every
// change, including the automatic clear. It runs on the timer goroutine for
// clears, so it must not block.
func NewNotice(delay time.Duration, onChange func(string)) *Notice {
	if delay <= 0 {
		delay = DefaultNoticeDelay
	}
	return &Notice{delay: delay, onChange: onChange}
}

// Text returns the current notice, or "".
func (n *Notice) Text() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.text
}

// Set shows text until it is replaced.
func (n *Notice) Set(text string) {
	n.mu.Lock()
	n.replaceLocked(text)
	n.mu.Unlock()
	n.changed(text)
}

// Flash shows text and clears it after the delay.
func (n *Notice) Flash(text string) {
	n.mu.Lock()
	seq := n.replaceLocked(text)
	n.timer = time.AfterFunc(n.delay, func() { n.expire(seq) })
	n.mu.Unlock()
	n.changed(text)
}

// Clear removes the notice immediately.
func (n *Notice) Clear() {
	n.Set("")
}

// Stop cancels a pending automatic clear.
func (n *Notice) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notice) replaceLocked(text string) uint64 {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.seq++
	n.text = text
	return n.seq
}

func (n *Notice) expire(seq uint64) {
	n.mu.Lock()
	if seq != n.seq {
		n.mu.Unlock()
		return
	}
	n.seq++
	n.text = ""
	n.timer = nil
	n.mu.Unlock()
	n.changed("")
}

func (n *Notice) changed(text string) {
	if n.onChange != nil {
		n.onChange(text)
	}
}
