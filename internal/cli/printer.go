// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/store"
)

// =============================================================================
// STREAM PRINTER
// =============================================================================

// StreamPrinter echoes a response to stdout as the engine writes it into
// the store. The engine rewrites the whole in-progress message on every
// update; the printer tracks how much it already printed and emits only the
// new suffix, so output appears token by token.
//
// Wire Notify on the engine to the printer's Notify method, call Start
// before a generation and Stop after.
type StreamPrinter struct {
	mu      sync.Mutex
	store   *store.Store
	out     io.Writer
	chatID  string
	printed int
	active  bool
}

// NewStreamPrinter creates a printer over the given store, writing to
// stdout. Pass a different writer for tests.
func NewStreamPrinter(s *store.Store, out io.Writer) *StreamPrinter {
	if out == nil {
		out = os.Stdout
	}
	return &StreamPrinter{store: s, out: out}
}

// Start arms the printer for a generation in the given chat.
func (p *StreamPrinter) Start(chatID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chatID = chatID
	p.printed = 0
	p.active = true
}

// Stop disarms the printer. Content written after Stop is ignored.
func (p *StreamPrinter) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
}

// Notify prints whatever the assistant message gained since the last call.
// Safe to call from the engine goroutine.
func (p *StreamPrinter) Notify() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return
	}
	chat, err := p.store.Chat(p.chatID)
	if err != nil {
		return
	}
	msg := chat.LastMessage()
	if msg == nil || msg.Role != model.RoleAssistant {
		return
	}

	content := strings.TrimSuffix(msg.Content, model.StreamCursor)
	if len(content) > p.printed {
		fmt.Fprint(p.out, content[p.printed:])
		p.printed = len(content)
	}
}
