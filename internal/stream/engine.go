// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream runs one response generation at a time against the chat
// store: real event-stream consumption when the model supports it, and a
// simulated per-character reveal when it does not. Both paths share the
// placeholder, cursor, finalize, and error-annotation behavior, so the rest
// of the program only ever sees messages move from streaming to finalized.
package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/provider"
	"github.com/preetam-90/vidion-ai/internal/store"
)

// =============================================================================
// CONSTANTS AND ERRORS
// =============================================================================

// DefaultCharDelay is the pause between revealed characters in simulated
// streaming.
const DefaultCharDelay = 10 * time.Millisecond

// ErrStreamInFlight is returned when a generation is requested while a
// previous one has not reached a terminal state.
var ErrStreamInFlight = errors.New("a response is already being generated")

// =============================================================================
// ENGINE
// =============================================================================

// Completer is the provider surface the engine needs. *provider.Client
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, m model.Model, messages []provider.ChatMessage) (string, error)
	StreamDeltas(ctx context.Context, m model.Model, messages []provider.ChatMessage, onDelta provider.DeltaCallback) error
}

// Config assembles an Engine.
type Config struct {
	Store  *store.Store
	Client Completer

	// Clock drives the simulated reveal timer. Defaults to SystemClock.
	Clock Clock

	// CharDelay is the per-character reveal delay. Defaults to
	// DefaultCharDelay.
	CharDelay time.Duration

	// Cleanup, when set, transforms the full response text before a
	// simulated reveal begins.
	Cleanup func(string) string

	// Notify, when set, is called after every message write so the
	// presentation layer can refresh.
	Notify func()

	Logger *zap.Logger
}

// Engine runs generations. At most one is in flight at a time; Stop cancels
// the current one cooperatively.
type Engine struct {
	mu     sync.Mutex
	active bool

	token *cancelToken

	store     *store.Store
	client    Completer
	clock     Clock
	charDelay time.Duration
	cleanup   func(string) string
	notify    func()
	logger    *zap.Logger
}

// New creates an Engine from the given configuration.
func New(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.CharDelay <= 0 {
		cfg.CharDelay = DefaultCharDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		token:     &cancelToken{},
		store:     cfg.Store,
		client:    cfg.Client,
		clock:     cfg.Clock,
		charDelay: cfg.CharDelay,
		cleanup:   cfg.Cleanup,
		notify:    cfg.Notify,
		logger:    cfg.Logger,
	}
}

// Active reports whether a generation is in flight.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Stop requests cooperative cancellation of the in-flight generation.
// Content revealed so far is kept and finalized. No-op when idle.
func (e *Engine) Stop() {
	e.token.fire()
}

// =============================================================================
// GENERATION ENTRY POINTS
// =============================================================================

// Generate runs the strategy appropriate for the model: a live event stream
// when the endpoint supports it, a simulated reveal otherwise.
func (e *Engine) Generate(ctx context.Context, chatID string, m model.Model, history []provider.ChatMessage) error {
	if m.NoStream {
		return e.Simulate(ctx, chatID, m, history)
	}
	return e.Stream(ctx, chatID, m, history)
}

// Stream consumes a live event stream, writing each accumulated prefix into
// the in-progress message with a trailing cursor, then finalizing without it.
func (e *Engine) Stream(ctx context.Context, chatID string, m model.Model, history []provider.ChatMessage) error {
	ctx, done, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	msg := e.placeholder(chatID)
	history = provider.ReduceHistory(m, history)

	var acc strings.Builder
	err = e.client.StreamDeltas(ctx, m, history, func(delta string) {
		acc.WriteString(delta)
		e.write(chatID, msg.ID, acc.String())
	})
	if err != nil {
		partial := acc.String()
		var streamErr *provider.StreamError
		if errors.As(err, &streamErr) && streamErr.Partial != "" {
			partial = streamErr.Partial
		}
		if errors.Is(err, context.Canceled) {
			e.logger.Debug("stream cancelled",
				zap.String("chat_id", chatID),
				zap.Int("revealed", len(partial)))
			e.finalize(chatID, msg.ID, partial)
			return nil
		}
		e.fail(chatID, msg.ID, partial, err)
		return err
	}

	e.finalize(chatID, msg.ID, acc.String())
	return nil
}

// Simulate fetches the complete response, then reveals it one rune at a time
// on the engine clock, checking for cancellation before every rune.
func (e *Engine) Simulate(ctx context.Context, chatID string, m model.Model, history []provider.ChatMessage) error {
	ctx, done, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	msg := e.placeholder(chatID)
	history = provider.ReduceHistory(m, history)

	full, err := e.client.Complete(ctx, m, history)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			e.finalize(chatID, msg.ID, "")
			return nil
		}
		e.fail(chatID, msg.ID, "", err)
		return err
	}
	if e.cleanup != nil {
		full = e.cleanup(full)
	}

	runes := []rune(full)
	for i := range runes {
		if ctx.Err() != nil {
			e.finalize(chatID, msg.ID, string(runes[:i]))
			return nil
		}
		e.write(chatID, msg.ID, string(runes[:i+1]))
		select {
		case <-ctx.Done():
			e.finalize(chatID, msg.ID, string(runes[:i+1]))
			return nil
		case <-e.clock.After(e.charDelay):
		}
	}

	e.finalize(chatID, msg.ID, full)
	return nil
}

// =============================================================================
// SHARED LIFECYCLE
// =============================================================================

// begin acquires the single-flight slot and arms the cancel token. The
// returned done func releases both and must run exactly once.
func (e *Engine) begin(ctx context.Context) (context.Context, func(), error) {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return nil, nil, ErrStreamInFlight
	}
	e.active = true
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	e.token.set(cancel)

	done := func() {
		e.token.clear()
		e.mu.Lock()
		e.active = false
		e.mu.Unlock()
	}
	return ctx, done, nil
}

// placeholder inserts the assistant message the generation will fill in,
// with the cursor as its sole content. Happens before any network activity.
func (e *Engine) placeholder(chatID string) model.Message {
	msg := model.NewAssistantMessage().WithContent(model.StreamCursor)
	e.store.AppendMessage(chatID, msg)
	e.refresh()
	return msg
}

// write publishes an interim snapshot of the response with the cursor glyph
// appended.
func (e *Engine) write(chatID, messageID, content string) {
	e.store.UpdateMessage(chatID, messageID, func(m model.Message) model.Message {
		return m.WithContent(content + model.StreamCursor)
	})
	e.refresh()
}

// finalize strips the cursor, splits any thinking block out of the content,
// and publishes the terminal form of the message.
func (e *Engine) finalize(chatID, messageID, content string) {
	answer, thinking := provider.SplitThinking(content)
	e.store.UpdateMessage(chatID, messageID, func(m model.Message) model.Message {
		return m.WithContent(answer).WithThinking(thinking).Finalized()
	})
	e.refresh()
}

// fail finalizes the message with whatever content was revealed plus a
// bracketed error annotation, so a generation never ends in a pending state.
// A vendor rejection of the model identifier additionally swaps the selected
// model to the known-good fallback.
func (e *Engine) fail(chatID, messageID, partial string, err error) {
	e.logger.Error("generation failed",
		zap.String("chat_id", chatID),
		zap.Error(err))

	annotation := fmt.Sprintf("\n\n[Error: %v]", err)
	if provider.IsModelMisconfigured(err) {
		fallback := e.store.SelectModel(model.FallbackModel.ID)
		annotation += fmt.Sprintf("\n\n[Switched to %s. Please retry your message.]", fallback.Name)
	}

	answer, thinking := provider.SplitThinking(partial)
	e.store.UpdateMessage(chatID, messageID, func(m model.Message) model.Message {
		return m.WithContent(answer + annotation).WithThinking(thinking).Finalized()
	})
	e.refresh()
}

func (e *Engine) refresh() {
	if e.notify != nil {
		e.notify()
	}
}
