// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/provider"
	"github.com/preetam-90/vidion-ai/internal/store"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// instantClock fires every timer immediately so simulated reveals run at
// full speed.
type instantClock struct{}

func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// fakeCompleter scripts provider behavior for the engine.
type fakeCompleter struct {
	deltas    []string
	streamErr error

	completeText string
	completeErr  error

	streamCalls   int
	completeCalls int
	lastHistory   []provider.ChatMessage

	// block, when set, holds StreamDeltas open until released.
	block chan struct{}
}

func (f *fakeCompleter) Complete(ctx context.Context, m model.Model, messages []provider.ChatMessage) (string, error) {
	f.completeCalls++
	f.lastHistory = messages
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.completeText, nil
}

func (f *fakeCompleter) StreamDeltas(ctx context.Context, m model.Model, messages []provider.ChatMessage, onDelta provider.DeltaCallback) error {
	f.streamCalls++
	f.lastHistory = messages
	for _, d := range f.deltas {
		onDelta(d)
	}
	if f.block != nil {
		<-f.block
	}
	return f.streamErr
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(nil, nil, nil)
}

func history(prompt string) []provider.ChatMessage {
	return []provider.ChatMessage{
		{Role: "system", Content: "system prompt"},
		{Role: "user", Content: prompt},
	}
}

// lastMessage returns the final message of the current chat.
func lastMessage(t *testing.T, s *store.Store) model.Message {
	t.Helper()
	msg := s.CurrentChat().LastMessage()
	if msg == nil {
		t.Fatal("chat has no messages")
	}
	return *msg
}

// =============================================================================
// STRATEGY A
// =============================================================================

func TestStream_AccumulatesDeltas(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{deltas: []string{"Hello", ",", " world"}}

	var interim []string
	engine := New(Config{
		Store:  s,
		Client: client,
		Notify: func() {
			msg := lastMessage(t, s)
			interim = append(interim, msg.Content)
		},
	})

	if err := engine.Stream(context.Background(), chatID, model.GroqLlama3, history("hi")); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	final := lastMessage(t, s)
	if final.Content != "Hello, world" {
		t.Errorf("final content = %q", final.Content)
	}
	if final.IsStreaming() {
		t.Error("final message still carries the cursor")
	}

	// Every interim write is a prefix of the final text plus the cursor.
	for i, snap := range interim[:len(interim)-1] {
		if !strings.HasSuffix(snap, model.StreamCursor) {
			t.Errorf("interim write %d missing cursor: %q", i, snap)
		}
		body := strings.TrimSuffix(snap, model.StreamCursor)
		if !strings.HasPrefix("Hello, world", body) {
			t.Errorf("interim write %d is not a prefix: %q", i, body)
		}
	}
}

func TestStream_PlaceholderBeforeDeltas(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{deltas: []string{"x"}}

	var first string
	engine := New(Config{
		Store:  s,
		Client: client,
		Notify: func() {
			if first == "" {
				first = lastMessage(t, s).Content
			}
		},
	})

	if err := engine.Stream(context.Background(), chatID, model.GroqLlama3, history("hi")); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if first != model.StreamCursor {
		t.Errorf("placeholder content = %q, want bare cursor", first)
	}
}

func TestStream_ThinkingSplitOnFinalize(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{deltas: []string{"<think>mull it over</think>", "the answer"}}

	engine := New(Config{Store: s, Client: client})
	if err := engine.Stream(context.Background(), chatID, model.ClaudeHaiku, history("hi")); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	final := lastMessage(t, s)
	if final.Content != "the answer" {
		t.Errorf("content = %q", final.Content)
	}
	if final.Thinking != "mull it over" {
		t.Errorf("thinking = %q", final.Thinking)
	}
}

func TestStream_ErrorAnnotatesPartial(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{
		deltas:    []string{"partial "},
		streamErr: &provider.StreamError{Partial: "partial text", Err: provider.ErrRateLimited},
	}

	engine := New(Config{Store: s, Client: client})
	err := engine.Stream(context.Background(), chatID, model.GroqLlama3, history("hi"))
	if !errors.Is(err, provider.ErrRateLimited) {
		t.Fatalf("err = %v, want rate-limited", err)
	}

	final := lastMessage(t, s)
	if !strings.HasPrefix(final.Content, "partial text") {
		t.Errorf("partial content lost: %q", final.Content)
	}
	if !strings.Contains(final.Content, "[Error: ") {
		t.Errorf("missing error annotation: %q", final.Content)
	}
	if final.IsStreaming() {
		t.Error("errored message still carries the cursor")
	}
}

func TestStream_CancelKeepsPrefixWithoutAnnotation(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{
		deltas:    []string{"kept"},
		streamErr: fmt.Errorf("reading stream: %w", context.Canceled),
	}

	engine := New(Config{Store: s, Client: client})
	if err := engine.Stream(context.Background(), chatID, model.GroqLlama3, history("hi")); err != nil {
		t.Fatalf("cancellation should not surface an error, got %v", err)
	}

	final := lastMessage(t, s)
	if final.Content != "kept" {
		t.Errorf("content = %q", final.Content)
	}
	if strings.Contains(final.Content, "[Error") {
		t.Error("cancelled message must not carry an error annotation")
	}
}

func TestStream_MisconfiguredModelSwapsFallback(t *testing.T) {
	s := newTestStore(t)
	s.SelectModel(model.Mercury.ID)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{
		streamErr: fmt.Errorf("completion request: %w", provider.ErrModelNotFound),
	}

	engine := New(Config{Store: s, Client: client})
	if err := engine.Stream(context.Background(), chatID, model.GroqLlama3, history("hi")); err == nil {
		t.Fatal("expected error")
	}

	if got := s.SelectedModel().ID; got != model.FallbackModel.ID {
		t.Errorf("selected model = %q, want fallback %q", got, model.FallbackModel.ID)
	}
	final := lastMessage(t, s)
	if !strings.Contains(final.Content, model.FallbackModel.Name) {
		t.Errorf("annotation should name the fallback model: %q", final.Content)
	}
	if !strings.Contains(final.Content, "retry") {
		t.Errorf("annotation should instruct a retry: %q", final.Content)
	}
}

// =============================================================================
// STRATEGY B
// =============================================================================

func TestSimulate_RevealsPerRune(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{completeText: "héllo"}

	var interim []string
	engine := New(Config{
		Store:  s,
		Client: client,
		Clock:  instantClock{},
		Notify: func() {
			interim = append(interim, lastMessage(t, s).Content)
		},
	})

	if err := engine.Simulate(context.Background(), chatID, model.Mercury, history("hi")); err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	final := lastMessage(t, s)
	if final.Content != "héllo" {
		t.Errorf("final content = %q", final.Content)
	}

	// Placeholder + one write per rune + finalize.
	wantWrites := 1 + len([]rune("héllo")) + 1
	if len(interim) != wantWrites {
		t.Errorf("got %d writes, want %d", len(interim), wantWrites)
	}
	var prev string
	for _, snap := range interim {
		body := strings.TrimSuffix(snap, model.StreamCursor)
		if !strings.HasPrefix(body, strings.TrimSuffix(prev, model.StreamCursor)) && prev != model.StreamCursor {
			t.Errorf("writes are not monotonic: %q after %q", snap, prev)
		}
		prev = snap
	}
}

func TestSimulate_CleanupApplied(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{completeText: "  raw  "}

	engine := New(Config{
		Store:   s,
		Client:  client,
		Clock:   instantClock{},
		Cleanup: strings.TrimSpace,
	})

	if err := engine.Simulate(context.Background(), chatID, model.Mercury, history("hi")); err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if got := lastMessage(t, s).Content; got != "raw" {
		t.Errorf("content = %q, want cleanup applied", got)
	}
}

func TestSimulate_StopKeepsRevealedPrefix(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	full := strings.Repeat("abcdefghij", 10)
	client := &fakeCompleter{completeText: full}

	var engine *Engine
	writes := 0
	engine = New(Config{
		Store:  s,
		Client: client,
		Clock:  instantClock{},
		Notify: func() {
			writes++
			if writes == 5 {
				engine.Stop()
			}
		},
	})

	if err := engine.Simulate(context.Background(), chatID, model.Mercury, history("hi")); err != nil {
		t.Fatalf("cancellation should not surface an error, got %v", err)
	}

	final := lastMessage(t, s)
	if !strings.HasPrefix(full, final.Content) {
		t.Errorf("final content is not a prefix of the response: %q", final.Content)
	}
	if len(final.Content) == len(full) {
		t.Error("stop had no effect, entire response was revealed")
	}
	if final.IsStreaming() {
		t.Error("cancelled message still carries the cursor")
	}
}

func TestSimulate_FetchErrorAnnotated(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{completeErr: provider.ErrAuthFailed}

	engine := New(Config{Store: s, Client: client, Clock: instantClock{}})
	err := engine.Simulate(context.Background(), chatID, model.Mercury, history("hi"))
	if !errors.Is(err, provider.ErrAuthFailed) {
		t.Fatalf("err = %v", err)
	}
	final := lastMessage(t, s)
	if !strings.Contains(final.Content, "[Error: ") {
		t.Errorf("missing annotation: %q", final.Content)
	}
}

// =============================================================================
// SHARED BEHAVIOR
// =============================================================================

func TestGenerate_DispatchesByModel(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{deltas: []string{"a"}, completeText: "b"}
	engine := New(Config{Store: s, Client: client, Clock: instantClock{}})

	if err := engine.Generate(context.Background(), chatID, model.GroqLlama3, history("hi")); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if client.streamCalls != 1 || client.completeCalls != 0 {
		t.Errorf("streaming model: stream=%d complete=%d", client.streamCalls, client.completeCalls)
	}

	if err := engine.Generate(context.Background(), chatID, model.Mercury, history("hi")); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if client.completeCalls != 1 {
		t.Errorf("non-streaming model: complete=%d", client.completeCalls)
	}
}

func TestGenerate_SingleTurnHistoryReduced(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{completeText: "ok"}
	engine := New(Config{Store: s, Client: client, Clock: instantClock{}})

	full := []provider.ChatMessage{
		{Role: "system", Content: "system prompt"},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}
	if err := engine.Generate(context.Background(), chatID, model.Mercury, full); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(client.lastHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(client.lastHistory))
	}
	if client.lastHistory[0].Role != "system" {
		t.Errorf("first message role = %q", client.lastHistory[0].Role)
	}
	if client.lastHistory[1].Content != "second" {
		t.Errorf("user turn = %q, want latest", client.lastHistory[1].Content)
	}
}

func TestSecondGenerationRejectedWhileInFlight(t *testing.T) {
	s := newTestStore(t)
	chatID := s.CurrentChatID()
	client := &fakeCompleter{block: make(chan struct{})}
	engine := New(Config{Store: s, Client: client})

	started := make(chan struct{})
	finished := make(chan error, 1)
	go func() {
		close(started)
		finished <- engine.Stream(context.Background(), chatID, model.GroqLlama3, history("hi"))
	}()
	<-started

	// Wait for the first generation to take the slot.
	deadline := time.After(2 * time.Second)
	for !engine.Active() {
		select {
		case <-deadline:
			t.Fatal("first generation never became active")
		case <-time.After(time.Millisecond):
		}
	}

	err := engine.Stream(context.Background(), chatID, model.GroqLlama3, history("again"))
	if !errors.Is(err, ErrStreamInFlight) {
		t.Errorf("err = %v, want ErrStreamInFlight", err)
	}

	close(client.block)
	if err := <-finished; err != nil {
		t.Errorf("first generation failed: %v", err)
	}
	if engine.Active() {
		t.Error("engine still active after completion")
	}
}

func TestStopIsIdleSafe(t *testing.T) {
	engine := New(Config{Store: newTestStore(t), Client: &fakeCompleter{}})
	engine.Stop()
	engine.Stop()
}
