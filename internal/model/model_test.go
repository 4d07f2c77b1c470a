// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage_GeneratesUniqueIDs(t *testing.T) {
	a := NewUserMessage("one")
	b := NewUserMessage("two")

	if a.ID == "" || b.ID == "" {
		t.Fatal("expected non-empty message IDs")
	}
	if a.ID == b.ID {
		t.Errorf("expected unique IDs, both were %q", a.ID)
	}
	if !strings.HasPrefix(a.ID, "msg_") {
		t.Errorf("expected msg_ prefix, got %q", a.ID)
	}
}

func TestMessage_Finalized_StripsCursor(t *testing.T) {
	msg := NewAssistantMessage().WithContent("partial response" + StreamCursor)

	if !msg.IsStreaming() {
		t.Fatal("message with cursor should report streaming")
	}

	done := msg.Finalized()
	if done.Content != "partial response" {
		t.Errorf("Finalized content = %q, want %q", done.Content, "partial response")
	}
	if done.IsStreaming() {
		t.Error("finalized message should not report streaming")
	}

	// Original message is untouched.
	if !msg.IsStreaming() {
		t.Error("WithContent/Finalized must not mutate the receiver")
	}
}

func TestMessage_Finalized_NoCursorIsNoop(t *testing.T) {
	msg := NewAssistantMessage().WithContent("complete")
	if got := msg.Finalized().Content; got != "complete" {
		t.Errorf("Finalized content = %q, want %q", got, "complete")
	}
}

func TestMessage_Preview(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		maxLen   int
		expected string
	}{
		{"short", "hi", 30, "hi"},
		{"exact", strings.Repeat("a", 30), 30, strings.Repeat("a", 30)},
		{"long", strings.Repeat("a", 31), 30, strings.Repeat("a", 30) + "..."},
		{"unicode", "日本語のテキストです", 4, "日本語の..."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := NewUserMessage(tc.content)
			if got := msg.Preview(tc.maxLen); got != tc.expected {
				t.Errorf("Preview(%d) = %q, want %q", tc.maxLen, got, tc.expected)
			}
		})
	}
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestNewChat_SeedsSystemPrompt(t *testing.T) {
	chat := NewChat(SystemPrompt)

	if chat.ID == "" {
		t.Fatal("expected non-empty chat ID")
	}
	if chat.Title != DefaultChatTitle {
		t.Errorf("Title = %q, want %q", chat.Title, DefaultChatTitle)
	}
	if len(chat.Messages) != 1 || chat.Messages[0].Role != RoleSystem {
		t.Fatalf("expected a single system message, got %d messages", len(chat.Messages))
	}
	if !chat.IsBlank() {
		t.Error("fresh chat should be blank")
	}
}

func TestChat_IsBlank(t *testing.T) {
	chat := NewChat(SystemPrompt)
	if !chat.IsBlank() {
		t.Error("system-only chat should be blank")
	}

	chat = chat.WithMessage(NewUserMessage("hello"))
	if chat.IsBlank() {
		t.Error("chat with a user message should not be blank")
	}

	// Assistant-only content still counts as blank: nothing the user typed.
	noUser := NewChat(SystemPrompt)
	noUser = noUser.WithMessage(NewMessage(RoleAssistant, "greeting"))
	if !noUser.IsBlank() {
		t.Error("chat without a user message should be blank")
	}
}

func TestChat_DeriveTitle_TruncatesTo30(t *testing.T) {
	chat := NewChat(SystemPrompt)

	long := "Explain how garbage collection works in the Go runtime"
	chat = chat.WithMessage(NewUserMessage(long))

	want := string([]rune(long)[:30]) + "..."
	if chat.Title != want {
		t.Errorf("Title = %q, want %q", chat.Title, want)
	}
}

func TestChat_DeriveTitle_ShortMessageKeptWhole(t *testing.T) {
	chat := NewChat(SystemPrompt).WithMessage(NewUserMessage("short question"))
	if chat.Title != "short question" {
		t.Errorf("Title = %q, want %q", chat.Title, "short question")
	}
}

func TestChat_DeriveTitle_FirstUserMessageWins(t *testing.T) {
	chat := NewChat(SystemPrompt).
		WithMessage(NewUserMessage("first")).
		WithMessage(NewMessage(RoleAssistant, "reply")).
		WithMessage(NewUserMessage("second"))

	if chat.Title != "first" {
		t.Errorf("Title = %q, want %q", chat.Title, "first")
	}
}

func TestChat_WithMessage_DoesNotMutateReceiver(t *testing.T) {
	base := NewChat(SystemPrompt)
	baseLen := len(base.Messages)

	updated := base.WithMessage(NewUserMessage("hello"))

	if len(base.Messages) != baseLen {
		t.Errorf("receiver grew to %d messages", len(base.Messages))
	}
	if len(updated.Messages) != baseLen+1 {
		t.Errorf("updated has %d messages, want %d", len(updated.Messages), baseLen+1)
	}
}

func TestChat_Clone_IsDeep(t *testing.T) {
	chat := NewChat(SystemPrompt).WithMessage(NewUserMessage("hello"))
	clone := chat.Clone()

	clone.Messages[0] = clone.Messages[0].WithContent("mutated")
	if chat.Messages[0].Content == "mutated" {
		t.Error("clone shares message storage with original")
	}
}

// =============================================================================
// MODEL CATALOG TESTS
// =============================================================================

func TestGetModel(t *testing.T) {
	m, ok := GetModel("groq-llama3-8b")
	if !ok {
		t.Fatal("expected groq-llama3-8b in catalog")
	}
	if m.Provider != ProviderGroq {
		t.Errorf("Provider = %q, want %q", m.Provider, ProviderGroq)
	}
	if m.APIEndpoint != GroqEndpoint {
		t.Errorf("APIEndpoint = %q, want %q", m.APIEndpoint, GroqEndpoint)
	}

	if _, ok := GetModel("no-such-model"); ok {
		t.Error("unknown ID should not resolve")
	}
}

func TestGetModelOrDefault(t *testing.T) {
	if got := GetModelOrDefault(""); got.ID != DefaultModel.ID {
		t.Errorf("empty ID resolved to %q, want default %q", got.ID, DefaultModel.ID)
	}
	if got := GetModelOrDefault("bogus"); got.ID != DefaultModel.ID {
		t.Errorf("unknown ID resolved to %q, want default %q", got.ID, DefaultModel.ID)
	}
	if got := GetModelOrDefault(Sonar.ID); got.ID != Sonar.ID {
		t.Errorf("known ID resolved to %q, want %q", got.ID, Sonar.ID)
	}
}

func TestGetModelByOverride(t *testing.T) {
	selected := GroqLlama3

	testCases := []struct {
		key  string
		want string
	}{
		{"search", Sonar.ID},
		{"reason", ClaudeHaiku.ID},
		{"research", ClaudeOpus.ID},
		{"SEARCH", Sonar.ID},
		{" search ", Sonar.ID},
		{"unknown", selected.ID},
		{"", selected.ID},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			got := GetModelByOverride(tc.key, selected)
			if got.ID != tc.want {
				t.Errorf("GetModelByOverride(%q) = %q, want %q", tc.key, got.ID, tc.want)
			}
		})
	}
}

func TestAvailableModels_ContainsDefaultAndFallback(t *testing.T) {
	ids := map[string]bool{}
	for _, m := range AvailableModels() {
		ids[m.ID] = true
	}
	if !ids[DefaultModel.ID] {
		t.Error("default model missing from catalog")
	}
	if !ids[FallbackModel.ID] {
		t.Error("fallback model missing from catalog")
	}
}
