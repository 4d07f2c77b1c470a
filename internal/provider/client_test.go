// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/preetam-90/vidion-ai/internal/model"
)

func TestComplete_ReturnsContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Stream {
			t.Error("non-streaming completion must not set stream")
		}
		if req.Model != "test/model-1" {
			t.Errorf("model = %q", req.Model)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"the answer"}}]}`)
	}))
	defer server.Close()

	got, err := testClient().Complete(context.Background(), testModel(server.URL), []ChatMessage{
		{Role: "user", Content: "question"},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "the answer" {
		t.Errorf("content = %q", got)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	_, err := testClient().Complete(context.Background(), testModel(server.URL), nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestComplete_AuthErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer server.Close()

	_, err := testClient().Complete(context.Background(), testModel(server.URL), nil)
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}
}

func TestComplete_ServerErrorRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"transient"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"recovered"}}]}`)
	}))
	defer server.Close()

	got, err := testClient().Complete(context.Background(), testModel(server.URL), nil)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "recovered" {
		t.Errorf("content = %q", got)
	}
	if calls != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}
}

func TestComplete_NotConfigured(t *testing.T) {
	client := NewClient(Config{GroqAPIKey: "set"}, nil)

	// Groq is configured, OpenRouter is not.
	if _, err := client.Complete(context.Background(), model.Mercury, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	if !client.IsConfigured(model.ProviderGroq) {
		t.Error("Groq should be configured")
	}
	if client.IsConfigured(model.ProviderOpenRouter) {
		t.Error("OpenRouter should not be configured")
	}
}

func TestComplete_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel the request context.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient().Complete(ctx, testModel(server.URL), nil)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestOpenRouterAttributionHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("HTTP-Referer"); got != "https://vidion.ai" {
			t.Errorf("HTTP-Referer = %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "Vidion AI" {
			t.Errorf("X-Title = %q", got)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{
		OpenRouterAPIKey:  "sk-or-test",
		SiteURL:           "https://vidion.ai",
		SiteName:          "Vidion AI",
		RequestsPerSecond: 1000,
	}, nil)

	if _, err := client.Complete(context.Background(), testModel(server.URL), nil); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
}

func TestMessagesFromChat_DropsEmpty(t *testing.T) {
	chat := model.NewChat("system prompt").
		WithMessage(model.NewUserMessage("question")).
		WithMessage(model.NewAssistantMessage()) // placeholder, no content

	msgs := MessagesFromChat(chat)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Errorf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}
}

func TestReduceHistory(t *testing.T) {
	full := []ChatMessage{
		{Role: "system", Content: "prompt"},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}

	reduced := ReduceHistory(model.Mercury, full)
	if len(reduced) != 2 {
		t.Fatalf("got %d messages, want 2", len(reduced))
	}
	if reduced[0].Role != "system" || reduced[1].Content != "second" {
		t.Errorf("reduced = %+v", reduced)
	}

	if got := ReduceHistory(model.GroqLlama3, full); len(got) != len(full) {
		t.Errorf("multi-turn model history reduced to %d messages", len(got))
	}
}

func TestCalculateBackoff(t *testing.T) {
	if d := calculateBackoff(1); d != time.Second {
		t.Errorf("attempt 1 delay = %v, want 1s", d)
	}
	if d := calculateBackoff(20); d != retryMaxDelay {
		t.Errorf("large attempt delay = %v, want cap %v", d, retryMaxDelay)
	}
}
