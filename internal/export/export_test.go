// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/preetam-90/vidion-ai/internal/model"
)

func testChat() model.Chat {
	chat := model.NewChat("system prompt")
	chat = chat.WithMessage(model.NewUserMessage("How do I reverse a slice in Go?"))
	reply := model.NewAssistantMessage().
		WithContent("Use a swap loop:\n\n```go\nfor i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {\n\ts[i], s[j] = s[j], s[i]\n}\n```").
		WithThinking("user wants an idiomatic approach")
	return chat.WithMessage(reply)
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(testChat())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	content := string(out)

	for _, want := range []string{
		"### You",
		"### Vidion",
		"reverse a slice",
		"```go",
		"generator: vidion",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("missing %q in markdown output", want)
		}
	}
	if strings.Contains(content, "system prompt") {
		t.Error("system prompt must not be exported")
	}
}

func TestMarkdownExporter_Thinking(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeThinking = true
	out, err := NewMarkdownExporter(opts).Export(testChat())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(out), "> idiomatic approach") && !strings.Contains(string(out), "idiomatic approach") {
		t.Error("thinking block missing from output")
	}

	out, err = NewMarkdownExporter(nil).Export(testChat())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if strings.Contains(string(out), "idiomatic approach") {
		t.Error("thinking block exported without opt-in")
	}
}

func TestHTMLExporter(t *testing.T) {
	out, err := NewHTMLExporter(nil).Export(testChat())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	content := string(out)

	for _, want := range []string{
		"<!DOCTYPE html>",
		"dark-theme",
		"user-message",
		"assistant-message",
		"code-lang",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("missing %q in HTML output", want)
		}
	}
}

func TestHTMLExporter_EscapesContent(t *testing.T) {
	chat := model.NewChat("prompt").
		WithMessage(model.NewUserMessage("is <script>alert(1)</script> dangerous?"))
	out, err := NewHTMLExporter(nil).Export(chat)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if strings.Contains(string(out), "<script>alert(1)</script>") {
		t.Error("user content was not escaped")
	}
}

func TestJSONExporter_RoundTrip(t *testing.T) {
	chat := testChat()
	out, err := NewJSONExporter().Export(chat)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var decoded model.Chat
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("exported JSON does not parse: %v", err)
	}
	if decoded.ID != chat.ID || decoded.Title != chat.Title {
		t.Errorf("identity lost: got %q/%q", decoded.ID, decoded.Title)
	}
	if len(decoded.Messages) != len(chat.Messages) {
		t.Errorf("message count = %d, want %d", len(decoded.Messages), len(chat.Messages))
	}
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir
	opts.OpenAfterExport = false

	path, err := ToFile(testChat(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ToFile failed: %v", err)
	}
	if filepath.Ext(path) != ".md" {
		t.Errorf("path = %q, want .md extension", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

func TestExport_EmptyChat(t *testing.T) {
	chat := model.NewChat("prompt only")
	if _, err := NewMarkdownExporter(nil).Export(chat); err == nil {
		t.Error("markdown export of empty chat should fail")
	}
	if _, err := NewHTMLExporter(nil).Export(chat); err == nil {
		t.Error("HTML export of empty chat should fail")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Simple Title", "Simple_Title"},
		{"a/b\\c:d", "a-b-c-d"},
		{"", "chat"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
