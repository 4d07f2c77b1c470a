// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/preetam-90/vidion-ai/internal/export"
	"github.com/preetam-90/vidion-ai/internal/model"
)

// =============================================================================
// CLIPBOARD
// =============================================================================

// copyLastResponse copies the newest finished assistant message to the
// system clipboard.
func (m *Model) copyLastResponse() tea.Cmd {
	content := lastAssistantContent(m.store.CurrentChat())
	if content == "" {
		return m.setStatus("nothing to copy yet")
	}
	if err := clipboard.WriteAll(content); err != nil {
		return m.setStatus("clipboard unavailable: " + err.Error())
	}
	return m.setStatus("response copied")
}

// lastAssistantContent returns the content of the newest assistant message
// that is neither empty nor mid-stream.
func lastAssistantContent(chat model.Chat) string {
	for i := len(chat.Messages) - 1; i >= 0; i-- {
		msg := chat.Messages[i]
		if msg.Role != model.RoleAssistant || msg.IsEmpty() {
			continue
		}
		if strings.HasSuffix(msg.Content, model.StreamCursor) {
			continue
		}
		return msg.Content
	}
	return ""
}

// =============================================================================
// REGENERATION
// =============================================================================

// dropLastAssistantTurn trims the newest message off a chat when it is an
// assistant turn, returning the remaining history. It reports false when the
// chat does not end with an assistant message, in which case there is
// nothing to regenerate.
func dropLastAssistantTurn(chat model.Chat) ([]model.Message, bool) {
	n := len(chat.Messages)
	if n == 0 || chat.Messages[n-1].Role != model.RoleAssistant {
		return nil, false
	}
	return chat.Messages[:n-1], true
}

// =============================================================================
// EXPORT
// =============================================================================

// exportCmd writes the current chat to a Markdown file in the export
// directory.
func (m *Model) exportCmd() tea.Cmd {
	chat := m.store.CurrentChat()
	opts := export.DefaultOptions()
	opts.IncludeThinking = m.showThinking
	return func() tea.Msg {
		path, err := export.ToFile(chat, export.NewMarkdownExporter(opts), opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}
