// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea messages and commands that connect the
// generation engine and the history index to the update loop.
package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/preetam-90/vidion-ai/internal/index"
	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/provider"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StoreChangedMsg signals that the chat store was mutated outside the update
// loop. The engine's Notify hook sends one per message write.
type StoreChangedMsg struct{}

// StreamTickMsg drives throttled re-rendering while a generation is active.
type StreamTickMsg struct {
	Time time.Time
}

// GenerateDoneMsg reports the end of a generation, successful or not.
type GenerateDoneMsg struct {
	ChatID string
	Err    error
}

// SearchDoneMsg carries history search results back to the update loop.
type SearchDoneMsg struct {
	Query   string
	Results []index.SearchResult
	Err     error
}

// StatusExpiredMsg clears a transient status line message.
type StatusExpiredMsg struct {
	Seq int
}

// ExportDoneMsg reports the outcome of a transcript export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// =============================================================================
// COMMANDS
// =============================================================================

// generateCmd runs one generation on the engine. The engine writes into the
// store as it goes; this command only reports completion.
func (m *Model) generateCmd(chatID string, mdl model.Model, history []provider.ChatMessage) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		err := engine.Generate(context.Background(), chatID, mdl, history)
		return GenerateDoneMsg{ChatID: chatID, Err: err}
	}
}

// streamTickCmd emits StreamTickMsg at 30fps while streaming, capping how
// often the transcript re-renders.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// searchCmd queries the history index off the update loop.
func (m *Model) searchCmd(query string) tea.Cmd {
	history := m.history
	return func() tea.Msg {
		if history == nil {
			return SearchDoneMsg{Query: query, Err: index.ErrNotIndexed}
		}
		results, err := history.Search(query, nil)
		return SearchDoneMsg{Query: query, Results: results, Err: err}
	}
}

// expireStatusCmd schedules a status message to clear.
func expireStatusCmd(seq int) tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return StatusExpiredMsg{Seq: seq}
	})
}
