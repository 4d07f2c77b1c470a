// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/provider"
	"github.com/preetam-90/vidion-ai/internal/stream"
)

// Update handles all incoming Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.renderTranscript()
		return m, nil

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StoreChangedMsg:
		m.throttle.Mark()
		if m.state != StateStreaming {
			m.throttle.Force()
			m.renderTranscript()
		}
		return m, nil

	case StreamTickMsg:
		if m.throttle.Consume() {
			m.renderTranscript()
			m.viewport.GotoBottom()
		}
		if m.state == StateStreaming {
			return m, streamTickCmd()
		}
		return m, nil

	case GenerateDoneMsg:
		return m.onGenerateDone(msg)

	case SearchDoneMsg:
		m.searchResults = msg.Results
		m.searchErr = msg.Err
		m.searchSel = 0
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			return m, m.setStatus("export failed: " + msg.Err.Error())
		}
		return m, m.setStatus("exported to " + msg.Path)

	case StatusExpiredMsg:
		if msg.Seq == m.statusSeq {
			m.statusMsg = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.onKey(msg)
	}

	return m, nil
}

// =============================================================================
// GENERATION LIFECYCLE
// =============================================================================

func (m Model) onGenerateDone(msg GenerateDoneMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.Err, stream.ErrStreamInFlight) {
		return m, m.setStatus("a response is already being generated")
	}

	if msg.ChatID == m.streamingChatID {
		m.streamingChatID = ""
		m.state = StateReady
	}
	m.throttle.Force()

	// A stream that finished for a background chat must not clobber the
	// visible transcript or yank the scroll position.
	if msg.ChatID == m.store.CurrentChatID() {
		m.renderTranscript()
		m.viewport.GotoBottom()
	}

	// Keep the search index current; failures only cost search freshness.
	if m.history != nil {
		if chat, err := m.store.Chat(msg.ChatID); err == nil {
			_ = m.history.IndexChat(chat)
		}
	}
	return m, nil
}

func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	if m.engine.Active() {
		return m.setStatus("wait for the current response to finish")
	}

	override, text := parseOverride(text)
	if text == "" {
		return nil
	}
	m.input.Reset()

	chat := m.store.CurrentChat()
	m.store.AppendMessage(chat.ID, model.NewUserMessage(text))

	selected := m.store.SelectedModel()
	mdl := model.GetModelByOverride(override, selected)

	updated, err := m.store.Chat(chat.ID)
	if err != nil {
		return m.setStatus("chat vanished: " + err.Error())
	}
	history := provider.MessagesFromChat(updated)

	m.state = StateStreaming
	m.streamingChatID = chat.ID
	m.renderTranscript()
	m.viewport.GotoBottom()

	return tea.Batch(
		m.generateCmd(chat.ID, mdl, history),
		streamTickCmd(),
		m.spinner.Tick,
	)
}

// regenerate discards the newest assistant turn and reruns generation with
// the same preceding history on the currently selected model.
func (m *Model) regenerate() tea.Cmd {
	if m.engine.Active() {
		return m.setStatus("wait for the current response to finish")
	}

	chat := m.store.CurrentChat()
	history, ok := dropLastAssistantTurn(chat)
	if !ok {
		return m.setStatus("no response to regenerate")
	}
	m.store.ReplaceMessages(chat.ID, history)

	updated, err := m.store.Chat(chat.ID)
	if err != nil {
		return m.setStatus("chat vanished: " + err.Error())
	}

	m.state = StateStreaming
	m.streamingChatID = chat.ID
	m.renderTranscript()
	m.viewport.GotoBottom()

	return tea.Batch(
		m.generateCmd(chat.ID, m.store.SelectedModel(), provider.MessagesFromChat(updated)),
		streamTickCmd(),
		m.spinner.Tick,
	)
}

// parseOverride splits a leading override prefix off the composer text.
// "/search what is x" routes that one turn to the online search model,
// "/reason" and "/research" likewise pick their specialist models.
func parseOverride(text string) (key, rest string) {
	for _, prefix := range []string{"/search ", "/reason ", "/research "} {
		if strings.HasPrefix(text, prefix) {
			return strings.TrimPrefix(strings.TrimSuffix(prefix, " "), "/"),
				strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}
	return "", text
}

// =============================================================================
// KEY DISPATCH
// =============================================================================

func (m Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Quit) {
		m.engine.Stop()
		return m, tea.Quit
	}

	if m.state == StateSearching {
		return m.onSearchKey(msg)
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keyMap.Submit):
		return m, m.submit()

	case key.Matches(msg, m.keyMap.Stop):
		if m.state == StateStreaming {
			m.engine.Stop()
			return m, m.setStatus("stopping...")
		}
		return m, nil

	case key.Matches(msg, m.keyMap.NewChat):
		m.store.CreateChat()
		m.renderTranscript()
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.NextChat):
		m.stepChat(1)
		return m, nil

	case key.Matches(msg, m.keyMap.PrevChat):
		m.stepChat(-1)
		return m, nil

	case key.Matches(msg, m.keyMap.Delete):
		if m.state == StateStreaming {
			return m, m.setStatus("stop the stream before deleting")
		}
		id := m.store.CurrentChatID()
		if err := m.store.DeleteChat(id); err == nil && m.history != nil {
			_ = m.history.RemoveChat(id)
		}
		m.renderTranscript()
		return m, nil

	case key.Matches(msg, m.keyMap.Regenerate):
		return m, m.regenerate()

	case key.Matches(msg, m.keyMap.Model):
		next := m.cycleModel()
		return m, m.setStatus("model: " + next.Name)

	case key.Matches(msg, m.keyMap.Copy):
		return m, m.copyLastResponse()

	case key.Matches(msg, m.keyMap.Export):
		if m.state == StateStreaming {
			return m, m.setStatus("wait for the response to finish")
		}
		return m, m.exportCmd()

	case key.Matches(msg, m.keyMap.Search):
		m.state = StateSearching
		m.searchResults = nil
		m.searchErr = nil
		m.searchInput.Reset()
		m.searchInput.Focus()
		m.input.Blur()
		return m, textinput.Blink

	case key.Matches(msg, m.keyMap.Sidebar):
		m.showSidebar = !m.showSidebar
		m.resize(m.width, m.height)
		m.renderTranscript()
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) onSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = StateReady
		m.searchInput.Blur()
		m.input.Focus()
		return m, nil

	case "enter":
		if len(m.searchResults) > 0 && m.searchInput.Value() == "" {
			return m.openSearchResult()
		}
		query := strings.TrimSpace(m.searchInput.Value())
		if query == "" {
			return m, nil
		}
		m.searchInput.Reset()
		return m, m.searchCmd(query)

	case "up":
		if m.searchSel > 0 {
			m.searchSel--
		}
		return m, nil

	case "down":
		if m.searchSel < len(m.searchResults)-1 {
			m.searchSel++
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) openSearchResult() (tea.Model, tea.Cmd) {
	result := m.searchResults[m.searchSel]
	if err := m.store.SelectChat(result.ChatID); err != nil {
		return m, m.setStatus("that chat no longer exists")
	}
	m.state = StateReady
	m.searchInput.Blur()
	m.input.Focus()
	m.renderTranscript()
	m.viewport.GotoBottom()
	return m, nil
}

// =============================================================================
// CHAT NAVIGATION
// =============================================================================

// stepChat moves the selection through the sidebar list by delta.
func (m *Model) stepChat(delta int) {
	chats := m.store.Chats()
	if len(chats) < 2 {
		return
	}
	current := m.store.CurrentChatID()
	for i, chat := range chats {
		if chat.ID == current {
			next := (i + delta + len(chats)) % len(chats)
			m.store.SelectChat(chats[next].ID)
			break
		}
	}
	m.renderTranscript()
	m.viewport.GotoBottom()
}

// cycleModel advances the persisted model selection through the catalog.
func (m *Model) cycleModel() model.Model {
	models := model.AvailableModels()
	selected := m.store.SelectedModel()
	for i, entry := range models {
		if entry.ID == selected.ID {
			return m.store.SelectModel(models[(i+1)%len(models)].ID)
		}
	}
	return m.store.SelectModel(models[0].ID)
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.Resize(width, height)

	contentWidth := width
	if m.sidebarVisible() {
		contentWidth -= sidebarWidth
	}

	// Header and status bar take one row each, the composer three.
	m.viewport.Width = contentWidth
	m.viewport.Height = max(height-5, 3)
	m.input.Width = max(contentWidth-6, 10)
	m.searchInput.Width = m.input.Width
}

func (m Model) sidebarVisible() bool {
	return m.showSidebar && m.width >= minSidebarTermW
}
