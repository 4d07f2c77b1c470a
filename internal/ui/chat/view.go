// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/util"
)

// View renders the whole application frame.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}
	if m.showHelp {
		return m.helpView()
	}

	var rows []string
	rows = append(rows, m.headerView())

	content := m.viewport.View()
	if m.state == StateSearching {
		content = m.searchView()
	}

	if m.sidebarVisible() {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), content))
	} else {
		rows = append(rows, content)
	}

	rows = append(rows, m.composerView())
	rows = append(rows, m.statusView())

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) headerView() string {
	title := m.theme.HeaderTitle.Render("Vidion AI")
	selected := m.store.SelectedModel()
	badge := m.theme.ModelBadge.Render(selected.Name)
	sub := m.theme.HeaderSubtitle.Render("via " + string(selected.Provider))

	line := title + "  " + badge
	if m.width > len("Vidion AI")+len(selected.Name)+24 {
		line += "  " + sub
	}
	return m.theme.Header.Width(m.width).Render(line)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) sidebarView() string {
	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render("Chats"))
	sb.WriteString("\n\n")

	current := m.store.CurrentChatID()
	innerWidth := sidebarWidth - 4

	for _, chat := range m.store.Chats() {
		title := util.TruncateWidth(chat.Title, innerWidth)
		meta := m.theme.ChatItemMeta.Render(
			fmt.Sprintf("%d msgs", chat.MessageCount()))

		if chat.ID == current {
			sb.WriteString(m.theme.ChatItemSelected.Render("> " + title))
		} else {
			sb.WriteString(m.theme.ChatItem.Render(title))
		}
		sb.WriteString("\n")
		sb.WriteString("   " + meta)
		sb.WriteString("\n")
	}

	return m.theme.Sidebar.
		Width(sidebarWidth - 2).
		Height(m.viewport.Height).
		Render(sb.String())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript rebuilds the viewport content from the current chat.
func (m *Model) renderTranscript() {
	chat := m.store.CurrentChat()

	var sb strings.Builder
	for _, msg := range chat.Messages {
		if msg.Role == model.RoleSystem {
			continue
		}
		sb.WriteString(m.renderMessage(msg))
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		sb.WriteString(m.theme.ChatItemMeta.Render(
			"No messages yet. Type below to start, or prefix with /search, /reason, /research."))
	}

	m.viewport.SetContent(sb.String())
}

func (m *Model) renderMessage(msg model.Message) string {
	var label string
	bubble := m.theme.AssistantBubble
	switch msg.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render("You")
		bubble = m.theme.UserBubble
	default:
		label = m.theme.AssistantLabel.Render("Vidion")
	}
	stamp := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	var body strings.Builder
	if m.showThinking && msg.Thinking != "" {
		body.WriteString(m.theme.ThinkingBlock.Render(msg.Thinking))
		body.WriteString("\n")
	}
	body.WriteString(m.renderContent(msg))

	width := max(m.viewport.Width-4, 20)
	return label + " " + stamp + "\n" +
		bubble.Width(width).Render(body.String()) + "\n"
}

// renderContent runs finalized assistant messages through glamour. Streaming
// text and user messages stay raw so the cursor glyph and partial markdown
// do not flicker through the renderer.
func (m *Model) renderContent(msg model.Message) string {
	content := msg.Content
	if msg.Role != model.RoleAssistant || m.glam == nil {
		return content
	}
	if strings.HasSuffix(content, model.StreamCursor) {
		return content
	}
	rendered, err := m.glam.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}

// =============================================================================
// SEARCH OVERLAY
// =============================================================================

func (m Model) searchView() string {
	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render("Search History"))
	sb.WriteString("\n\n")
	sb.WriteString(m.searchInput.View())
	sb.WriteString("\n\n")

	switch {
	case m.searchErr != nil:
		sb.WriteString(m.theme.ErrorText.Render(m.searchErr.Error()))
	case len(m.searchResults) == 0:
		sb.WriteString(m.theme.ChatItemMeta.Render(
			"Type a query and press Enter. Esc closes."))
	default:
		for i, r := range m.searchResults {
			line := fmt.Sprintf("%s | %s: %s",
				r.ChatTitle, r.Role.DisplayName(),
				util.TruncateWidth(r.Snippet, max(m.viewport.Width-30, 20)))
			if i == m.searchSel {
				sb.WriteString(m.theme.ChatItemSelected.Render("> " + line))
			} else {
				sb.WriteString(m.theme.ChatItem.Render(line))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		sb.WriteString(m.theme.ChatItemMeta.Render(
			"up/down selects, Enter opens the chat"))
	}

	return lipgloss.NewStyle().
		Width(m.viewport.Width).
		Height(m.viewport.Height).
		Render(sb.String())
}

// =============================================================================
// COMPOSER AND STATUS
// =============================================================================

func (m Model) composerView() string {
	style := m.theme.Composer
	if m.state == StateReady {
		style = m.theme.ComposerFocused
	}
	width := m.width
	if m.sidebarVisible() {
		width -= sidebarWidth
	}
	return style.Width(max(width-2, 20)).Render(m.input.View())
}

func (m Model) statusView() string {
	var left string
	switch {
	case m.state == StateStreaming:
		left = m.spinner.View() + " generating... (Esc stops)"
	case m.statusMsg != "":
		left = m.statusMsg
	default:
		var parts []string
		for _, b := range m.keyMap.ShortHelp() {
			parts = append(parts,
				m.theme.ShortcutKey.Render(b.Help().Key)+" "+
					m.theme.ShortcutDesc.Render(b.Help().Desc))
		}
		left = strings.Join(parts, "  ")
	}
	return m.theme.StatusBar.Width(m.width).Render(left)
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) helpView() string {
	var sb strings.Builder
	sb.WriteString(m.theme.HeaderTitle.Render("Keyboard Shortcuts"))
	sb.WriteString("\n\n")

	for _, group := range m.keyMap.FullHelp() {
		for _, b := range group {
			sb.WriteString(fmt.Sprintf("  %s  %s\n",
				m.theme.ShortcutKey.Render(fmt.Sprintf("%-10s", b.Help().Key)),
				m.theme.ShortcutDesc.Render(b.Help().Desc)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(m.theme.ChatItemMeta.Render(
		"Message prefixes: /search (online), /reason, /research. Any key closes this help."))

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Padding(1, 2).
		Render(sb.String())
}
