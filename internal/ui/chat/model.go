// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/preetam-90/vidion-ai/internal/index"
	"github.com/preetam-90/vidion-ai/internal/store"
	"github.com/preetam-90/vidion-ai/internal/stream"
	"github.com/preetam-90/vidion-ai/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Composer focused, ready for input
	StateStreaming              // A generation is in flight
	StateSearching              // History search overlay active
)

// =============================================================================
// LAYOUT CONSTANTS
// =============================================================================

const (
	sidebarWidth    = 28
	minSidebarTermW = 90 // Hide the sidebar on narrower terminals
	composerLimit   = 4096
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State
	theme *styles.Theme

	width  int
	height int

	// Domain
	store   *store.Store
	engine  *stream.Engine
	history *index.HistoryIndex // may be nil when the index failed to open

	// UI components
	viewport    viewport.Model
	input       textinput.Model
	searchInput textinput.Model
	spinner     spinner.Model
	keyMap      KeyMap

	// Render throttling during streams
	throttle *RenderThrottle

	// Terminal markdown rendering of finalized assistant messages
	glam *glamour.TermRenderer

	// Streaming chat tracking, so a finished stream for a background chat
	// does not clobber the visible transcript state
	streamingChatID string

	// Search overlay
	searchResults []index.SearchResult
	searchErr     error
	searchSel     int

	// Presentation toggles
	showSidebar  bool
	showHelp     bool
	showThinking bool

	// Transient status line
	statusMsg string
	statusSeq int
}

// Config assembles a chat Model.
type Config struct {
	Store   *store.Store
	Engine  *stream.Engine
	History *index.HistoryIndex
	Theme   *styles.Theme

	// ShowThinking renders assistant thinking blocks above answers.
	ShowThinking bool
}

// New creates a new chat model.
func New(cfg Config) Model {
	theme := cfg.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = composerLimit
	ti.Focus()

	si := textinput.New()
	si.Prompt = "Search: "
	si.Placeholder = "Find in past chats..."
	si.CharLimit = 256

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}
	sp.Style = theme.Spinner

	glam, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)
	if err != nil {
		glam = nil
	}

	return Model{
		state:        StateReady,
		theme:        theme,
		store:        cfg.Store,
		engine:       cfg.Engine,
		history:      cfg.History,
		viewport:     vp,
		input:        ti,
		searchInput:  si,
		spinner:      sp,
		keyMap:       DefaultKeyMap(),
		throttle:     NewRenderThrottle(30),
		glam:         glam,
		showSidebar:  true,
		showThinking: cfg.ShowThinking,
	}
}

// Init starts the spinner and renders the initial transcript.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// setStatus installs a transient status message and returns the command
// that clears it.
func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusSeq++
	return expireStatusCmd(m.statusSeq)
}
