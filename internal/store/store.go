// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory chat list and keeps it flushed to disk.
package store

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/storage"
)

// ErrChatNotFound is returned when an operation names an unknown chat.
var ErrChatNotFound = errors.New("chat not found")

// Persister writes the full state snapshot. *storage.StateStore satisfies it.
type Persister interface {
	Save(state *storage.State) error
}

// =============================================================================
// STORE TYPE
// =============================================================================

// Store owns the chat list, the current-chat selection, and the selected
// model. Every mutation flushes the whole snapshot through the Persister.
//
// Chats handed out by the store are deep copies; the store never mutates a
// chat it has already returned. The UI calls in from the Bubble Tea update
// loop while streams write from their own goroutine, so all access goes
// through the mutex.
type Store struct {
	mu sync.Mutex

	chats        []model.Chat
	currentID    string
	selectedID   string
	systemPrompt string

	persist Persister
	logger  *zap.Logger
}

// New builds a store from a loaded snapshot. An empty snapshot gets one
// fresh chat so the UI always has something to show. An unknown persisted
// model selection falls back to the default model.
func New(state *storage.State, persist Persister, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		persist:      persist,
		logger:       logger,
		systemPrompt: model.SystemPrompt,
	}

	if state != nil {
		s.chats = make([]model.Chat, len(state.Chats))
		for i := range state.Chats {
			s.chats[i] = state.Chats[i].Clone()
		}
		s.currentID = state.CurrentChatID
		s.selectedID = model.GetModelOrDefault(state.ModelID).ID
	} else {
		s.selectedID = model.DefaultModel.ID
	}

	if len(s.chats) == 0 {
		chat := model.NewChat(s.systemPrompt)
		s.chats = []model.Chat{chat}
		s.currentID = chat.ID
	}
	if s.indexOf(s.currentID) < 0 {
		s.currentID = s.chats[0].ID
	}

	return s
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Chats returns deep copies of every chat, newest first.
func (s *Store) Chats() []model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatsLocked()
}

// CurrentChat returns a deep copy of the active chat.
func (s *Store) CurrentChat() model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chats[s.indexOf(s.currentID)].Clone()
}

// CurrentChatID returns the active chat's ID.
func (s *Store) CurrentChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Chat returns a deep copy of the chat with the given ID.
func (s *Store) Chat(id string) (model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Chat{}, ErrChatNotFound
	}
	return s.chats[idx].Clone(), nil
}

// ChatCount returns the number of chats.
func (s *Store) ChatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

// SelectedModel returns the currently selected catalog model.
func (s *Store) SelectedModel() model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.GetModelOrDefault(s.selectedID)
}

// =============================================================================
// CHAT LIFECYCLE
// =============================================================================

// CreateChat starts a new chat and makes it current. If the current chat is
// still blank (no user message yet) it is reused instead, so mashing "new
// chat" never piles up empty chats.
func (s *Store) CreateChat() model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.chats[s.indexOf(s.currentID)]
	if cur.IsBlank() {
		return cur.Clone()
	}

	chat := model.NewChat(s.systemPrompt)
	s.chats = append([]model.Chat{chat}, s.chats...)
	s.currentID = chat.ID
	s.flushLocked()
	return chat.Clone()
}

// SelectChat makes the chat with the given ID current.
func (s *Store) SelectChat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return ErrChatNotFound
	}
	if s.currentID == id {
		return nil
	}
	s.currentID = id
	s.flushLocked()
	return nil
}

// DeleteChat removes a chat. Deleting the last remaining chat synthesizes a
// fresh one; deleting the current chat promotes the first remaining one.
// Unknown IDs are reported via ErrChatNotFound.
func (s *Store) DeleteChat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return ErrChatNotFound
	}

	s.chats = append(s.chats[:idx], s.chats[idx+1:]...)

	if len(s.chats) == 0 {
		chat := model.NewChat(s.systemPrompt)
		s.chats = []model.Chat{chat}
		s.currentID = chat.ID
	} else if s.currentID == id {
		s.currentID = s.chats[0].ID
	}

	s.flushLocked()
	return nil
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AppendMessage adds a message to a chat and re-derives its title. Appends
// to an unknown chat are dropped silently; the chat may have been deleted
// while a stream was still running.
func (s *Store) AppendMessage(chatID string, msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(chatID)
	if idx < 0 {
		s.logger.Debug("append to unknown chat dropped", zap.String("chat_id", chatID))
		return
	}
	s.chats[idx] = s.chats[idx].WithMessage(msg)
	s.flushLocked()
}

// UpdateMessage replaces one message with fn's result. The message passed
// to fn is a copy; the store installs the returned value, so published
// chat values never change underneath their holders.
func (s *Store) UpdateMessage(chatID, messageID string, fn func(model.Message) model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(chatID)
	if idx < 0 {
		s.logger.Debug("update in unknown chat dropped", zap.String("chat_id", chatID))
		return
	}

	chat := s.chats[idx]
	msgIdx := chat.MessageByID(messageID)
	if msgIdx < 0 {
		s.logger.Debug("update of unknown message dropped",
			zap.String("chat_id", chatID), zap.String("message_id", messageID))
		return
	}

	messages := make([]model.Message, len(chat.Messages))
	copy(messages, chat.Messages)
	messages[msgIdx] = fn(messages[msgIdx])

	s.chats[idx] = chat.WithMessages(messages)
	s.flushLocked()
}

// ReplaceMessages swaps a chat's full message slice, used by regenerate to
// drop a failed assistant turn before resending.
func (s *Store) ReplaceMessages(chatID string, messages []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(chatID)
	if idx < 0 {
		s.logger.Debug("replace in unknown chat dropped", zap.String("chat_id", chatID))
		return
	}
	msgs := make([]model.Message, len(messages))
	copy(msgs, messages)
	s.chats[idx] = s.chats[idx].WithMessages(msgs)
	s.flushLocked()
}

// =============================================================================
// MODEL SELECTION
// =============================================================================

// SelectModel persists a model choice. Unknown IDs fall back to the
// default model rather than failing.
func (s *Store) SelectModel(id string) model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := model.GetModelOrDefault(id)
	if m.ID != id {
		s.logger.Warn("unknown model selection, using default",
			zap.String("requested", id), zap.String("selected", m.ID))
	}
	s.selectedID = m.ID
	s.flushLocked()
	return m
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Snapshot returns a deep copy of the full persisted state.
func (s *Store) Snapshot() *storage.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() *storage.State {
	return &storage.State{
		Chats:         s.chatsLocked(),
		CurrentChatID: s.currentID,
		ModelID:       s.selectedID,
	}
}

func (s *Store) chatsLocked() []model.Chat {
	out := make([]model.Chat, len(s.chats))
	for i := range s.chats {
		out[i] = s.chats[i].Clone()
	}
	return out
}

// flushLocked writes the snapshot. Persistence failures are logged and
// swallowed: losing a write must not take down the conversation in memory.
func (s *Store) flushLocked() {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(s.snapshotLocked()); err != nil {
		s.logger.Error("state flush failed", zap.Error(err))
	}
}

// indexOf returns the position of a chat by ID, or -1. Callers hold the lock.
func (s *Store) indexOf(id string) int {
	for i := range s.chats {
		if s.chats[i].ID == id {
			return i
		}
	}
	return -1
}
