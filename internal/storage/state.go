// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists application state for vidion-ai.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/util"
)

// =============================================================================
// STATE TYPE
// =============================================================================

// State is the full persisted snapshot: every chat, the active chat, and
// the selected model. It is written whole on each mutation so a crash can
// lose at most the last write.
type State struct {
	Chats         []model.Chat `json:"chats"`
	CurrentChatID string       `json:"current_chat_id"`
	ModelID       string       `json:"model_id,omitempty"`
}

// =============================================================================
// STATE STORE
// =============================================================================

// StateStore reads and writes the snapshot file.
type StateStore struct {
	// Path is the snapshot file, default ~/.vidion/state.json.
	Path string

	logger *zap.Logger
}

// NewStateStore creates a store rooted in the user's home directory.
func NewStateStore(logger *zap.Logger) (*StateStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStateStoreWithPath(filepath.Join(homeDir, ".vidion", "state.json"), logger), nil
}

// NewStateStoreWithPath creates a store with a custom snapshot path.
func NewStateStoreWithPath(path string, logger *zap.Logger) *StateStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateStore{Path: path, logger: logger}
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the snapshot. A missing or unreadable file yields an empty
// state rather than an error: the client starts fresh and the problem is
// logged, never surfaced to the user.
func (s *StateStore) Load() *State {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("state file unreadable, starting fresh",
				zap.String("path", s.Path), zap.Error(err))
		}
		return &State{}
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("state file corrupt, starting fresh",
			zap.String("path", s.Path), zap.Error(err))
		return &State{}
	}

	return &state
}

// Save writes the snapshot atomically.
func (s *StateStore) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(s.Path, data, 0644)
}
