// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/preetam-90/vidion-ai/internal/model"
)

func testStore(t *testing.T) *StateStore {
	t.Helper()
	return NewStateStoreWithPath(filepath.Join(t.TempDir(), "state.json"), nil)
}

func TestStateStore_SaveLoad_RoundTrip(t *testing.T) {
	store := testStore(t)

	chat := model.NewChat(model.SystemPrompt)
	chat = chat.WithMessage(model.NewUserMessage("hello there"))

	state := &State{
		Chats:         []model.Chat{chat},
		CurrentChatID: chat.ID,
		ModelID:       model.Sonar.ID,
	}
	if err := store.Save(state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := store.Load()
	if len(loaded.Chats) != 1 {
		t.Fatalf("loaded %d chats, want 1", len(loaded.Chats))
	}
	if loaded.Chats[0].ID != chat.ID {
		t.Errorf("chat ID = %q, want %q", loaded.Chats[0].ID, chat.ID)
	}
	if loaded.Chats[0].Title != chat.Title {
		t.Errorf("chat title = %q, want %q", loaded.Chats[0].Title, chat.Title)
	}
	if loaded.CurrentChatID != chat.ID {
		t.Errorf("current chat = %q, want %q", loaded.CurrentChatID, chat.ID)
	}
	if loaded.ModelID != model.Sonar.ID {
		t.Errorf("model ID = %q, want %q", loaded.ModelID, model.Sonar.ID)
	}
	if got := len(loaded.Chats[0].Messages); got != 2 {
		t.Errorf("loaded %d messages, want 2", got)
	}
}

func TestStateStore_Load_MissingFile(t *testing.T) {
	store := testStore(t)

	state := store.Load()
	if state == nil {
		t.Fatal("Load returned nil")
	}
	if len(state.Chats) != 0 || state.CurrentChatID != "" {
		t.Errorf("expected empty state, got %+v", state)
	}
}

func TestStateStore_Load_CorruptFile(t *testing.T) {
	store := testStore(t)

	if err := os.MkdirAll(filepath.Dir(store.Path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	state := store.Load()
	if len(state.Chats) != 0 {
		t.Errorf("corrupt file should yield empty state, got %d chats", len(state.Chats))
	}
}

func TestStateStore_Save_Overwrites(t *testing.T) {
	store := testStore(t)

	first := model.NewChat(model.SystemPrompt)
	if err := store.Save(&State{Chats: []model.Chat{first}, CurrentChatID: first.ID}); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	second := model.NewChat(model.SystemPrompt)
	if err := store.Save(&State{Chats: []model.Chat{second}, CurrentChatID: second.ID}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded := store.Load()
	if len(loaded.Chats) != 1 || loaded.Chats[0].ID != second.ID {
		t.Errorf("snapshot not replaced, got %+v", loaded)
	}
}
