// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preetam-90/vidion-ai/internal/index"
	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/provider"
	"github.com/preetam-90/vidion-ai/internal/storage"
	"github.com/preetam-90/vidion-ai/internal/store"
	"github.com/preetam-90/vidion-ai/internal/stream"
)

// blockingClient holds a stream open until released, for exercising the
// single-flight guarantee.
type blockingClient struct {
	release chan struct{}
}

func (c *blockingClient) Complete(ctx context.Context, m model.Model, messages []provider.ChatMessage) (string, error) {
	<-c.release
	return "done", nil
}

func (c *blockingClient) StreamDeltas(ctx context.Context, m model.Model, messages []provider.ChatMessage, onDelta provider.DeltaCallback) error {
	onDelta("partial")
	<-c.release
	return nil
}

func TestConcurrentStoreMutations(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	ss := storage.NewStateStoreWithPath(statePath, nil)
	s := store.New(nil, ss, nil)

	const writers = 8
	const perWriter = 25

	// Seed each chat with a user turn so CreateChat does not hand the same
	// blank chat back every time.
	chatIDs := make([]string, writers)
	for i := range chatIDs {
		chat := s.CreateChat()
		s.AppendMessage(chat.ID, model.NewUserMessage(fmt.Sprintf("chat %d opener", i)))
		chatIDs[i] = chat.ID
	}

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id string, n int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				s.AppendMessage(id, model.NewUserMessage(fmt.Sprintf("writer %d message %d", n, j)))
			}
		}(chatIDs[i], i)
	}
	// Readers race the writers.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Chats()
				_ = s.CurrentChat()
			}
		}()
	}
	wg.Wait()

	for _, id := range chatIDs {
		chat, err := s.Chat(id)
		require.NoError(t, err)
		// System prompt, the opener, and every appended message.
		assert.Equal(t, perWriter+2, len(chat.Messages))
	}

	// The snapshot on disk is parseable and complete.
	reborn := store.New(storage.NewStateStoreWithPath(statePath, nil).Load(), nil, nil)
	assert.Equal(t, s.ChatCount(), reborn.ChatCount())
}

func TestSingleFlightAcrossGoroutines(t *testing.T) {
	s := store.New(nil, nil, nil)
	client := &blockingClient{release: make(chan struct{})}
	engine := stream.New(stream.Config{Store: s, Client: client})

	chatID := s.CurrentChatID()
	hist := []provider.ChatMessage{{Role: "user", Content: "hi"}}

	first := make(chan error, 1)
	go func() {
		first <- engine.Stream(context.Background(), chatID, model.GroqLlama3, hist)
	}()

	deadline := time.After(2 * time.Second)
	for !engine.Active() {
		select {
		case <-deadline:
			t.Fatal("generation never became active")
		case <-time.After(time.Millisecond):
		}
	}

	// Every concurrent attempt is turned away while the slot is held.
	var wg sync.WaitGroup
	rejected := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rejected <- engine.Stream(context.Background(), chatID, model.GroqLlama3, hist)
		}()
	}
	wg.Wait()
	close(rejected)
	for err := range rejected {
		assert.ErrorIs(t, err, stream.ErrStreamInFlight)
	}

	close(client.release)
	require.NoError(t, <-first)
	assert.False(t, engine.Active())
}

func TestStopRacesGeneration(t *testing.T) {
	s := store.New(nil, nil, nil)
	client := &blockingClient{release: make(chan struct{})}
	engine := stream.New(stream.Config{Store: s, Client: client})

	done := make(chan error, 1)
	go func() {
		done <- engine.Stream(context.Background(), s.CurrentChatID(), model.GroqLlama3,
			[]provider.ChatMessage{{Role: "user", Content: "hi"}})
	}()

	// Stop from many goroutines at once must be safe regardless of timing.
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Stop()
		}()
	}
	wg.Wait()

	close(client.release)
	err := <-done
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("unexpected error: %v", err)
	}

	last := s.CurrentChat().LastMessage()
	require.NotNil(t, last)
	assert.False(t, last.IsStreaming(), "message left with cursor after stop")
}

func TestIndexReadsDuringWrites(t *testing.T) {
	idx, err := index.Open(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	defer idx.Close()

	s := store.New(nil, nil, nil)
	chatID := s.CurrentChatID()
	s.AppendMessage(chatID, model.NewUserMessage("seed searchable content"))
	chat, err := s.Chat(chatID)
	require.NoError(t, err)
	require.NoError(t, idx.Rebuild(context.Background(), []model.Chat{chat}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := idx.Search("searchable", nil)
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, idx.IndexChat(chat))
			}
		}()
	}
	wg.Wait()

	results, err := idx.Search("searchable", nil)
	require.NoError(t, err)
	assert.Len(t, results, 1, "reindexing must not duplicate rows")
}
