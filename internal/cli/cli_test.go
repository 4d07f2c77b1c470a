// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/provider"
	"github.com/preetam-90/vidion-ai/internal/store"
	"github.com/preetam-90/vidion-ai/internal/stream"
)

// scriptedCompleter answers every generation with a fixed reply.
type scriptedCompleter struct {
	reply string
}

func (c scriptedCompleter) Complete(ctx context.Context, m model.Model, messages []provider.ChatMessage) (string, error) {
	return c.reply, nil
}

func (c scriptedCompleter) StreamDeltas(ctx context.Context, m model.Model, messages []provider.ChatMessage, onDelta provider.DeltaCallback) error {
	onDelta(c.reply)
	return nil
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantCmd string
		wantArg string
	}{
		{"bare command", "/help", "/help", ""},
		{"command with argument", "/model groq-llama3-8b", "/model", "groq-llama3-8b"},
		{"argument keeps inner spaces", "/web golang release notes", "/web", "golang release notes"},
		{"uppercase command folds", "/HELP", "/help", ""},
		{"padding trimmed", "  /select 2  ", "/select", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, arg := parseCommand(tt.line)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArg, arg)
		})
	}
}

func TestStreamPrinter_PrintsOnlyNewSuffix(t *testing.T) {
	s := store.New(nil, nil, nil)
	chat := s.CreateChat()

	msg := model.NewAssistantMessage()
	s.AppendMessage(chat.ID, msg)

	var buf bytes.Buffer
	p := NewStreamPrinter(s, &buf)
	p.Start(chat.ID)

	write := func(content string) {
		s.UpdateMessage(chat.ID, msg.ID, func(m model.Message) model.Message {
			m.Content = content
			return m
		})
		p.Notify()
	}

	write("Hel" + model.StreamCursor)
	write("Hello wor" + model.StreamCursor)
	write("Hello world")

	assert.Equal(t, "Hello world", buf.String())
}

func TestStreamPrinter_IgnoresWhenStopped(t *testing.T) {
	s := store.New(nil, nil, nil)
	chat := s.CreateChat()
	msg := model.NewAssistantMessage()
	s.AppendMessage(chat.ID, msg)

	var buf bytes.Buffer
	p := NewStreamPrinter(s, &buf)
	p.Start(chat.ID)
	p.Stop()

	s.UpdateMessage(chat.ID, msg.ID, func(m model.Message) model.Message {
		m.Content = "should not appear"
		return m
	})
	p.Notify()

	assert.Empty(t, buf.String())
}

func TestStreamPrinter_SkipsUserMessages(t *testing.T) {
	s := store.New(nil, nil, nil)
	chat := s.CreateChat()

	var buf bytes.Buffer
	p := NewStreamPrinter(s, &buf)
	p.Start(chat.ID)

	s.AppendMessage(chat.ID, model.NewUserMessage("a question"))
	p.Notify()

	assert.Empty(t, buf.String())
}

func TestRenderAnswer_PlainPassthrough(t *testing.T) {
	const answer = "**bold** and `code`"
	assert.Equal(t, answer, renderAnswer(answer, true))
}

func TestTerminalWidth_HasFloor(t *testing.T) {
	// Not a terminal under go test, so the default applies.
	w := TerminalWidth()
	require.GreaterOrEqual(t, w, MinTerminalWidth)
}

func TestCmdRegen_ReplacesLastAssistantTurn(t *testing.T) {
	s := store.New(nil, nil, nil)
	chat := s.CreateChat()
	s.AppendMessage(chat.ID, model.NewUserMessage("question"))
	s.AppendMessage(chat.ID, model.NewMessage(model.RoleAssistant, "stale answer"))
	s.SelectModel(model.GroqLlama3.ID)

	engine := stream.New(stream.Config{
		Store:  s,
		Client: scriptedCompleter{reply: "fresh answer"},
	})
	sess := &Session{Store: s, Engine: engine}

	sess.cmdRegen(context.Background())

	updated, err := s.Chat(chat.ID)
	require.NoError(t, err)

	last := updated.Messages[len(updated.Messages)-1]
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.Equal(t, "fresh answer", last.Content)

	// The stale turn was replaced, not kept alongside the new one.
	answers := 0
	for _, msg := range updated.Messages {
		if msg.Role == model.RoleAssistant {
			answers++
		}
	}
	assert.Equal(t, 1, answers)
}

func TestCmdRegen_RequiresAssistantTurn(t *testing.T) {
	s := store.New(nil, nil, nil)
	chat := s.CreateChat()
	s.AppendMessage(chat.ID, model.NewUserMessage("question"))

	engine := stream.New(stream.Config{
		Store:  s,
		Client: scriptedCompleter{reply: "unwanted"},
	})
	sess := &Session{Store: s, Engine: engine}

	sess.cmdRegen(context.Background())

	updated, err := s.Chat(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, updated.Messages[len(updated.Messages)-1].Role)
}
