// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// TitleMaxRunes is the number of characters of the first user message kept
// when deriving a chat title. Longer messages get "..." appended.
const TitleMaxRunes = 30

// DefaultChatTitle is the title of a chat before any user message arrives.
const DefaultChatTitle = "New Chat"

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat holds a complete conversation with history and metadata.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChat creates a new chat seeded with the given system prompt.
func NewChat(systemPrompt string) Chat {
	messages := make([]Message, 0, 1)
	if systemPrompt != "" {
		messages = append(messages, NewSystemMessage(systemPrompt))
	}
	return Chat{
		ID:        uuid.NewString(),
		Title:     DefaultChatTitle,
		Messages:  messages,
		CreatedAt: time.Now(),
	}
}

// =============================================================================
// CHAT METHODS
// =============================================================================

// IsBlank reports whether the chat has received no user input yet: at most
// one message (the system prompt) or no user message at all. Blank chats
// are reused instead of creating another one.
func (c Chat) IsBlank() bool {
	if len(c.Messages) <= 1 {
		return true
	}
	return c.FirstUserMessage() == nil
}

// FirstUserMessage returns the earliest user message, or nil.
func (c Chat) FirstUserMessage() *Message {
	for i := range c.Messages {
		if c.Messages[i].Role == RoleUser {
			return &c.Messages[i]
		}
	}
	return nil
}

// LastMessage returns the most recent message, or nil if the chat is empty.
func (c Chat) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// MessageByID returns the index of a message by its ID, or -1.
func (c Chat) MessageByID(id string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// DeriveTitle computes the display title from the first user message,
// truncated to TitleMaxRunes characters. Chats without a user message keep
// the default title.
func (c Chat) DeriveTitle() string {
	first := c.FirstUserMessage()
	if first == nil {
		return DefaultChatTitle
	}
	return first.Preview(TitleMaxRunes)
}

// MessageCount returns the number of messages, system prompt included.
func (c Chat) MessageCount() int {
	return len(c.Messages)
}

// EstimateTokens estimates the total token count of the chat.
func (c Chat) EstimateTokens() int {
	total := 0
	for i := range c.Messages {
		total += c.Messages[i].EstimateTokens() + 4
	}
	return total
}

// Clone creates a deep copy of the chat. The returned chat shares nothing
// with the receiver, so callers may mutate it freely.
func (c Chat) Clone() Chat {
	clone := c
	clone.Messages = make([]Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	return clone
}

// WithMessage returns a copy of the chat with the message appended and the
// title re-derived. The receiver is left untouched.
func (c Chat) WithMessage(msg Message) Chat {
	clone := c.Clone()
	clone.Messages = append(clone.Messages, msg)
	clone.Title = clone.DeriveTitle()
	return clone
}

// WithMessages returns a copy of the chat carrying the given message slice.
func (c Chat) WithMessages(messages []Message) Chat {
	clone := c
	clone.Messages = messages
	clone.Title = clone.DeriveTitle()
	return clone
}
