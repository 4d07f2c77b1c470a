// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats, messages, and models.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Vidion"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// StreamCursor is the glyph appended to an in-flight assistant message to
// mark the insertion point. It is stripped when the stream finalizes.
const StreamCursor = "▋"

// Message represents a single message in a chat. Messages are treated as
// immutable values: updates produce a replacement copy rather than mutating
// a message already handed out.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Thinking  string    `json:"thinking,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        generateMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an empty assistant message that a stream
// will fill in.
func NewAssistantMessage() Message {
	return NewMessage(RoleAssistant, "")
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// WithContent returns a copy of the message carrying the given content.
func (m Message) WithContent(content string) Message {
	m.Content = content
	return m
}

// WithThinking returns a copy of the message carrying the given thinking
// side-channel text.
func (m Message) WithThinking(thinking string) Message {
	m.Thinking = thinking
	return m
}

// Finalized returns a copy of the message with the stream cursor stripped.
func (m Message) Finalized() Message {
	m.Content = strings.TrimSuffix(m.Content, StreamCursor)
	return m
}

// IsStreaming reports whether the message still carries the stream cursor.
func (m Message) IsStreaming() bool {
	return strings.HasSuffix(m.Content, StreamCursor)
}

// DisplayContent returns the content without the trailing stream cursor.
func (m Message) DisplayContent() string {
	return strings.TrimSuffix(m.Content, StreamCursor)
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	content := m.DisplayContent()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return m.DisplayContent() == ""
}

// EstimateTokens gives a rough estimate of token count using the
// approximation of ~4 characters per token.
func (m Message) EstimateTokens() int {
	return (len(m.DisplayContent()) + 3) / 4
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateMessageID creates a unique message ID.
func generateMessageID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}
