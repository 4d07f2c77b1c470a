// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats, messages, and models.
//
// # Key Types
//
//   - Chat: container for a conversation with messages and metadata
//   - Message: single message with role, content, optional thinking text
//   - Model: catalog entry describing a vendor model and its endpoint
//   - Role: message role enumeration (user, assistant, system)
//
// Chats and messages are value types; mutation helpers like WithMessage
// return copies so previously published values stay stable.
//
// # Usage
//
//	chat := model.NewChat(model.SystemPrompt)
//	chat = chat.WithMessage(model.NewUserMessage("Hello!"))
//
//	m := model.GetModelOrDefault("openrouter-mercury")
package model
