// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat implements the Bubble Tea chat interface: a sidebar listing
conversations, a transcript viewport, a single-line composer, and a status
bar with shortcut hints.

The model owns no conversation data. All chats live in the store, and the
generation engine writes streamed content there directly; the engine's
Notify hook posts StoreChangedMsg into the program, and a RenderThrottle
caps transcript redraws at 30fps while a stream is active.

One generation runs at a time. Submitting while streaming shows a status
message, Esc cancels cooperatively and keeps the partial response.

Message prefixes /search, /reason and /research route a single turn to the
online, reasoning or research model without changing the persisted model
selection. Ctrl+F opens full-text search over past chats backed by the
history index.
*/
package chat
