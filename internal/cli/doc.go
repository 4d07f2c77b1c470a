// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the plain-terminal chat surfaces: an interactive
// readline session and a one-shot ask mode for piped usage.
//
// The session shares the chat store and streaming engine with the
// full-screen interface. Streamed output is echoed live by a StreamPrinter
// registered as the engine's notify hook; it diffs the in-progress message
// against what it already printed and writes only the new suffix.
//
// Ask holds no state at all. It builds a two-message prompt, optionally
// augmented with web search results, and renders the answer with glamour
// when stdout is a terminal.
package cli
