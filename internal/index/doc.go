// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides full-text search over persisted chat history.
//
// Transcripts live in the JSON snapshot managed by the storage package;
// this package keeps a derived SQLite database (~/.vidion/history.db) with
// an FTS5 table over message content so past conversations can be searched
// quickly. The database is disposable: deleting it only costs a rebuild.
//
// # Usage
//
// Open and populate the index:
//
//	idx, err := index.Open(path, logger)
//	err = idx.Rebuild(ctx, state.Chats)
//
// Search it:
//
//	results, err := idx.Search("context cancellation", nil)
//	for _, r := range results {
//	    fmt.Printf("%s: %s\n", r.ChatTitle, r.Snippet)
//	}
//
// After each finalized response, IndexChat refreshes the one affected chat
// instead of rebuilding everything.
package index
