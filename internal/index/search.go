// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides full-text search over persisted chat history.
package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/preetam-90/vidion-ai/internal/model"
)

// =============================================================================
// SEARCH RESULT
// =============================================================================

// SearchResult is a single matching message.
type SearchResult struct {
	ChatID    string
	ChatTitle string
	MessageID string
	Role      model.Role
	Snippet   string // Matched excerpt with [match] markers
	Timestamp time.Time
	Rank      float64
}

// SearchOptions configures search behavior.
type SearchOptions struct {
	// MaxResults limits the number of results (0 = unlimited)
	MaxResults int

	// ChatID restricts the search to one conversation
	ChatID string

	// Roles filters by message role (empty = all)
	Roles []model.Role
}

// DefaultSearchOptions returns default search options.
func DefaultSearchOptions() *SearchOptions {
	return &SearchOptions{MaxResults: 20}
}

// =============================================================================
// SEARCH
// =============================================================================

// Search finds messages matching the query using full-text search. Results
// come back best match first with a short excerpt around the hit.
func (idx *HistoryIndex) Search(query string, options *SearchOptions) ([]SearchResult, error) {
	if !idx.IsIndexed() {
		return nil, ErrNotIndexed
	}
	if options == nil {
		options = DefaultSearchOptions()
	}

	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return []SearchResult{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	sqlQuery := `
		SELECT
			m.message_id, m.chat_id, m.role, m.created_at,
			c.title,
			snippet(messages_fts, 0, '[', ']', '…', 12),
			fts.rank
		FROM messages_fts fts
		JOIN messages m ON m.id = fts.rowid
		JOIN chats c ON c.id = m.chat_id
		WHERE messages_fts MATCH ?
	`

	args := []interface{}{ftsQuery}

	var conditions []string
	if options.ChatID != "" {
		conditions = append(conditions, "m.chat_id = ?")
		args = append(args, options.ChatID)
	}
	if len(options.Roles) > 0 {
		placeholders := make([]string, len(options.Roles))
		for i, role := range options.Roles {
			placeholders[i] = "?"
			args = append(args, string(role))
		}
		conditions = append(conditions, "m.role IN ("+strings.Join(placeholders, ",")+")")
	}
	if len(conditions) > 0 {
		sqlQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sqlQuery += " ORDER BY fts.rank"

	if options.MaxResults > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, options.MaxResults)
	}

	rows, err := idx.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var result SearchResult
		var role string
		var createdAt int64

		err := rows.Scan(
			&result.MessageID,
			&result.ChatID,
			&role,
			&createdAt,
			&result.ChatTitle,
			&result.Snippet,
			&result.Rank,
		)
		if err != nil {
			continue
		}

		result.Role = model.Role(role)
		result.Timestamp = time.Unix(createdAt, 0)
		results = append(results, result)
	}

	return results, rows.Err()
}

// ChatTitles returns indexed chat titles matching a substring, newest first.
func (idx *HistoryIndex) ChatTitles(fragment string, limit int) (map[string]string, error) {
	if !idx.IsIndexed() {
		return nil, ErrNotIndexed
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	sqlQuery := "SELECT id, title FROM chats WHERE title LIKE ? ORDER BY created_at DESC"
	args := []interface{}{"%" + fragment + "%"}
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := idx.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	titles := make(map[string]string)
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err == nil {
			titles[id] = title
		}
	}
	return titles, rows.Err()
}

// buildFTSQuery builds an FTS5 query from user input. Each term becomes a
// quoted prefix token so punctuation in the query cannot break the match
// expression.
func buildFTSQuery(query string) string {
	terms := strings.Fields(strings.TrimSpace(query))
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, "\"", "")
		if term == "" {
			continue
		}
		quoted = append(quoted, "\""+term+"\"*")
	}
	return strings.Join(quoted, " ")
}
