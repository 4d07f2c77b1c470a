// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides full-text search over persisted chat history.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/preetam-90/vidion-ai/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotIndexed    = errors.New("history not indexed")
	ErrIndexing      = errors.New("indexing in progress")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// HISTORY INDEX
// =============================================================================

// HistoryIndex maintains a searchable copy of every chat transcript in a
// SQLite database with an FTS5 table over message bodies. The JSON snapshot
// remains the source of truth; the index is rebuilt from it and can be
// deleted at any time.
type HistoryIndex struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex

	indexing    bool
	indexingMu  sync.Mutex
	lastIndexed time.Time

	logger *zap.Logger
}

// DefaultPath returns the index location under the user's home directory.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".vidion", "history.db"), nil
}

// Open opens (creating if needed) the history index at path.
func Open(path string, logger *zap.Logger) (*HistoryIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	idx := &HistoryIndex{db: db, path: path, logger: logger}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	idx.loadStats()

	return idx, nil
}

func (idx *HistoryIndex) initSchema() error {
	if _, err := idx.db.Exec(Schema); err != nil {
		return err
	}
	_, err := idx.db.Exec(InitMetadata)
	return err
}

// Close closes the index and releases resources.
func (idx *HistoryIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db != nil {
		return idx.db.Close()
	}
	return nil
}

// =============================================================================
// INDEXING
// =============================================================================

// Rebuild replaces the whole index with the given chats in one transaction.
func (idx *HistoryIndex) Rebuild(ctx context.Context, chats []model.Chat) error {
	idx.indexingMu.Lock()
	if idx.indexing {
		idx.indexingMu.Unlock()
		return ErrIndexing
	}
	idx.indexing = true
	idx.indexingMu.Unlock()

	defer func() {
		idx.indexingMu.Lock()
		idx.indexing = false
		idx.indexingMu.Unlock()
	}()

	start := time.Now()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM chats"); err != nil {
		return fmt.Errorf("failed to clear chats: %w", err)
	}

	var messageCount int
	for _, chat := range chats {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := insertChat(tx, chat)
		if err != nil {
			return err
		}
		messageCount += n
	}

	if _, err := tx.Exec(
		"UPDATE metadata SET value = ? WHERE key = 'last_full_index'",
		time.Now().Unix(),
	); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.mu.Lock()
	idx.lastIndexed = start
	idx.mu.Unlock()

	idx.logger.Debug("history index rebuilt",
		zap.Int("chats", len(chats)),
		zap.Int("messages", messageCount),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}

// IndexChat inserts or refreshes a single chat. Called after each finalized
// response so searches see new messages without a full rebuild.
func (idx *HistoryIndex) IndexChat(chat model.Chat) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE chat_id = ?", chat.ID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM chats WHERE id = ?", chat.ID); err != nil {
		return err
	}
	if _, err := insertChat(tx, chat); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.mu.Lock()
	idx.lastIndexed = time.Now()
	idx.mu.Unlock()

	return nil
}

// RemoveChat deletes a chat and its messages from the index.
func (idx *HistoryIndex) RemoveChat(chatID string) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE chat_id = ?", chatID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM chats WHERE id = ?", chatID); err != nil {
		return err
	}

	return tx.Commit()
}

func insertChat(tx *sql.Tx, chat model.Chat) (int, error) {
	_, err := tx.Exec(`
		INSERT INTO chats (id, title, created_at, message_count, indexed_at)
		VALUES (?, ?, ?, ?, ?)
	`, chat.ID, chat.Title, chat.CreatedAt.Unix(), len(chat.Messages), time.Now().Unix())
	if err != nil {
		return 0, err
	}

	for _, msg := range chat.Messages {
		if msg.Role == model.RoleSystem || msg.IsEmpty() {
			continue
		}
		_, err := tx.Exec(`
			INSERT INTO messages (message_id, chat_id, role, content, thinking, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, msg.ID, chat.ID, string(msg.Role), msg.Content, msg.Thinking, msg.Timestamp.Unix())
		if err != nil {
			return 0, err
		}
	}

	return len(chat.Messages), nil
}

// loadStats restores lastIndexed from metadata so a reopened index counts
// as indexed.
func (idx *HistoryIndex) loadStats() {
	var lastIndexed int64
	err := idx.db.QueryRow(
		"SELECT value FROM metadata WHERE key = 'last_full_index'",
	).Scan(&lastIndexed)
	if err == nil && lastIndexed > 0 {
		idx.lastIndexed = time.Unix(lastIndexed, 0)
	}
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats describes the current index contents.
type Stats struct {
	ChatCount    int
	MessageCount int
	LastIndexed  time.Time
	IsIndexing   bool
	DatabaseSize int64
}

// Stats returns current index statistics.
func (idx *HistoryIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	idx.indexingMu.Lock()
	indexing := idx.indexing
	idx.indexingMu.Unlock()

	var stats Stats
	stats.LastIndexed = idx.lastIndexed
	stats.IsIndexing = indexing

	idx.db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&stats.ChatCount)
	idx.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&stats.MessageCount)
	if info, err := os.Stat(idx.path); err == nil {
		stats.DatabaseSize = info.Size()
	}

	return stats
}

// IsIndexed returns true if the history has been indexed at least once.
func (idx *HistoryIndex) IsIndexed() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return !idx.lastIndexed.IsZero()
}
