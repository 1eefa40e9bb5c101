// Package sqlite provides a SQLite-backed implementation of memory.Store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crosswirelabs/loom/pkg/memory"
)

// Store implements memory.Store using SQLite as the storage backend.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite-backed memory store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", memory.ErrUnavailable, err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return s, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memory_entries (
		conversation_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		expires_at INTEGER,
		PRIMARY KEY (conversation_id, key)
	);

	CREATE TABLE IF NOT EXISTS rolling_summaries (
		conversation_id TEXT PRIMARY KEY,
		summary TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_memory_entries_expires_at ON memory_entries(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Set upserts a value under (conversationID, key).
func (s *Store) Set(ctx context.Context, conversationID, key string, value json.RawMessage, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: time.Now().Add(ttl).UnixMilli(), Valid: true}
	}

	query := `
	INSERT INTO memory_entries (conversation_id, key, value, expires_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(conversation_id, key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`

	if _, err := s.db.ExecContext(ctx, query, conversationID, key, string(value), expiresAt); err != nil {
		return fmt.Errorf("%w: upserting entry: %v", memory.ErrUnavailable, err)
	}

	return nil
}

// Get returns the value for (conversationID, key). Expiry is enforced here,
// not left to the sweeper.
func (s *Store) Get(ctx context.Context, conversationID, key string) (json.RawMessage, bool, error) {
	query := `SELECT value, expires_at FROM memory_entries WHERE conversation_id = ? AND key = ?`

	var value string
	var expiresAt sql.NullInt64

	err := s.db.QueryRowContext(ctx, query, conversationID, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading entry: %v", memory.ErrUnavailable, err)
	}

	if expiresAt.Valid && expiresAt.Int64 <= time.Now().UnixMilli() {
		return nil, false, nil
	}

	return json.RawMessage(value), true, nil
}

// Delete removes an entry. Absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, conversationID, key string) error {
	query := `DELETE FROM memory_entries WHERE conversation_id = ? AND key = ?`

	if _, err := s.db.ExecContext(ctx, query, conversationID, key); err != nil {
		return fmt.Errorf("%w: deleting entry: %v", memory.ErrUnavailable, err)
	}

	return nil
}

// SweepExpired purges all entries whose expiry is at or before now.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM memory_entries WHERE expires_at IS NOT NULL AND expires_at <= ?`

	result, err := s.db.ExecContext(ctx, query, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: sweeping entries: %v", memory.ErrUnavailable, err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting swept entries: %w", err)
	}

	return int(count), nil
}

// GetSummary returns the rolling summary text for a conversation.
func (s *Store) GetSummary(ctx context.Context, conversationID string) (string, bool, error) {
	query := `SELECT summary FROM rolling_summaries WHERE conversation_id = ?`

	var text string
	err := s.db.QueryRowContext(ctx, query, conversationID).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: reading summary: %v", memory.ErrUnavailable, err)
	}

	return text, true, nil
}

// UpsertSummary replaces the conversation's rolling summary.
func (s *Store) UpsertSummary(ctx context.Context, conversationID, text string) error {
	query := `
	INSERT INTO rolling_summaries (conversation_id, summary, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(conversation_id) DO UPDATE SET summary = excluded.summary, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, conversationID, text); err != nil {
		return fmt.Errorf("%w: upserting summary: %v", memory.ErrUnavailable, err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure Store implements memory.Store
var _ memory.Store = (*Store)(nil)
