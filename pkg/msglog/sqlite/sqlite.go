// Package sqlite provides a SQLite-backed implementation of msglog.Log.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/crosswirelabs/loom/pkg/msglog"
)

// Log implements msglog.Log using SQLite as the storage backend.
type Log struct {
	db     *sql.DB
	tenant string
}

// NewLog creates a new SQLite-backed message log.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewLog(dbPath, tenant string) (*Log, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", msglog.ErrUnavailable, err)
	}

	l := &Log{db: db, tenant: tenant}

	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return l, nil
}

// migrate creates the necessary tables if they don't exist.
func (l *Log) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		tenant TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		seq INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (conversation_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation_seq ON messages(conversation_id, seq);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Append writes a message, creating the conversation on first use.
// The transaction makes the sequence assignment atomic, so concurrent
// appends to one conversation never produce duplicate sequence numbers.
func (l *Log) Append(ctx context.Context, conversationID string, role msglog.Role, content string) (*msglog.Message, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", msglog.ErrUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, tenant, status) VALUES (?, ?, ?)`,
		conversationID, l.tenant, string(msglog.ConversationActive),
	); err != nil {
		return nil, fmt.Errorf("%w: ensuring conversation: %v", msglog.ErrUnavailable, err)
	}

	var seq uint64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?`,
		conversationID,
	).Scan(&seq); err != nil {
		return nil, fmt.Errorf("%w: assigning sequence: %v", msglog.ErrUnavailable, err)
	}

	message := &msglog.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Seq:            seq,
		CreatedAt:      time.Now().UTC(),
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, seq, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		message.ID, message.ConversationID, string(message.Role), message.Content, message.Seq, message.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("%w: inserting message: %v", msglog.ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing append: %v", msglog.ErrUnavailable, err)
	}

	return message, nil
}

// RecentN returns up to n most recent messages, oldest first.
// Selection is by descending sequence, then reversed to chronological order.
func (l *Log) RecentN(ctx context.Context, conversationID string, n int) ([]*msglog.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, seq, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, conversationID, n)
	if err != nil {
		return nil, fmt.Errorf("%w: querying messages: %v", msglog.ErrUnavailable, err)
	}
	defer rows.Close()

	var messages []*msglog.Message
	for rows.Next() {
		var m msglog.Message
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.Seq, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = msglog.Role(role)
		messages = append(messages, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// Conversation returns the conversation record if it exists.
func (l *Log) Conversation(ctx context.Context, conversationID string) (*msglog.Conversation, bool, error) {
	var c msglog.Conversation
	var status string

	err := l.db.QueryRowContext(ctx,
		`SELECT id, tenant, user_id, status, created_at FROM conversations WHERE id = ?`,
		conversationID,
	).Scan(&c.ID, &c.Tenant, &c.UserID, &status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading conversation: %v", msglog.ErrUnavailable, err)
	}

	c.Status = msglog.ConversationStatus(status)
	return &c, true, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// Ensure Log implements msglog.Log
var _ msglog.Log = (*Log)(nil)
