// Package memory provides the short-term conversational memory layer: TTL'd
// key/value entries and one rolling summary per conversation.
//
// Entries are upserted per (conversation, key) and expire lazily: the read
// path checks expiry, so a Get after the TTL behaves as absent even before a
// sweep runs. The rolling summary is a single mutable distillation of the
// conversation's history; UpsertSummary replaces, it never appends or merges.
//
// Drivers are pluggable via configuration:
//
//	[storage]
//	provider = "local"   # or "sqlite"
package memory

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is a stored key/value record scoped to one conversation.
type Entry struct {
	// ConversationID scopes the entry.
	ConversationID string `json:"conversation_id"`

	// Key is unique within the conversation; Set overwrites.
	Key string `json:"key"`

	// Value is an opaque JSON payload.
	Value json.RawMessage `json:"value"`

	// ExpiresAt is the expiry instant; zero means no expiry.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the entry's expiry has passed as of now.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !e.ExpiresAt.After(now)
}

// Summary is the rolling summary row for a conversation. At most one exists
// per conversation.
type Summary struct {
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store handles short-term conversational memory.
// Callers must treat "no summary" as an empty string, never as a failure of
// the surrounding request.
type Store interface {
	// Set upserts a value under (conversationID, key). A ttl of zero means
	// the entry never expires.
	Set(ctx context.Context, conversationID, key string, value json.RawMessage, ttl time.Duration) error

	// Get returns the value for (conversationID, key). The boolean is false
	// when the key is absent or its expiry has passed.
	Get(ctx context.Context, conversationID, key string) (json.RawMessage, bool, error)

	// Delete removes an entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, conversationID, key string) error

	// SweepExpired purges all entries whose expiry is at or before now and
	// returns the purge count. Idempotent and safe to call concurrently
	// with reads and writes.
	SweepExpired(ctx context.Context, now time.Time) (int, error)

	// GetSummary returns the rolling summary text for a conversation.
	// The boolean is false when no summary exists.
	GetSummary(ctx context.Context, conversationID string) (string, bool, error)

	// UpsertSummary replaces the conversation's rolling summary.
	// Last writer wins; there is no merge.
	UpsertSummary(ctx context.Context, conversationID, text string) error

	// Close releases store resources.
	Close() error
}
