// Package msglog provides the append-only message log: one ordered sequence
// of turns per conversation.
//
// Appends assign a strictly increasing per-conversation sequence number and
// are read-your-writes: a message appended by a request is visible to the
// RecentN call that follows it within the same request. Messages are
// immutable once written.
package msglog

import (
	"context"
	"errors"
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
)

// Conversation is the thread a message sequence belongs to. Conversations
// are created implicitly on first append and never deleted by this layer.
type Conversation struct {
	ID        string             `json:"id"`
	Tenant    string             `json:"tenant"`
	UserID    string             `json:"user_id,omitempty"`
	Status    ConversationStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

// Message is a single immutable turn in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Seq            uint64    `json:"seq"`
	CreatedAt      time.Time `json:"created_at"`
}

// ErrUnavailable is returned when the log backend cannot be reached.
// Unlike memory reads, a failed append is surfaced to the caller: silently
// losing the user's own message is not acceptable degradation.
var ErrUnavailable = errors.New("message log unavailable")

// Log is the append-only message log.
type Log interface {
	// Append writes a message to the conversation, creating the
	// conversation on first use, and returns the stored message with its
	// assigned sequence number.
	Append(ctx context.Context, conversationID string, role Role, content string) (*Message, error)

	// RecentN returns up to n most recent messages in chronological order
	// (oldest first).
	RecentN(ctx context.Context, conversationID string, n int) ([]*Message, error)

	// Conversation returns the conversation record, or false when the
	// conversation has never been appended to.
	Conversation(ctx context.Context, conversationID string) (*Conversation, bool, error)

	// Close releases log resources.
	Close() error
}
