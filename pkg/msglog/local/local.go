// Package local provides an in-process implementation of msglog.Log.
package local

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crosswirelabs/loom/pkg/msglog"
)

type thread struct {
	conversation *msglog.Conversation
	messages     []*msglog.Message
	nextSeq      uint64
}

// Log implements msglog.Log using in-process data structures.
type Log struct {
	mu sync.RWMutex

	// threads maps conversation ID -> its ordered message slice.
	threads map[string]*thread

	// tenant is stamped on auto-created conversations.
	tenant string
}

// NewLog creates a local in-memory message log.
func NewLog(tenant string) *Log {
	return &Log{
		threads: make(map[string]*thread),
		tenant:  tenant,
	}
}

// Append writes a message, creating the conversation on first use.
func (l *Log) Append(_ context.Context, conversationID string, role msglog.Role, content string) (*msglog.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.threads[conversationID]
	if !ok {
		t = &thread{
			conversation: &msglog.Conversation{
				ID:        conversationID,
				Tenant:    l.tenant,
				Status:    msglog.ConversationActive,
				CreatedAt: time.Now(),
			},
			nextSeq: 1,
		}
		l.threads[conversationID] = t
	}

	message := &msglog.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Seq:            t.nextSeq,
		CreatedAt:      time.Now(),
	}
	t.nextSeq++
	t.messages = append(t.messages, message)

	return message, nil
}

// RecentN returns up to n most recent messages, oldest first.
func (l *Log) RecentN(_ context.Context, conversationID string, n int) ([]*msglog.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.threads[conversationID]
	if !ok {
		return nil, nil
	}

	start := len(t.messages) - n
	if start < 0 {
		start = 0
	}

	// Copy so callers can't mutate the log's backing slice.
	out := make([]*msglog.Message, len(t.messages)-start)
	copy(out, t.messages[start:])

	return out, nil
}

// Conversation returns the conversation record if it exists.
func (l *Log) Conversation(_ context.Context, conversationID string) (*msglog.Conversation, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.threads[conversationID]
	if !ok {
		return nil, false, nil
	}

	conversation := *t.conversation
	return &conversation, true, nil
}

// Close is a no-op for the in-memory log.
func (l *Log) Close() error {
	return nil
}

// Ensure Log implements msglog.Log
var _ msglog.Log = (*Log)(nil)
