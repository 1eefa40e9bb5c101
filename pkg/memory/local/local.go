// Package local provides an in-process implementation of memory.Store.
//
// Entries and summaries live in maps guarded by a read-write mutex. This is
// the local-dev and test story; the sqlite driver persists across restarts.
package local

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/crosswirelabs/loom/pkg/memory"
)

type entryKey struct {
	conversationID string
	key            string
}

// Store implements memory.Store using in-process data structures.
type Store struct {
	mu sync.RWMutex

	// entries maps (conversation, key) -> entry.
	entries map[entryKey]*memory.Entry

	// summaries maps conversation -> rolling summary.
	summaries map[string]*memory.Summary
}

// NewStore creates a local in-memory store.
func NewStore() *Store {
	return &Store{
		entries:   make(map[entryKey]*memory.Entry),
		summaries: make(map[string]*memory.Summary),
	}
}

// Set upserts a value under (conversationID, key).
func (s *Store) Set(_ context.Context, conversationID, key string, value json.RawMessage, ttl time.Duration) error {
	entry := &memory.Entry{
		ConversationID: conversationID,
		Key:            key,
		Value:          append(json.RawMessage(nil), value...),
	}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entryKey{conversationID, key}] = entry
	return nil
}

// Get returns the value for (conversationID, key), treating expired entries
// as absent even if the sweeper has not run yet.
func (s *Store) Get(_ context.Context, conversationID, key string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[entryKey{conversationID, key}]
	s.mu.RUnlock()

	if !ok || entry.Expired(time.Now()) {
		return nil, false, nil
	}

	// Return a copy to avoid callers mutating internal state.
	return append(json.RawMessage(nil), entry.Value...), true, nil
}

// Delete removes an entry. Absent keys are a no-op.
func (s *Store) Delete(_ context.Context, conversationID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, entryKey{conversationID, key})
	return nil
}

// SweepExpired purges all entries whose expiry is at or before now.
func (s *Store) SweepExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for k, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, k)
			count++
		}
	}

	return count, nil
}

// GetSummary returns the rolling summary text for a conversation.
func (s *Store) GetSummary(_ context.Context, conversationID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.summaries[conversationID]
	if !ok {
		return "", false, nil
	}

	return summary.Text, true, nil
}

// UpsertSummary replaces the conversation's rolling summary.
func (s *Store) UpsertSummary(_ context.Context, conversationID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries[conversationID] = &memory.Summary{
		ConversationID: conversationID,
		Text:           text,
		UpdatedAt:      time.Now(),
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Ensure Store implements memory.Store
var _ memory.Store = (*Store)(nil)
