package eventstream

import (
	"context"
	"sync"
)

// DefaultJournalCapacity bounds the journal when no capacity is configured.
const DefaultJournalCapacity = 256

// Journal is an in-process ring buffer of orchestration events backing the
// read-only inspection API. It implements Publisher so it can sit in a Multi
// next to a durable backend; interaction events pass through untouched.
type Journal struct {
	mu       sync.RWMutex
	events   []OrchestrationEvent
	start    int
	size     int
	capacity int
}

// NewJournal creates a journal holding up to capacity events.
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}

	return &Journal{
		events:   make([]OrchestrationEvent, capacity),
		capacity: capacity,
	}
}

// PublishOrchestration appends the event, evicting the oldest when full.
func (j *Journal) PublishOrchestration(_ context.Context, event *OrchestrationEvent) error {
	if event == nil {
		return ErrNilEvent
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	idx := (j.start + j.size) % j.capacity
	j.events[idx] = *event

	if j.size < j.capacity {
		j.size++
	} else {
		j.start = (j.start + 1) % j.capacity
	}

	return nil
}

// PublishInteraction validates input and otherwise does nothing; the journal
// only tracks orchestration events.
func (j *Journal) PublishInteraction(_ context.Context, event *InteractionRecordedEvent) error {
	if event == nil {
		return ErrNilEvent
	}

	return nil
}

// Recent returns up to n most recent orchestration events, newest first.
// n <= 0 returns everything retained.
func (j *Journal) Recent(n int) []OrchestrationEvent {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if n <= 0 || n > j.size {
		n = j.size
	}

	out := make([]OrchestrationEvent, 0, n)
	for i := 0; i < n; i++ {
		idx := (j.start + j.size - 1 - i) % j.capacity
		out = append(out, j.events[idx])
	}

	return out
}

// Close is a no-op.
func (j *Journal) Close() error {
	return nil
}

// Ensure Journal implements Publisher
var _ Publisher = (*Journal)(nil)
