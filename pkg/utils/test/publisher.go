package testutils

import (
	"context"
	"sync"

	"github.com/crosswirelabs/loom/pkg/eventstream"
)

// CapturingPublisher is a test publisher that records every event.
type CapturingPublisher struct {
	mu sync.Mutex

	// Orchestrations accumulates published orchestration events.
	Orchestrations []eventstream.OrchestrationEvent

	// Interactions accumulates published interaction events.
	Interactions []eventstream.InteractionRecordedEvent

	// PublishErr causes both publish methods to return an error.
	PublishErr error
}

func NewCapturingPublisher() *CapturingPublisher {
	return &CapturingPublisher{}
}

func (p *CapturingPublisher) PublishOrchestration(_ context.Context, event *eventstream.OrchestrationEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if p.PublishErr != nil {
		return p.PublishErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Orchestrations = append(p.Orchestrations, *event)
	return nil
}

func (p *CapturingPublisher) PublishInteraction(_ context.Context, event *eventstream.InteractionRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if p.PublishErr != nil {
		return p.PublishErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Interactions = append(p.Interactions, *event)
	return nil
}

// OrchestrationCount returns how many orchestration events were published.
func (p *CapturingPublisher) OrchestrationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Orchestrations)
}

// InteractionCount returns how many interaction events were published.
func (p *CapturingPublisher) InteractionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Interactions)
}

func (p *CapturingPublisher) Close() error {
	return nil
}
