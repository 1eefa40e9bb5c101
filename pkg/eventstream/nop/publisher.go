package nop

import (
	"context"

	"github.com/crosswirelabs/loom/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishOrchestration validates input and otherwise does nothing.
func (p *Publisher) PublishOrchestration(_ context.Context, event *eventstream.OrchestrationEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// PublishInteraction validates input and otherwise does nothing.
func (p *Publisher) PublishInteraction(_ context.Context, event *eventstream.InteractionRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

// Ensure Publisher implements eventstream.Publisher
var _ eventstream.Publisher = (*Publisher)(nil)
