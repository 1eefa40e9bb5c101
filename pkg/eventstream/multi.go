package eventstream

import (
	"context"
	"errors"
)

// Multi fans events out to several publishers, attempting every publisher
// even when an earlier one fails. Returns the joined errors.
type Multi struct {
	publishers []Publisher
}

// NewMulti creates a publisher fanning out to all given publishers.
func NewMulti(publishers ...Publisher) *Multi {
	return &Multi{publishers: publishers}
}

// PublishOrchestration publishes to every backend.
func (m *Multi) PublishOrchestration(ctx context.Context, event *OrchestrationEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishOrchestration(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// PublishInteraction publishes to every backend.
func (m *Multi) PublishInteraction(ctx context.Context, event *InteractionRecordedEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishInteraction(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close closes every backend.
func (m *Multi) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Ensure Multi implements Publisher
var _ Publisher = (*Multi)(nil)
