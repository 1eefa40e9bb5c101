// Package eventstream publishes orchestration and interaction events to an
// event stream backend. Publishing is off the request's success path: callers
// log publish failures and move on.
package eventstream

import "context"

// Publisher publishes loom events to an event stream backend.
type Publisher interface {
	PublishOrchestration(ctx context.Context, event *OrchestrationEvent) error
	PublishInteraction(ctx context.Context, event *InteractionRecordedEvent) error
	Close() error
}
