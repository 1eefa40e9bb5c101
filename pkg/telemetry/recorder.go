package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/eventstream"
)

var (
	defaultNumWorkers   uint = 2
	defaultQueueSize    uint = 256
	defaultPublishGrace      = 10 * time.Second
)

// Config is the configuration options for the recorder.
type Config struct {
	// Publisher receives the recorded events.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers draining the queue.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Recorder writes interaction events off the request hot path.
// Every failure mode (full queue, publish error) is logged and swallowed;
// telemetry never fails or retries the parent request.
type Recorder struct {
	config *Config
	queue  chan InteractionEvent
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewRecorder creates a new Recorder and starts its worker goroutines.
func NewRecorder(c *Config) *Recorder {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}

	r := &Recorder{
		config: c,
		queue:  make(chan InteractionEvent, c.QueueSize),
		logger: c.Logger,
	}

	r.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go r.worker(i)
	}

	return r
}

// Record submits an event for background recording. Never blocks: when the
// queue is full the event is dropped and the drop is logged.
func (r *Recorder) Record(event InteractionEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	select {
	case r.queue <- event:
	default:
		r.logger.Warn("telemetry queue full, event dropped",
			zap.String("route", event.Route),
			zap.String("tenant", event.Tenant),
		)
	}
}

// Close signals workers to stop and waits for queued events to drain.
// Call this during graceful shutdown after the API server has stopped.
func (r *Recorder) Close() {
	close(r.queue)
	r.wg.Wait()
}

// worker continuously pulls events off the queue and publishes them.
func (r *Recorder) worker(id uint) {
	defer r.wg.Done()
	r.logger.Debug("telemetry worker started", zap.Uint("worker_id", id))

	for event := range r.queue {
		r.publish(event)
	}

	r.logger.Debug("telemetry worker stopped", zap.Uint("worker_id", id))
}

// publish writes one event to the eventstream. Failures are logged, never
// propagated; there is no caller left to propagate to.
func (r *Recorder) publish(event InteractionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishGrace)
	defer cancel()

	err := r.config.Publisher.PublishInteraction(ctx, &eventstream.InteractionRecordedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeInteractionRecorded,
		EventID:       event.ID,
		EmittedAt:     event.CreatedAt,
		Tenant:        event.Tenant,
		Route:         event.Route,
		Model:         event.Model,
		LatencyMs:     event.Latency.Milliseconds(),
		TokensIn:      event.TokensIn,
		TokensOut:     event.TokensOut,
		CostUSD:       event.CostUSD,
	})
	if err != nil {
		r.logger.Warn("failed to record interaction event",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return
	}

	r.logger.Debug("interaction recorded",
		zap.String("event_id", event.ID),
		zap.String("route", event.Route),
		zap.Int64("latency_ms", event.Latency.Milliseconds()),
	)
}
