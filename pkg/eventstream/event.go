package eventstream

import (
	"time"

	"github.com/crosswirelabs/loom/pkg/agent"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeOrchestration is emitted for orchestration step outcomes.
	EventTypeOrchestration = "loom.orchestration.step"

	// EventTypeInteractionRecorded is emitted after a chat interaction is
	// recorded by telemetry.
	EventTypeInteractionRecorded = "loom.interaction.recorded"
)

// Severity classifies an orchestration event for observability surfaces.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// OrchestrationEvent is a transport-neutral record of one orchestration
// occurrence: a step transition, a strategy decision, a degradation.
type OrchestrationEvent struct {
	SchemaVersion int        `json:"schema_version"`
	EventType     string     `json:"event_type"`
	EventID       string     `json:"event_id"`
	EmittedAt     time.Time  `json:"emitted_at"`
	Severity      Severity   `json:"severity"`
	AgentType     agent.Type `json:"agent_type,omitempty"`
	Message       string     `json:"message"`
}

// InteractionRecordedEvent is a transport-neutral payload for a recorded
// chat interaction.
type InteractionRecordedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Tenant        string    `json:"tenant"`
	Route         string    `json:"route"`
	Model         string    `json:"model,omitempty"`
	LatencyMs     int64     `json:"latency_ms"`
	TokensIn      int       `json:"tokens_in"`
	TokensOut     int       `json:"tokens_out"`
	CostUSD       float64   `json:"cost_usd"`
}
