// Package telemetry records per-interaction audit events (latency, token
// counts, estimated cost) without ever touching the request's critical path.
//
// The recorder decouples event writes from the caller via a background worker
// pool: Record is a non-blocking enqueue, write failures are logged and
// swallowed, and Close drains in-flight events during shutdown.
package telemetry

import "time"

// InteractionEvent is one append-only audit record for a chat interaction.
// A failed write must never fail the parent request.
type InteractionEvent struct {
	ID        string        `json:"id"`
	Tenant    string        `json:"tenant"`
	Route     string        `json:"route"`
	Model     string        `json:"model,omitempty"`
	Latency   time.Duration `json:"latency"`
	TokensIn  int           `json:"tokens_in"`
	TokensOut int           `json:"tokens_out"`
	CostUSD   float64       `json:"cost_usd"`
	CreatedAt time.Time     `json:"created_at"`
}
