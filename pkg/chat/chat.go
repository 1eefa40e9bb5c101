// Package chat wires one inbound message through the full pipeline: append to
// the message log, assemble context from memory and retrieval, generate or
// orchestrate an answer, append the assistant turn, refresh the rolling
// summary, and record telemetry.
package chat

import (
	"errors"

	"github.com/crosswirelabs/loom/pkg/orchestrator"
)

// ErrEmptyContent is returned for a request with empty message content.
// Rejected before any side effect occurs.
var ErrEmptyContent = errors.New("message content is empty")

// ReasoningConfig selects reasoning strategies for a request.
type ReasoningConfig struct {
	Strategies         []orchestrator.Kind `json:"strategies"`
	ToTDepth           int                 `json:"tot_depth,omitempty"`
	ConsistencySamples int                 `json:"consistency_samples,omitempty"`
	ReflectionTurns    int                 `json:"reflection_turns,omitempty"`
}

// Request is one inbound chat message.
type Request struct {
	// ConversationID continues an existing conversation; empty starts a
	// new one.
	ConversationID string `json:"conversation_id,omitempty"`

	// Content is the user's message. Must be non-empty.
	Content string `json:"content"`

	// ModelID overrides the configured default model.
	ModelID string `json:"model_id,omitempty"`

	// Reasoning, when set with at least one strategy, routes the request
	// through the orchestrator.
	Reasoning *ReasoningConfig `json:"reasoning,omitempty"`
}

// Response is the answer to one chat request.
type Response struct {
	ConversationID string                `json:"conversation_id"`
	Content        string                `json:"content"`
	Steps          []string              `json:"steps,omitempty"`
	Sources        []orchestrator.Source `json:"sources,omitempty"`
	Degraded       bool                  `json:"degraded,omitempty"`
}

// useReasoning reports whether the request asks for orchestrated reasoning.
func (r *Request) useReasoning() bool {
	return r.Reasoning != nil && len(r.Reasoning.Strategies) > 0
}
