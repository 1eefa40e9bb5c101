// Package agent provides the agent registry: identity, type, and availability
// state for the orchestrator's pipeline agents.
package agent

import (
	"errors"
	"fmt"
)

// Type classifies an agent by its pipeline role.
type Type string

const (
	TypePlanner     Type = "planner"
	TypeResearcher  Type = "researcher"
	TypeReasoner    Type = "reasoner"
	TypeSynthesizer Type = "synthesizer"
)

// Status is an agent's availability state.
//
// available ⇄ busy transitions are driven by the orchestrator as it begins
// and ends use of an agent. offline is entered and left only by an external
// health signal; the orchestrator never sets it.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
	StatusOffline   Status = "offline"
)

// Agent is a registered pipeline agent.
type Agent struct {
	ID      string `json:"id"`
	Type    Type   `json:"type"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  Status `json:"status"`
}

var (
	// ErrNotFound is returned when no agent matches the given ID.
	ErrNotFound = errors.New("agent not found")

	// ErrOffline is returned when an offline agent is asked to go busy.
	// Recovery to available must come from the external health signal.
	ErrOffline = errors.New("agent offline")
)

// InvalidStatusError is returned for a status value outside the known set.
type InvalidStatusError struct {
	Status Status
}

func (e InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid agent status: %q", e.Status)
}
