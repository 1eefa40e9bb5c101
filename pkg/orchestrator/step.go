package orchestrator

import (
	"fmt"
	"time"

	"github.com/crosswirelabs/loom/pkg/agent"
)

// StepStatus is the lifecycle state of an orchestration step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Step is one stage of the fixed pipeline with its own lifecycle state.
// Transitions are monotonic: pending → running → completed|failed, and a
// terminal step never re-enters a prior state.
type Step struct {
	Agent     agent.Type `json:"agent_type"`
	Status    StepStatus `json:"status"`
	Index     int        `json:"index"`
	Note      string     `json:"note,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// transition advances the step's lifecycle, rejecting any move backward or
// out of a terminal state.
func (s *Step) transition(to StepStatus) error {
	allowed := false
	switch s.Status {
	case StepPending:
		allowed = to == StepRunning
	case StepRunning:
		allowed = to == StepCompleted || to == StepFailed
	}

	if !allowed {
		return fmt.Errorf("invalid step transition %s -> %s (agent %s)", s.Status, to, s.Agent)
	}

	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// pipeline is the fixed agent ordering. Strategies alter how the reasoner
// step behaves, never the pipeline shape.
var pipeline = []agent.Type{
	agent.TypePlanner,
	agent.TypeResearcher,
	agent.TypeReasoner,
	agent.TypeSynthesizer,
}

// planSteps builds the ordered pending step plan for one run.
func planSteps() []*Step {
	steps := make([]*Step, len(pipeline))
	for i, t := range pipeline {
		steps[i] = &Step{
			Agent:     t,
			Status:    StepPending,
			Index:     i,
			UpdatedAt: time.Now().UTC(),
		}
	}

	return steps
}
