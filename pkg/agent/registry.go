package agent

import (
	"fmt"
	"sort"
	"sync"
)

// entry pairs an agent record with its own lock. Status mutations take the
// per-agent lock, not a registry-wide one, so concurrent orchestrator
// branches touching different agents never contend.
type entry struct {
	mu    sync.Mutex
	agent Agent
}

// Registry owns the set of known agents and is the only place agent status
// changes. There is no ambient global state; construct one and share it.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Register adds an agent. A re-registered ID replaces the prior record.
// New agents start available unless the record says otherwise.
func (r *Registry) Register(a Agent) {
	if a.Status == "" {
		a.Status = StatusAvailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[a.ID] = &entry{agent: a}
}

// List returns a snapshot of all agents, ordered by ID for stable output.
func (r *Registry) List() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]Agent, 0, len(r.entries))
	for _, e := range r.entries {
		e.mu.Lock()
		agents = append(agents, e.agent)
		e.mu.Unlock()
	}

	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })

	return agents
}

// Acquire atomically claims an available agent of the given type and marks
// it busy. The scan and the status flip happen under the claimed agent's
// lock, so two concurrent acquisitions can never hold the same agent.
// Returns false when no agent of the type is available.
func (r *Registry) Acquire(t Type) (Agent, bool) {
	r.mu.RLock()
	candidates := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		candidates = append(candidates, e)
	}
	r.mu.RUnlock()

	// ID and Type are immutable after Register, so sorting without the
	// per-agent lock is safe; only Status mutates.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].agent.ID < candidates[j].agent.ID
	})

	for _, e := range candidates {
		e.mu.Lock()
		if e.agent.Type == t && e.agent.Status == StatusAvailable {
			e.agent.Status = StatusBusy
			claimed := e.agent
			e.mu.Unlock()
			return claimed, true
		}
		e.mu.Unlock()
	}

	return Agent{}, false
}

// Release returns an acquired agent to available. Only a busy agent can be
// released: a double release, or releasing an agent the health signal has
// since taken offline, is rejected rather than silently flipping state.
func (r *Registry) Release(agentID string) error {
	r.mu.RLock()
	e, ok := r.entries[agentID]
	r.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.agent.Status != StatusBusy {
		return fmt.Errorf("releasing agent %s: status is %s, not busy", agentID, e.agent.Status)
	}

	e.agent.Status = StatusAvailable
	return nil
}

// SetStatus is the mutator for the external health signal. Dispatch goes
// through Acquire and Release instead.
//
// Transition rules: offline → busy is rejected with ErrOffline (an offline
// agent must be explicitly recovered to available first); any state may be
// set offline or recovered to available by the health signal.
func (r *Registry) SetStatus(agentID string, status Status) error {
	switch status {
	case StatusAvailable, StatusBusy, StatusOffline:
	default:
		return InvalidStatusError{Status: status}
	}

	r.mu.RLock()
	e, ok := r.entries[agentID]
	r.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.agent.Status == StatusOffline && status == StatusBusy {
		return ErrOffline
	}

	e.agent.Status = status
	return nil
}

// FindAvailable returns an available agent of the given type, if any.
func (r *Registry) FindAvailable(t Type) (Agent, bool) {
	return r.findByStatus(t, StatusAvailable)
}

// FindBusy returns a busy agent of the given type, if any.
// Used by observability surfaces, not by dispatch.
func (r *Registry) FindBusy(t Type) (Agent, bool) {
	return r.findByStatus(t, StatusBusy)
}

func (r *Registry) findByStatus(t Type, status Status) (Agent, bool) {
	// Scan in ID order so repeated calls pick the same agent.
	for _, a := range r.List() {
		if a.Type == t && a.Status == status {
			return a, true
		}
	}

	return Agent{}, false
}
