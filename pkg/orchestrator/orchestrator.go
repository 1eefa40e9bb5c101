// Package orchestrator sequences the fixed reasoning pipeline
// planner → researcher → reasoner → synthesizer over the agent registry.
//
// Strategies (chain-of-thought, tree-of-thoughts, self-consistency, ReAct,
// decomposition) vary how the reasoner step produces candidate answers; the
// pipeline shape never changes. A failed step short-circuits the rest of the
// pipeline and the run returns the best partial result marked degraded; only
// a planner failure is fatal to the whole request.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/agent"
	"github.com/crosswirelabs/loom/pkg/eventstream"
	"github.com/crosswirelabs/loom/pkg/llm"
)

// DefaultStepTimeout bounds one external generation call when the config
// supplies no timeout.
const DefaultStepTimeout = 120 * time.Second

var (
	// ErrPlannerFailed is returned when the first pipeline step fails;
	// there is no partial result worth returning without a plan.
	ErrPlannerFailed = errors.New("planner step failed")

	// ErrNoStrategies is returned for a reasoning run with no resolvable
	// strategy.
	ErrNoStrategies = errors.New("no reasoning strategy specified")
)

// Source is a citation the synthesizer can refer to by rank.
type Source struct {
	Rank  int    `json:"rank"`
	Title string `json:"title"`
	URI   string `json:"uri,omitempty"`
}

// RunInput is one orchestration request.
type RunInput struct {
	// Query is the user's question.
	Query string

	// Prompt is the assembled context prompt (summary, transcript,
	// retrieved evidence, query).
	Prompt string

	// Model is the model identifier passed through to the generator.
	Model string

	// Strategies selects the reasoning strategies for the reasoner step.
	// Empty means standard.
	Strategies []Kind

	// Params are the strategy parameters.
	Params Params

	// Sources are the retrieved citations, rank-ordered.
	Sources []Source
}

// RunResult is the outcome of a pipeline run.
type RunResult struct {
	// Answer is the final (or best partial) answer text.
	Answer string

	// Descriptions is the ordered human-readable account of what each
	// step did.
	Descriptions []string

	// Sources are the citations available to the synthesizer.
	Sources []Source

	// Steps is the full step record with terminal statuses.
	Steps []Step

	// Degraded is true when a non-planner step failed and the answer is
	// partial.
	Degraded bool
}

// Config holds orchestrator construction options.
type Config struct {
	// PoolSize bounds concurrent strategy branches across all runs.
	PoolSize int

	// StepTimeout bounds each external generation call.
	StepTimeout time.Duration
}

// Orchestrator runs the reasoning pipeline. Agents are claimed through the
// registry's atomic Acquire and returned through Release; the orchestrator
// never sets offline.
type Orchestrator struct {
	registry    *agent.Registry
	generator   llm.Generator
	pool        *Pool
	publisher   eventstream.Publisher
	stepTimeout time.Duration
	logger      *zap.Logger
}

// New creates an orchestrator over the given registry, generator, and event
// publisher.
func New(config Config, registry *agent.Registry, generator llm.Generator, publisher eventstream.Publisher, logger *zap.Logger) *Orchestrator {
	stepTimeout := config.StepTimeout
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}

	return &Orchestrator{
		registry:    registry,
		generator:   generator,
		pool:        NewPool(config.PoolSize),
		publisher:   publisher,
		stepTimeout: stepTimeout,
		logger:      logger,
	}
}

// runState accumulates intermediate step outputs across the pipeline.
type runState struct {
	plan     string
	notes    string
	selected Candidate
	answer   string
}

// Run executes the pipeline for one request.
//
// Cancellation: the caller's context gates dispatch, so once it is cancelled
// no further step starts. The in-flight generation call runs on a detached
// context bounded by the step timeout, so a provider call is never aborted
// mid-flight and its agent is released normally when it returns. A
// cancellation arriving before any step completed fails the run with the
// context's error; after that it degrades to the partial result.
func (o *Orchestrator) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	strategies, err := o.resolveStrategies(in.Strategies)
	if err != nil {
		return nil, err
	}

	steps := planSteps()
	state := &runState{}
	descriptions := make([]string, 0, len(steps))
	degraded := false

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			// With no step completed there is no partial worth
			// returning, and nothing should be persisted downstream.
			if len(descriptions) == 0 {
				return nil, err
			}

			o.logger.Info("orchestration cancelled, halting dispatch",
				zap.String("next_step", string(step.Agent)),
			)
			degraded = true
			break
		}

		description, err := o.runStep(ctx, step, strategies, in, state)
		if err != nil {
			o.publishStep(ctx, eventstream.SeverityError, step.Agent, err.Error())

			if step.Agent == agent.TypePlanner {
				return nil, fmt.Errorf("%w: %v", ErrPlannerFailed, err)
			}

			o.logger.Warn("pipeline step failed, short-circuiting",
				zap.String("agent_type", string(step.Agent)),
				zap.Error(err),
			)
			degraded = true
			break
		}

		descriptions = append(descriptions, description)
		o.publishStep(ctx, eventstream.SeveritySuccess, step.Agent, description)
	}

	answer := state.bestAnswer()

	result := &RunResult{
		Answer:       answer,
		Descriptions: descriptions,
		Sources:      in.Sources,
		Degraded:     degraded,
	}
	for _, s := range steps {
		result.Steps = append(result.Steps, *s)
	}

	return result, nil
}

// resolveStrategies maps requested kinds to implementations, defaulting to
// standard when none were requested.
func (o *Orchestrator) resolveStrategies(kinds []Kind) ([]Strategy, error) {
	if len(kinds) == 0 {
		kinds = []Kind{StrategyStandard}
	}

	strategies := make([]Strategy, 0, len(kinds))
	for _, kind := range kinds {
		s, err := forKind(kind, o.generator, o.pool)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}

	if len(strategies) == 0 {
		return nil, ErrNoStrategies
	}

	return strategies, nil
}

// runStep dispatches one pipeline step: atomically acquire an agent, run the
// step body on a detached deadline-bounded context, release the agent.
func (o *Orchestrator) runStep(ctx context.Context, step *Step, strategies []Strategy, in RunInput, state *runState) (string, error) {
	a, ok := o.registry.Acquire(step.Agent)
	if !ok {
		// No transition to running: the step never dispatched.
		step.Status = StepFailed
		step.Note = "no agent available"
		step.UpdatedAt = time.Now().UTC()
		return "", fmt.Errorf("no %s agent available", step.Agent)
	}

	if err := step.transition(StepRunning); err != nil {
		if releaseErr := o.registry.Release(a.ID); releaseErr != nil {
			o.logger.Warn("failed to release agent",
				zap.String("agent_id", a.ID),
				zap.Error(releaseErr),
			)
		}
		return "", err
	}

	// Detach from caller cancellation so an in-flight provider call is
	// allowed to finish; the step timeout still applies.
	stepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.stepTimeout)
	description, stepErr := o.executeStep(stepCtx, step.Agent, strategies, in, state)
	cancel()

	if releaseErr := o.registry.Release(a.ID); releaseErr != nil {
		o.logger.Warn("failed to release agent",
			zap.String("agent_id", a.ID),
			zap.Error(releaseErr),
		)
	}

	if stepErr != nil {
		if err := step.transition(StepFailed); err != nil {
			o.logger.Warn("step transition rejected", zap.Error(err))
		}
		step.Note = stepErr.Error()
		return "", stepErr
	}

	if err := step.transition(StepCompleted); err != nil {
		return "", err
	}
	step.Note = description

	return description, nil
}

// executeStep runs the step body for the given agent type.
func (o *Orchestrator) executeStep(ctx context.Context, agentType agent.Type, strategies []Strategy, in RunInput, state *runState) (string, error) {
	switch agentType {
	case agent.TypePlanner:
		return o.runPlanner(ctx, in, state)
	case agent.TypeResearcher:
		return o.runResearcher(ctx, in, state)
	case agent.TypeReasoner:
		return o.runReasoner(ctx, strategies, in, state)
	case agent.TypeSynthesizer:
		return o.runSynthesizer(ctx, in, state)
	default:
		return "", fmt.Errorf("unknown pipeline agent type: %q", agentType)
	}
}

func (o *Orchestrator) runPlanner(ctx context.Context, in RunInput, state *runState) (string, error) {
	resp, err := o.generator.Generate(ctx, &llm.GenerateRequest{
		Model:  in.Model,
		Prompt: "Outline a short plan for answering the query. List the facts needed and the order to establish them.\n\n" + in.Prompt,
	})
	if err != nil {
		return "", err
	}

	state.plan = resp.Text
	return "planner: " + firstLine(resp.Text), nil
}

func (o *Orchestrator) runResearcher(ctx context.Context, in RunInput, state *runState) (string, error) {
	resp, err := o.generator.Generate(ctx, &llm.GenerateRequest{
		Model:  in.Model,
		Prompt: fmt.Sprintf("Plan:\n%s\n\nExtract the evidence from the retrieved context relevant to the plan, citing [n] markers.\n\n%s", state.plan, in.Prompt),
	})
	if err != nil {
		return "", err
	}

	state.notes = resp.Text
	return fmt.Sprintf("researcher: gathered evidence from %d sources", len(in.Sources)), nil
}

// runReasoner executes every requested strategy in order, selects a winner
// per strategy, then keeps the highest-confidence winner overall (earlier
// strategies win ties).
func (o *Orchestrator) runReasoner(ctx context.Context, strategies []Strategy, in RunInput, state *runState) (string, error) {
	reasonerInput := StrategyInput{
		Prompt: fmt.Sprintf("Plan:\n%s\n\nEvidence:\n%s\n\n%s", state.plan, state.notes, in.Prompt),
		Model:  in.Model,
		Params: in.Params,
	}

	var parts []string
	selected := Candidate{Confidence: -1}

	for _, strategy := range strategies {
		candidates, err := strategy.Execute(ctx, reasonerInput)
		if err != nil {
			return "", fmt.Errorf("strategy %s: %w", strategy.Kind(), err)
		}

		winner := selectCandidate(strategy.Kind(), candidates)
		parts = append(parts, describeSelection(strategy.Kind(), winner, len(candidates)))

		if winner.Confidence > selected.Confidence {
			selected = winner
		}
	}

	state.selected = selected
	return "reasoner: " + strings.Join(parts, "; "), nil
}

func (o *Orchestrator) runSynthesizer(ctx context.Context, in RunInput, state *runState) (string, error) {
	resp, err := o.generator.Generate(ctx, &llm.GenerateRequest{
		Model: in.Model,
		Prompt: fmt.Sprintf(
			"Reasoning:\n%s\n\nWrite the final answer to the query. Cite supporting sources with their [n] markers.\n\n%s",
			state.selected.Text, in.Prompt,
		),
	})
	if err != nil {
		return "", err
	}

	state.answer = resp.Text
	return fmt.Sprintf("synthesizer: final answer citing %d sources", len(in.Sources)), nil
}

// selectCandidate picks one candidate per strategy semantics: majority vote
// for self-consistency, confidence (submission order on ties) for everything
// that fans out, the single candidate otherwise.
func selectCandidate(kind Kind, candidates []Candidate) Candidate {
	if len(candidates) == 1 {
		return candidates[0]
	}

	if kind == StrategySelfConsistency {
		return majorityVote(candidates)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}

	return best
}

func describeSelection(kind Kind, winner Candidate, total int) string {
	switch kind {
	case StrategySelfConsistency:
		return fmt.Sprintf("%s selected majority answer from %d samples", kind, total)
	case StrategyTreeOfThoughts:
		return fmt.Sprintf("%s selected branch %d of %d (confidence %.2f)", kind, winner.Order+1, total, winner.Confidence)
	default:
		return string(kind) + " produced an answer"
	}
}

// bestAnswer returns the most refined output the pipeline reached.
func (s *runState) bestAnswer() string {
	switch {
	case s.answer != "":
		return s.answer
	case s.selected.Text != "":
		return s.selected.Text
	case s.notes != "":
		return s.notes
	default:
		return s.plan
	}
}

// publishStep emits an orchestration event; publish failures are logged and
// swallowed, observability never fails a run.
func (o *Orchestrator) publishStep(ctx context.Context, severity eventstream.Severity, agentType agent.Type, message string) {
	// Detached so a cancelled request can still report its final step.
	err := o.publisher.PublishOrchestration(context.WithoutCancel(ctx), &eventstream.OrchestrationEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeOrchestration,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Severity:      severity,
		AgentType:     agentType,
		Message:       message,
	})
	if err != nil {
		o.logger.Warn("failed to publish orchestration event", zap.Error(err))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}

	const maxLen = 120
	if len(s) > maxLen {
		s = s[:maxLen] + "…"
	}

	return s
}
