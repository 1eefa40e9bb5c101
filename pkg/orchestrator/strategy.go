package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/crosswirelabs/loom/pkg/llm"
)

// Kind names a reasoning strategy: a policy governing how the reasoner step
// produces candidate answers.
type Kind string

const (
	StrategyStandard        Kind = "standard"
	StrategyChainOfThought  Kind = "chain-of-thought"
	StrategyTreeOfThoughts  Kind = "tree-of-thoughts"
	StrategySelfConsistency Kind = "self-consistency"
	StrategyReAct           Kind = "react"
	StrategyDecomposition   Kind = "decomposition"
)

// Params are the caller-supplied strategy parameters.
type Params struct {
	// ToTDepth is the number of parallel tree-of-thoughts branches.
	ToTDepth int `json:"tot_depth,omitempty"`

	// ConsistencySamples is the number of independent self-consistency
	// samples.
	ConsistencySamples int `json:"consistency_samples,omitempty"`

	// ReflectionTurns is the number of ReAct refinement turns.
	ReflectionTurns int `json:"reflection_turns,omitempty"`
}

// Candidate is one answer produced by a strategy.
type Candidate struct {
	// Text is the candidate answer.
	Text string

	// Confidence is the generator-reported confidence, zero when the
	// provider reports none.
	Confidence float64

	// Order is the submission order of the producing branch or sample.
	// The deterministic tiebreak for equal scores and vote counts.
	Order int
}

// StrategyInput is what a strategy works from: the reasoning prompt already
// carrying the assembled context, plan, and research notes.
type StrategyInput struct {
	Prompt string
	Model  string
	Params Params
}

// Strategy produces candidate answers for the reasoner step. Implementations
// hold their own fan-out behavior; the pipeline shape stays fixed around them.
type Strategy interface {
	Kind() Kind
	Execute(ctx context.Context, in StrategyInput) ([]Candidate, error)
}

// forKind resolves a strategy implementation by its tagged kind.
func forKind(kind Kind, generator llm.Generator, pool *Pool) (Strategy, error) {
	switch kind {
	case StrategyStandard:
		return &promptedStrategy{kind: StrategyStandard, generator: generator}, nil
	case StrategyChainOfThought:
		return &promptedStrategy{
			kind:      StrategyChainOfThought,
			generator: generator,
			preamble:  "Reason through the problem step by step before giving the final answer.",
		}, nil
	case StrategyReAct:
		return &reactStrategy{generator: generator}, nil
	case StrategyDecomposition:
		return &decompositionStrategy{generator: generator, pool: pool}, nil
	case StrategyTreeOfThoughts:
		return &treeOfThoughtsStrategy{generator: generator, pool: pool}, nil
	case StrategySelfConsistency:
		return &selfConsistencyStrategy{generator: generator, pool: pool}, nil
	default:
		return nil, fmt.Errorf("unknown reasoning strategy: %q", kind)
	}
}

// normalizeAnswer collapses whitespace for exact-match answer comparison.
func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
