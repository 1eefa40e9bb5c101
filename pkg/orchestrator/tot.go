package orchestrator

import (
	"context"
	"fmt"

	"github.com/crosswirelabs/loom/pkg/llm"
)

const (
	// DefaultToTDepth is used when the caller supplies no branch count.
	DefaultToTDepth = 3

	// totTemperature keeps branches diverse; deterministic branches would
	// all converge on the same candidate.
	totTemperature = 0.8
)

// treeOfThoughtsStrategy expands the reasoner into parallel candidate
// branches, each taking a different angle on the query. All branch
// candidates are returned; selection happens in the orchestrator so scoring
// is observable as a step note.
type treeOfThoughtsStrategy struct {
	generator llm.Generator
	pool      *Pool
}

func (s *treeOfThoughtsStrategy) Kind() Kind {
	return StrategyTreeOfThoughts
}

func (s *treeOfThoughtsStrategy) Execute(ctx context.Context, in StrategyInput) ([]Candidate, error) {
	depth := in.Params.ToTDepth
	if depth <= 0 {
		depth = DefaultToTDepth
	}

	temperature := totTemperature
	candidates, err := s.pool.Map(ctx, depth, func(ctx context.Context, branch int) (Candidate, error) {
		resp, err := s.generator.Generate(ctx, &llm.GenerateRequest{
			Model:       in.Model,
			Temperature: &temperature,
			Prompt: fmt.Sprintf(
				"Explore reasoning path %d of %d: take a distinct line of attack on the query, reason it through, and give your answer.\n\n%s",
				branch+1, depth, in.Prompt,
			),
		})
		if err != nil {
			return Candidate{}, err
		}
		return Candidate{Text: resp.Text, Confidence: resp.Confidence}, nil
	})
	if len(candidates) == 0 {
		return nil, fmt.Errorf("all tree-of-thoughts branches failed: %w", err)
	}

	return candidates, nil
}
