package orchestrator

import (
	"context"
	"fmt"

	"github.com/crosswirelabs/loom/pkg/llm"
)

const (
	// DefaultConsistencySamples is used when the caller supplies no count.
	DefaultConsistencySamples = 3

	// consistencyTemperature must be non-zero: identical deterministic
	// samples make majority voting meaningless.
	consistencyTemperature = 0.7
)

// selfConsistencyStrategy draws independent samples at sampling temperature
// and returns all of them; the orchestrator's majority vote picks the answer.
type selfConsistencyStrategy struct {
	generator llm.Generator
	pool      *Pool
}

func (s *selfConsistencyStrategy) Kind() Kind {
	return StrategySelfConsistency
}

func (s *selfConsistencyStrategy) Execute(ctx context.Context, in StrategyInput) ([]Candidate, error) {
	samples := in.Params.ConsistencySamples
	if samples <= 0 {
		samples = DefaultConsistencySamples
	}

	temperature := consistencyTemperature
	candidates, err := s.pool.Map(ctx, samples, func(ctx context.Context, _ int) (Candidate, error) {
		resp, err := s.generator.Generate(ctx, &llm.GenerateRequest{
			Model:       in.Model,
			Temperature: &temperature,
			Prompt:      in.Prompt,
		})
		if err != nil {
			return Candidate{}, err
		}
		return Candidate{Text: resp.Text, Confidence: resp.Confidence}, nil
	})
	if len(candidates) == 0 {
		return nil, fmt.Errorf("all self-consistency samples failed: %w", err)
	}

	return candidates, nil
}

// majorityVote picks the candidate whose whitespace-normalized text occurs
// most often. Ties break toward the first-produced sample.
func majorityVote(candidates []Candidate) Candidate {
	counts := make(map[string]int, len(candidates))
	for _, c := range candidates {
		counts[normalizeAnswer(c.Text)]++
	}

	best := candidates[0]
	bestCount := counts[normalizeAnswer(best.Text)]
	for _, c := range candidates[1:] {
		if n := counts[normalizeAnswer(c.Text)]; n > bestCount {
			best = c
			bestCount = n
		}
	}

	return best
}
