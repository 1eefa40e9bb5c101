package orchestrator

import (
	"context"

	"github.com/crosswirelabs/loom/pkg/llm"
)

// promptedStrategy covers the single-call strategies: standard generation and
// chain-of-thought, which differ only in the reasoning preamble.
type promptedStrategy struct {
	kind      Kind
	generator llm.Generator
	preamble  string
}

func (s *promptedStrategy) Kind() Kind {
	return s.kind
}

func (s *promptedStrategy) Execute(ctx context.Context, in StrategyInput) ([]Candidate, error) {
	prompt := in.Prompt
	if s.preamble != "" {
		prompt = s.preamble + "\n\n" + prompt
	}

	resp, err := s.generator.Generate(ctx, &llm.GenerateRequest{
		Model:  in.Model,
		Prompt: prompt,
	})
	if err != nil {
		return nil, err
	}

	return []Candidate{{Text: resp.Text, Confidence: resp.Confidence}}, nil
}
