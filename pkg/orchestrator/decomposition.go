package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/crosswirelabs/loom/pkg/llm"
)

// maxSubQuestions caps decomposition fan-out regardless of generator output.
const maxSubQuestions = 4

// decompositionStrategy splits the query into sub-questions, answers each
// concurrently, and composes a final answer from the partial answers.
type decompositionStrategy struct {
	generator llm.Generator
	pool      *Pool
}

func (s *decompositionStrategy) Kind() Kind {
	return StrategyDecomposition
}

func (s *decompositionStrategy) Execute(ctx context.Context, in StrategyInput) ([]Candidate, error) {
	resp, err := s.generator.Generate(ctx, &llm.GenerateRequest{
		Model: in.Model,
		Prompt: fmt.Sprintf(
			"Break the query below into at most %d independent sub-questions, one per line, no numbering.\n\n%s",
			maxSubQuestions, in.Prompt,
		),
	})
	if err != nil {
		return nil, err
	}

	subQuestions := parseSubQuestions(resp.Text)
	if len(subQuestions) == 0 {
		// Nothing to decompose; answer directly.
		direct, err := s.generator.Generate(ctx, &llm.GenerateRequest{Model: in.Model, Prompt: in.Prompt})
		if err != nil {
			return nil, err
		}
		return []Candidate{{Text: direct.Text, Confidence: direct.Confidence}}, nil
	}

	partials, err := s.pool.Map(ctx, len(subQuestions), func(ctx context.Context, branch int) (Candidate, error) {
		r, err := s.generator.Generate(ctx, &llm.GenerateRequest{
			Model:  in.Model,
			Prompt: fmt.Sprintf("Answer only this sub-question using the context.\n\nSub-question: %s\n\n%s", subQuestions[branch], in.Prompt),
		})
		if err != nil {
			return Candidate{}, err
		}
		return Candidate{Text: r.Text, Confidence: r.Confidence}, nil
	})
	if len(partials) == 0 {
		return nil, fmt.Errorf("all sub-question branches failed: %w", err)
	}

	var b strings.Builder
	for i, p := range partials {
		fmt.Fprintf(&b, "Sub-answer %d: %s\n", i+1, p.Text)
	}

	final, err := s.generator.Generate(ctx, &llm.GenerateRequest{
		Model: in.Model,
		Prompt: fmt.Sprintf(
			"Compose one coherent answer to the query from these sub-answers.\n\n%s\n%s",
			b.String(), in.Prompt,
		),
	})
	if err != nil {
		return nil, err
	}

	return []Candidate{{Text: final.Text, Confidence: final.Confidence}}, nil
}

// parseSubQuestions extracts non-empty lines, capped at maxSubQuestions.
func parseSubQuestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == maxSubQuestions {
			break
		}
	}

	return out
}
