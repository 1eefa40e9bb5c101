package orchestrator

import (
	"context"
	"fmt"

	"github.com/crosswirelabs/loom/pkg/llm"
)

// DefaultReflectionTurns is used when the caller supplies no turn count.
const DefaultReflectionTurns = 2

// reactStrategy runs thought/critique rounds: each turn the generator revises
// its previous answer against the evidence before committing. The final
// turn's text is the candidate.
type reactStrategy struct {
	generator llm.Generator
}

func (s *reactStrategy) Kind() Kind {
	return StrategyReAct
}

func (s *reactStrategy) Execute(ctx context.Context, in StrategyInput) ([]Candidate, error) {
	turns := in.Params.ReflectionTurns
	if turns <= 0 {
		turns = DefaultReflectionTurns
	}

	resp, err := s.generator.Generate(ctx, &llm.GenerateRequest{
		Model:  in.Model,
		Prompt: "Reason about the query, state what you would check, then answer.\n\n" + in.Prompt,
	})
	if err != nil {
		return nil, err
	}

	answer := resp.Text
	confidence := resp.Confidence

	for turn := 1; turn < turns; turn++ {
		resp, err = s.generator.Generate(ctx, &llm.GenerateRequest{
			Model: in.Model,
			Prompt: fmt.Sprintf(
				"Previous answer:\n%s\n\nRe-examine it against the evidence below. Correct any unsupported claims and give the revised answer.\n\n%s",
				answer, in.Prompt,
			),
		})
		if err != nil {
			// Keep the last good answer rather than failing the turn loop.
			break
		}

		answer = resp.Text
		confidence = resp.Confidence
	}

	return []Candidate{{Text: answer, Confidence: confidence}}, nil
}
