package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/crosswirelabs/loom/pkg/llm"
)

// CannedResponse scripts one generator reply. The first entry whose Match
// substring appears in the request prompt wins.
type CannedResponse struct {
	// Match is a substring of the prompt that selects this response.
	Match string

	// Text is the response text.
	Text string

	// Confidence is the model's self-reported confidence.
	Confidence float64

	// Err, when set, is returned instead of a response.
	Err error
}

// MockGenerator is a test generator with scripted, prompt-matched responses.
// It records every request it receives.
type MockGenerator struct {
	mu sync.Mutex

	// Canned responses, matched in order against the prompt.
	Canned []CannedResponse

	// DefaultText is returned when no canned response matches.
	DefaultText string

	// DefaultConfidence accompanies DefaultText.
	DefaultConfidence float64

	// FailOn causes Generate to fail when the prompt contains it.
	FailOn string

	// Requests accumulates every request seen.
	Requests []*llm.GenerateRequest
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		DefaultText:       "ok",
		DefaultConfidence: 0.5,
	}
}

func (m *MockGenerator) Generate(_ context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.FailOn != "" && strings.Contains(req.Prompt, m.FailOn) {
		return nil, fmt.Errorf("%w: mock failure for: %s", llm.ErrGeneration, m.FailOn)
	}

	for _, canned := range m.Canned {
		if !strings.Contains(req.Prompt, canned.Match) {
			continue
		}
		if canned.Err != nil {
			return nil, canned.Err
		}
		return &llm.GenerateResponse{
			Model:      req.Model,
			Text:       canned.Text,
			Confidence: canned.Confidence,
			Usage: &llm.Usage{
				PromptTokens:     10,
				CompletionTokens: 10,
				TotalTokens:      20,
			},
		}, nil
	}

	return &llm.GenerateResponse{
		Model:      req.Model,
		Text:       m.DefaultText,
		Confidence: m.DefaultConfidence,
		Usage: &llm.Usage{
			PromptTokens:     10,
			CompletionTokens: 10,
			TotalTokens:      20,
		},
	}, nil
}

// CallCount returns how many requests the generator has seen.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func (m *MockGenerator) Close() error {
	return nil
}
