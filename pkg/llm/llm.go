// Package llm defines the provider-agnostic text generation capability used by
// the orchestrator and the chat pipeline. Providers are black boxes behind the
// [Generator] interface: prompt in, text out. Everything provider-specific
// (wire formats, auth, streaming) stays inside the driver packages.
package llm

import (
	"context"
	"errors"
)

// ErrGeneration is returned when the generation backend fails.
var ErrGeneration = errors.New("generation failed")

// GenerateRequest is a provider-agnostic generation request.
type GenerateRequest struct {
	// Model is the model identifier (e.g., "llama3", "qwen2.5").
	// Drivers fall back to their configured default when empty.
	Model string `json:"model"`

	// Prompt is the fully assembled prompt text.
	Prompt string `json:"prompt"`

	// Temperature controls sampling randomness. Nil means provider default.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens bounds the completion length. Nil means provider default.
	MaxTokens *int `json:"max_tokens,omitempty"`
}

// GenerateResponse is a provider-agnostic generation result.
type GenerateResponse struct {
	// Model that produced the response.
	Model string `json:"model"`

	// Text is the generated completion.
	Text string `json:"text"`

	// Confidence is a provider-reported confidence in [0, 1] when the
	// backend exposes one. Zero when the provider reports nothing; branch
	// scoring then falls back to submission order.
	Confidence float64 `json:"confidence,omitempty"`

	// Usage carries token accounting when the provider reports it.
	Usage *Usage `json:"usage,omitempty"`
}

// Usage contains token counts reported by the generation backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Generator produces a completion for a prompt. Implementations must honor
// context cancellation and deadlines on the underlying call.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Close releases any resources held by the generator.
	Close() error
}
