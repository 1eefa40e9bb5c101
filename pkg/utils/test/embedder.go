package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/crosswirelabs/loom/pkg/embeddings"
)

// DefaultEmbedding is returned for any text without a configured vector.
var DefaultEmbedding = []float32{0.1, 0.2, 0.3}

// MockEmbedder returns configured vectors by exact text and records every
// input it sees. FailOn matches by substring, mirroring MockGenerator.
type MockEmbedder struct {
	// Embeddings maps input text to the vector to return.
	Embeddings map[string][]float32

	// FailOn makes Embed fail for any text containing this substring.
	FailOn string

	mu    sync.Mutex
	texts []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.FailOn != "" && strings.Contains(text, m.FailOn) {
		return nil, fmt.Errorf("%w: mock failure for %q", embeddings.ErrEmbedding, text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}
	return DefaultEmbedding, nil
}

// Texts returns a copy of every input passed to Embed, in order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

func (m *MockEmbedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*MockEmbedder)(nil)
