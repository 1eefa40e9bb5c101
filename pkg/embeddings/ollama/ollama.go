// Package ollama embeds text through a local Ollama server's /api/embed
// endpoint. Failures surface Ollama's own error message when the server
// provides one, always wrapped in embeddings.ErrEmbedding.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crosswirelabs/loom/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is used when the config names no model.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultBaseURL points at a locally running Ollama instance.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultTimeout bounds a single embed call. Cold model loads can take
	// most of this on first use.
	DefaultTimeout = 120 * time.Second
)

// EmbedderConfig configures the Ollama embedder. Zero values fall back to
// the package defaults.
type EmbedderConfig struct {
	// BaseURL is the Ollama server root, e.g. "http://localhost:11434".
	BaseURL string

	// Model is the embedding model name, e.g. "nomic-embed-text".
	Model string

	// Timeout bounds each embed request.
	Timeout time.Duration
}

// Embedder calls Ollama's embedding API.
type Embedder struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewEmbedder builds an embedder from cfg, applying defaults for any zero
// field. It does not contact the server; the first Embed call does.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Embedder{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse carries the batched response shape of /api/embed. A single
// input still arrives as a one-element batch. The error field is set on
// non-200 responses.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: contacting ollama: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", embeddings.ErrEmbedding, err)
	}

	var parsed embedResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK {
		// Ollama reports failures as {"error": "..."}; prefer that message
		// over dumping the raw body.
		if decodeErr == nil && parsed.Error != "" {
			return nil, fmt.Errorf("%w: ollama: %s", embeddings.ErrEmbedding, parsed.Error)
		}
		return nil, fmt.Errorf("%w: ollama returned status %d", embeddings.ErrEmbedding, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, decodeErr)
	}

	if len(parsed.Embeddings) == 0 || len(parsed.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: model %s returned no embedding", embeddings.ErrEmbedding, e.model)
	}

	return parsed.Embeddings[0], nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
