// Package embeddings turns text into dense vectors for the retrieval layer.
//
// Embedder is a thin capability boundary: callers hand it text and get a
// vector or an error wrapping ErrEmbedding. Dimension agreement with the
// vector store is the caller's concern; drivers report whatever width their
// model produces.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding wraps every provider-side embedding failure: unreachable
// backend, provider-reported error, empty result.
var ErrEmbedding = errors.New("embedding failed")

// Embedder converts text into a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
