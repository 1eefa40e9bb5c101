// Package retrieval provides the semantic retrieval engine: embed a query,
// fetch the top-k nearest chunks, and keep the answer path alive when the
// retrieval side is down.
//
// Degradation policy: an embedding provider failure surfaces as
// [ErrEmbeddingUnavailable] so the caller can fall back to zero-context; a
// vector store failure is logged and returns an empty result set: grounding
// is lost, the request is not.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/embeddings"
	"github.com/crosswirelabs/loom/pkg/vector"
)

// ErrEmbeddingUnavailable is returned when the embedding provider fails.
// Callers degrade to zero-context retrieval rather than aborting.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

// Engine embeds queries and retrieves similar chunks from the vector store.
type Engine struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	logger   *zap.Logger
}

// NewEngine creates a retrieval engine over the given embedder and vector
// driver.
func NewEngine(embedder embeddings.Embedder, driver vector.Driver, logger *zap.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		driver:   driver,
		logger:   logger,
	}
}

// EmbedQuery converts query text into a vector via the embedding provider.
func (e *Engine) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embedding, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	return embedding, nil
}

// TopK returns up to k chunks for the tenant ordered by ascending distance,
// with ties broken by ascending chunk ID so a fixed query against a fixed
// store yields an identical ordering on every call.
//
// A vector store failure returns an empty slice, never an error: retrieval
// going down degrades grounding, it must not take the request with it.
func (e *Engine) TopK(ctx context.Context, tenant string, embedding []float32, k int) []vector.QueryResult {
	if k <= 0 {
		return nil
	}

	results, err := e.driver.Query(ctx, tenant, embedding, k)
	if err != nil {
		e.logger.Warn("vector store query failed, degrading to empty context",
			zap.String("tenant", tenant),
			zap.Error(err),
		)
		return nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}

	return results
}

// Retrieve embeds the query and returns the top-k chunks for the tenant.
// Returns ErrEmbeddingUnavailable when the embedding provider fails; the
// caller decides whether to proceed ungrounded.
func (e *Engine) Retrieve(ctx context.Context, tenant, query string, k int) ([]vector.QueryResult, error) {
	embedding, err := e.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	return e.TopK(ctx, tenant, embedding, k), nil
}
