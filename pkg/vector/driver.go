// Package vector provides interfaces and implementations for vector storage
// over retrievable knowledge chunks.
package vector

import "context"

// Chunk is a retrievable span of source material with display metadata.
type Chunk struct {
	// ID is a unique identifier for the chunk, stable across queries.
	ID string

	// DocumentID identifies the source document the chunk was cut from.
	DocumentID string

	// Title is the display title of the source document.
	Title string

	// URI points at the source document for citation rendering.
	URI string

	// Text is the chunk's text span.
	Text string

	// Tenant scopes the chunk to a tenant; queries never cross tenants.
	Tenant string
}

// Document pairs a chunk with its embedding for storage.
type Document struct {
	Chunk

	// Embedding is the vector representation of the chunk text.
	Embedding []float32
}

// QueryResult is a retrieved chunk with its similarity distance.
type QueryResult struct {
	Chunk

	// Distance is the similarity distance to the query vector.
	// Lower means more relevant.
	Distance float32
}

// Driver handles storage and retrieval of chunk embeddings.
type Driver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists, implementers should
	// update the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK nearest chunks to the given embedding within a
	// tenant, ordered by ascending distance. Implementers are not required
	// to break distance ties deterministically; callers that need stable
	// ordering sort again on (distance, chunk ID).
	Query(ctx context.Context, tenant string, embedding []float32, topK int) ([]QueryResult, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}
