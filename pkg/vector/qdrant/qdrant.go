// Package qdrant provides a Qdrant-backed vector driver using the official
// gRPC client.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qd "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for loom chunks.
	DefaultCollectionName = "loom"

	// DefaultPort is Qdrant's default gRPC port.
	DefaultPort = 6334
)

// QdrantDriver implements vector.Driver against a Qdrant instance.
type QdrantDriver struct {
	client     *qd.Client
	collection string
	logger     *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant host (e.g., "localhost").
	Host string

	// Port is the Qdrant gRPC port. Defaults to DefaultPort if zero.
	Port int

	// CollectionName is the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewQdrantDriver creates a new Qdrant vector driver and ensures the
// collection exists.
func NewQdrantDriver(c Config, logger *zap.Logger) (*QdrantDriver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qd.NewClient(&qd.Config{
		Host: c.Host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", vector.ErrConnection, err)
	}

	d := &QdrantDriver{
		client:     client,
		collection: collection,
		logger:     logger,
	}

	if err := d.ensureCollection(context.Background(), c.Dimensions); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensuring collection %q: %w", collection, err)
	}

	logger.Info("connected to Qdrant",
		zap.String("host", c.Host),
		zap.Int("port", port),
		zap.String("collection", collection),
	)

	return d, nil
}

// ensureCollection creates the collection if it does not exist.
func (d *QdrantDriver) ensureCollection(ctx context.Context, dimensions uint) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("checking collection existence: %w", err)
	}
	if exists {
		return nil
	}

	return d.client.CreateCollection(ctx, &qd.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
			Size:     uint64(dimensions),
			Distance: qd.Distance_Cosine,
		}),
	})
}

// pointID derives a deterministic UUID point ID from a chunk ID.
// Qdrant point IDs must be UUIDs or integers; chunk IDs are free-form.
func pointID(chunkID string) *qd.PointId {
	return qd.NewID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String())
}

// Add stores documents with their embeddings. Upsert semantics: a document
// with an existing chunk ID replaces the stored point.
func (d *QdrantDriver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qd.PointStruct, 0, len(docs))
	for _, doc := range docs {
		points = append(points, &qd.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: qd.NewVectors(doc.Embedding...),
			Payload: qd.NewValueMap(map[string]any{
				"chunk_id":    doc.ID,
				"document_id": doc.DocumentID,
				"title":       doc.Title,
				"uri":         doc.URI,
				"content":     doc.Text,
				"tenant":      doc.Tenant,
			}),
		})
	}

	if _, err := d.client.Upsert(ctx, &qd.UpsertPoints{
		CollectionName: d.collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added documents to qdrant",
		zap.Int("count", len(docs)),
	)

	return nil
}

// Query finds the topK nearest chunks to the given embedding within a tenant.
// Qdrant reports cosine similarity (higher = closer); convert to a distance
// so lower means more relevant, matching the driver contract.
func (d *QdrantDriver) Query(ctx context.Context, tenant string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	limit := uint64(topK)
	points, err := d.client.Query(ctx, &qd.QueryPoints{
		CollectionName: d.collection,
		Query:          qd.NewQuery(embedding...),
		Limit:          &limit,
		Filter: &qd.Filter{
			Must: []*qd.Condition{
				qd.NewMatch("tenant", tenant),
			},
		},
		WithPayload: qd.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()

		results = append(results, vector.QueryResult{
			Chunk: vector.Chunk{
				ID:         payload["chunk_id"].GetStringValue(),
				DocumentID: payload["document_id"].GetStringValue(),
				Title:      payload["title"].GetStringValue(),
				URI:        payload["uri"].GetStringValue(),
				Text:       payload["content"].GetStringValue(),
				Tenant:     payload["tenant"].GetStringValue(),
			},
			Distance: 1 - point.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant",
		zap.String("tenant", tenant),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Delete removes documents by their chunk IDs.
func (d *QdrantDriver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qd.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, pointID(id))
	}

	if _, err := d.client.Delete(ctx, &qd.DeletePoints{
		CollectionName: d.collection,
		Points:         qd.NewPointsSelector(pointIDs...),
	}); err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	return nil
}

// Close closes the underlying gRPC connection.
func (d *QdrantDriver) Close() error {
	return d.client.Close()
}

// Ensure QdrantDriver implements vector.Driver
var _ vector.Driver = (*QdrantDriver)(nil)
