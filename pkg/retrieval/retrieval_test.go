package retrieval_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/retrieval"
	testutils "github.com/crosswirelabs/loom/pkg/utils/test"
	"github.com/crosswirelabs/loom/pkg/vector"
)

var _ = Describe("Engine", func() {
	var embedder *testutils.MockEmbedder
	var driver *testutils.MockVectorDriver
	var engine *retrieval.Engine
	var ctx context.Context

	BeforeEach(func() {
		embedder = testutils.NewMockEmbedder()
		driver = testutils.NewMockVectorDriver()
		engine = retrieval.NewEngine(embedder, driver, zap.NewNop())
		ctx = context.Background()
	})

	Describe("EmbedQuery", func() {
		It("returns the embedding", func() {
			embedder.Embeddings["hello"] = []float32{1, 2, 3}

			embedding, err := engine.EmbedQuery(ctx, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(embedding).To(Equal([]float32{1, 2, 3}))
		})

		It("wraps provider failures in ErrEmbeddingUnavailable", func() {
			embedder.FailOn = "broken"

			_, err := engine.EmbedQuery(ctx, "broken")
			Expect(err).To(MatchError(retrieval.ErrEmbeddingUnavailable))
		})
	})

	Describe("TopK", func() {
		It("orders by ascending distance", func() {
			driver.Results = []vector.QueryResult{
				{Chunk: vector.Chunk{ID: "far"}, Distance: 0.9},
				{Chunk: vector.Chunk{ID: "near"}, Distance: 0.1},
				{Chunk: vector.Chunk{ID: "mid"}, Distance: 0.5},
			}

			results := engine.TopK(ctx, "default", []float32{0.1}, 3)
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("near"))
			Expect(results[1].ID).To(Equal("mid"))
			Expect(results[2].ID).To(Equal("far"))
		})

		It("breaks distance ties by ascending chunk ID", func() {
			driver.Results = []vector.QueryResult{
				{Chunk: vector.Chunk{ID: "b"}, Distance: 0.5},
				{Chunk: vector.Chunk{ID: "a"}, Distance: 0.5},
			}

			results := engine.TopK(ctx, "default", []float32{0.1}, 2)
			Expect(results[0].ID).To(Equal("a"))
			Expect(results[1].ID).To(Equal("b"))
		})

		It("is deterministic across repeated calls", func() {
			driver.Results = []vector.QueryResult{
				{Chunk: vector.Chunk{ID: "c"}, Distance: 0.5},
				{Chunk: vector.Chunk{ID: "a"}, Distance: 0.5},
				{Chunk: vector.Chunk{ID: "b"}, Distance: 0.5},
			}

			first := engine.TopK(ctx, "default", []float32{0.1}, 3)
			second := engine.TopK(ctx, "default", []float32{0.1}, 3)
			Expect(second).To(Equal(first))
		})

		It("returns empty on a vector store failure", func() {
			driver.QueryErr = errors.New("store down")

			results := engine.TopK(ctx, "default", []float32{0.1}, 3)
			Expect(results).To(BeEmpty())
		})

		It("returns nothing for a non-positive k", func() {
			driver.Results = []vector.QueryResult{
				{Chunk: vector.Chunk{ID: "a"}, Distance: 0.1},
			}
			Expect(engine.TopK(ctx, "default", []float32{0.1}, 0)).To(BeEmpty())
		})
	})

	Describe("Retrieve", func() {
		It("embeds then queries", func() {
			driver.Results = []vector.QueryResult{
				{Chunk: vector.Chunk{ID: "a"}, Distance: 0.2},
			}

			results, err := engine.Retrieve(ctx, "default", "query", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})

		It("surfaces embedding failures", func() {
			embedder.FailOn = "query"

			_, err := engine.Retrieve(ctx, "default", "query", 5)
			Expect(err).To(MatchError(retrieval.ErrEmbeddingUnavailable))
		})
	})
})
