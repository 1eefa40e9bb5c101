package chat_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/agent"
	"github.com/crosswirelabs/loom/pkg/chat"
	memlocal "github.com/crosswirelabs/loom/pkg/memory/local"
	"github.com/crosswirelabs/loom/pkg/msglog"
	msglocal "github.com/crosswirelabs/loom/pkg/msglog/local"
	"github.com/crosswirelabs/loom/pkg/orchestrator"
	"github.com/crosswirelabs/loom/pkg/retrieval"
	"github.com/crosswirelabs/loom/pkg/telemetry"
	testutils "github.com/crosswirelabs/loom/pkg/utils/test"
	"github.com/crosswirelabs/loom/pkg/vector"
)

// brokenLog fails every append so surfaced-error behavior is testable;
// reads delegate to the wrapped log.
type brokenLog struct {
	msglog.Log
}

func (b *brokenLog) Append(_ context.Context, _ string, _ msglog.Role, _ string) (*msglog.Message, error) {
	return nil, msglog.ErrUnavailable
}

var _ = Describe("Pipeline", func() {
	var log msglog.Log
	var mem *memlocal.Store
	var embedder *testutils.MockEmbedder
	var driver *testutils.MockVectorDriver
	var generator *testutils.MockGenerator
	var publisher *testutils.CapturingPublisher
	var ctx context.Context

	newPipeline := func(log msglog.Log) *chat.Pipeline {
		registry := agent.NewRegistry()
		for _, t := range []agent.Type{agent.TypePlanner, agent.TypeResearcher, agent.TypeReasoner, agent.TypeSynthesizer} {
			registry.Register(agent.Agent{ID: string(t) + "-1", Type: t})
		}

		orch := orchestrator.New(orchestrator.Config{}, registry, generator, publisher, zap.NewNop())
		engine := retrieval.NewEngine(embedder, driver, zap.NewNop())
		recorder := telemetry.NewRecorder(&telemetry.Config{
			Publisher: publisher,
			Logger:    zap.NewNop(),
		})

		return chat.NewPipeline(log, mem, engine, orch, generator, recorder, chat.Options{
			Tenant:       "test-tenant",
			DefaultModel: "test-model",
		}, zap.NewNop())
	}

	BeforeEach(func() {
		log = msglocal.NewLog("test-tenant")
		mem = memlocal.NewStore()
		embedder = testutils.NewMockEmbedder()
		driver = testutils.NewMockVectorDriver()
		generator = testutils.NewMockGenerator()
		publisher = testutils.NewCapturingPublisher()
		ctx = context.Background()
	})

	Describe("a direct request", func() {
		It("answers and assigns a conversation ID", func() {
			generator.Canned = []testutils.CannedResponse{
				{Match: "Rewrite the summary", Text: "a short summary"},
				{Match: "what is loom?", Text: "loom is a reasoning orchestrator"},
			}

			resp, err := newPipeline(log).Handle(ctx, &chat.Request{Content: "what is loom?"})
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.ConversationID).NotTo(BeEmpty())
			Expect(resp.Content).To(Equal("loom is a reasoning orchestrator"))
			Expect(resp.Steps).To(BeEmpty())
			Expect(resp.Degraded).To(BeFalse())
		})

		It("appends the user and assistant turns in order", func() {
			resp, err := newPipeline(log).Handle(ctx, &chat.Request{Content: "hello"})
			Expect(err).NotTo(HaveOccurred())

			messages, err := log.RecentN(ctx, resp.ConversationID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(HaveLen(2))
			Expect(messages[0].Role).To(Equal(msglog.RoleUser))
			Expect(messages[0].Content).To(Equal("hello"))
			Expect(messages[1].Role).To(Equal(msglog.RoleAssistant))
			Expect(messages[1].Content).To(Equal(resp.Content))
		})

		It("refreshes the rolling summary after the exchange", func() {
			generator.Canned = []testutils.CannedResponse{
				{Match: "Rewrite the summary", Text: "user asked about loom"},
			}

			resp, err := newPipeline(log).Handle(ctx, &chat.Request{Content: "what is loom?"})
			Expect(err).NotTo(HaveOccurred())

			summary, found, err := mem.GetSummary(ctx, resp.ConversationID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(summary).To(Equal("user asked about loom"))
		})

		It("feeds the prior transcript and summary into the next prompt", func() {
			generator.Canned = []testutils.CannedResponse{
				{Match: "Rewrite the summary", Text: "they discussed looms"},
			}

			pipeline := newPipeline(log)
			first, err := pipeline.Handle(ctx, &chat.Request{Content: "what is a loom?"})
			Expect(err).NotTo(HaveOccurred())

			_, err = pipeline.Handle(ctx, &chat.Request{
				ConversationID: first.ConversationID,
				Content:        "who invented it?",
			})
			Expect(err).NotTo(HaveOccurred())

			var secondPrompt string
			for _, req := range generator.Requests {
				if strings.Contains(req.Prompt, "who invented it?") && !strings.Contains(req.Prompt, "Rewrite the summary") {
					secondPrompt = req.Prompt
				}
			}
			Expect(secondPrompt).To(ContainSubstring("they discussed looms"))
			Expect(secondPrompt).To(ContainSubstring("user: what is a loom?"))
		})

		It("records an interaction event off the hot path", func() {
			_, err := newPipeline(log).Handle(ctx, &chat.Request{Content: "hello"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(publisher.InteractionCount).Should(Equal(1))
			Expect(publisher.Interactions[0].Tenant).To(Equal("test-tenant"))
			Expect(publisher.Interactions[0].Route).To(Equal("chat"))
		})
	})

	Describe("validation", func() {
		It("rejects empty content before any side effect", func() {
			pipeline := newPipeline(log)

			_, err := pipeline.Handle(ctx, &chat.Request{ConversationID: "conv-1", Content: ""})
			Expect(err).To(MatchError(chat.ErrEmptyContent))

			_, found, convErr := log.Conversation(ctx, "conv-1")
			Expect(convErr).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(generator.CallCount()).To(BeZero())
		})
	})

	Describe("retrieval", func() {
		BeforeEach(func() {
			driver.Results = []vector.QueryResult{
				{Chunk: vector.Chunk{ID: "c1", DocumentID: "doc-1", Title: "Weaving 101", URI: "https://example.com/weaving"}, Distance: 0.1},
				{Chunk: vector.Chunk{ID: "c2", DocumentID: "doc-2"}, Distance: 0.3},
			}
		})

		It("cites retrieved chunks as rank-ordered sources", func() {
			resp, err := newPipeline(log).Handle(ctx, &chat.Request{Content: "how do looms work?"})
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.Sources).To(HaveLen(2))
			Expect(resp.Sources[0].Rank).To(Equal(1))
			Expect(resp.Sources[0].Title).To(Equal("Weaving 101"))
			Expect(resp.Sources[0].URI).To(Equal("https://example.com/weaving"))
			Expect(resp.Sources[1].Title).To(Equal("doc-2"))
		})

		It("proceeds ungrounded when the vector store is down", func() {
			driver.QueryErr = context.DeadlineExceeded

			resp, err := newPipeline(log).Handle(ctx, &chat.Request{Content: "how do looms work?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Sources).To(BeEmpty())
			Expect(resp.Content).NotTo(BeEmpty())
		})

		It("proceeds ungrounded when embedding fails", func() {
			embedder.FailOn = "looms"

			resp, err := newPipeline(log).Handle(ctx, &chat.Request{Content: "how do looms work?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Sources).To(BeEmpty())
		})
	})

	Describe("orchestrated reasoning", func() {
		It("routes through the pipeline and returns step descriptions", func() {
			generator.Canned = []testutils.CannedResponse{
				{Match: "Write the final answer", Text: "the orchestrated answer"},
			}

			resp, err := newPipeline(log).Handle(ctx, &chat.Request{
				Content: "explain looms",
				Reasoning: &chat.ReasoningConfig{
					Strategies: []orchestrator.Kind{orchestrator.StrategyStandard},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.Content).To(Equal("the orchestrated answer"))
			Expect(resp.Steps).To(HaveLen(4))
			Expect(resp.Steps[0]).To(HavePrefix("planner:"))
			Expect(resp.Steps[3]).To(HavePrefix("synthesizer:"))
		})

		It("surfaces a planner failure without appending an assistant turn", func() {
			generator.FailOn = "Outline a short plan"

			pipeline := newPipeline(log)
			_, err := pipeline.Handle(ctx, &chat.Request{
				ConversationID: "conv-planner",
				Content:        "explain looms",
				Reasoning: &chat.ReasoningConfig{
					Strategies: []orchestrator.Kind{orchestrator.StrategyStandard},
				},
			})
			Expect(err).To(MatchError(orchestrator.ErrPlannerFailed))

			messages, msgErr := log.RecentN(ctx, "conv-planner", 10)
			Expect(msgErr).NotTo(HaveOccurred())
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Role).To(Equal(msglog.RoleUser))
		})

		It("fails a cancelled request before persisting an assistant turn", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			pipeline := newPipeline(log)
			_, err := pipeline.Handle(cancelled, &chat.Request{
				ConversationID: "conv-cancelled",
				Content:        "explain looms",
				Reasoning: &chat.ReasoningConfig{
					Strategies: []orchestrator.Kind{orchestrator.StrategyStandard},
				},
			})
			Expect(err).To(MatchError(context.Canceled))

			messages, msgErr := log.RecentN(ctx, "conv-cancelled", 10)
			Expect(msgErr).NotTo(HaveOccurred())
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Role).To(Equal(msglog.RoleUser))

			_, found, sumErr := mem.GetSummary(ctx, "conv-cancelled")
			Expect(sumErr).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})

		It("marks the response degraded when a later step fails", func() {
			generator.FailOn = "Write the final answer"
			generator.Canned = []testutils.CannedResponse{
				{Match: "Evidence:", Text: "partial reasoning", Confidence: 0.5},
			}

			resp, err := newPipeline(log).Handle(ctx, &chat.Request{
				Content: "explain looms",
				Reasoning: &chat.ReasoningConfig{
					Strategies: []orchestrator.Kind{orchestrator.StrategyStandard},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Degraded).To(BeTrue())
			Expect(resp.Content).To(Equal("partial reasoning"))
		})
	})

	Describe("append failures", func() {
		It("surfaces a failed user append", func() {
			_, err := newPipeline(&brokenLog{Log: log}).Handle(ctx, &chat.Request{Content: "hello"})
			Expect(err).To(MatchError(msglog.ErrUnavailable))
			Expect(generator.CallCount()).To(BeZero())
		})
	})
})
