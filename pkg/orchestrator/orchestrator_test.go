package orchestrator_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/agent"
	"github.com/crosswirelabs/loom/pkg/eventstream"
	"github.com/crosswirelabs/loom/pkg/orchestrator"
	testutils "github.com/crosswirelabs/loom/pkg/utils/test"
)

// fullRegistry registers one available agent per pipeline role.
func fullRegistry() *agent.Registry {
	registry := agent.NewRegistry()
	for _, t := range []agent.Type{agent.TypePlanner, agent.TypeResearcher, agent.TypeReasoner, agent.TypeSynthesizer} {
		registry.Register(agent.Agent{
			ID:      string(t) + "-1",
			Type:    t,
			Name:    string(t),
			Version: "test",
		})
	}
	return registry
}

var _ = Describe("Orchestrator", func() {
	var registry *agent.Registry
	var generator *testutils.MockGenerator
	var publisher *testutils.CapturingPublisher
	var ctx context.Context

	newOrchestrator := func() *orchestrator.Orchestrator {
		return orchestrator.New(orchestrator.Config{}, registry, generator, publisher, zap.NewNop())
	}

	BeforeEach(func() {
		registry = fullRegistry()
		generator = testutils.NewMockGenerator()
		publisher = testutils.NewCapturingPublisher()
		ctx = context.Background()
	})

	Describe("a successful standard run", func() {
		BeforeEach(func() {
			generator.Canned = []testutils.CannedResponse{
				{Match: "Outline a short plan", Text: "first find the release date"},
				{Match: "Extract the evidence", Text: "the changelog says v2 shipped in March [1]"},
				{Match: "Write the final answer", Text: "v2 shipped in March [1]"},
				{Match: "Evidence:", Text: "the answer is March", Confidence: 0.8},
			}
		})

		It("runs every step to completion in pipeline order", func() {
			result, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "when did v2 ship?",
				Prompt: "Query: when did v2 ship?",
				Model:  "test-model",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Steps).To(HaveLen(4))
			Expect(result.Steps[0].Agent).To(Equal(agent.TypePlanner))
			Expect(result.Steps[1].Agent).To(Equal(agent.TypeResearcher))
			Expect(result.Steps[2].Agent).To(Equal(agent.TypeReasoner))
			Expect(result.Steps[3].Agent).To(Equal(agent.TypeSynthesizer))
			for _, step := range result.Steps {
				Expect(step.Status).To(Equal(orchestrator.StepCompleted))
			}
			Expect(result.Degraded).To(BeFalse())
		})

		It("returns the synthesizer's answer", func() {
			result, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "when did v2 ship?",
				Prompt: "Query: when did v2 ship?",
				Model:  "test-model",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Answer).To(Equal("v2 shipped in March [1]"))
		})

		It("describes each step in order", func() {
			result, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:   "when did v2 ship?",
				Prompt:  "Query: when did v2 ship?",
				Model:   "test-model",
				Sources: []orchestrator.Source{{Rank: 1, Title: "changelog"}},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Descriptions).To(HaveLen(4))
			Expect(result.Descriptions[0]).To(Equal("planner: first find the release date"))
			Expect(result.Descriptions[1]).To(Equal("researcher: gathered evidence from 1 sources"))
			Expect(result.Descriptions[2]).To(HavePrefix("reasoner: standard"))
			Expect(result.Descriptions[3]).To(Equal("synthesizer: final answer citing 1 sources"))
		})

		It("releases every agent back to available", func() {
			_, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "q",
				Prompt: "Query: q",
				Model:  "test-model",
			})
			Expect(err).NotTo(HaveOccurred())

			for _, a := range registry.List() {
				Expect(a.Status).To(Equal(agent.StatusAvailable))
			}
		})

		It("publishes one success event per step", func() {
			_, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "q",
				Prompt: "Query: q",
				Model:  "test-model",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(publisher.Orchestrations).To(HaveLen(4))
			for _, event := range publisher.Orchestrations {
				Expect(event.Severity).To(Equal(eventstream.SeveritySuccess))
				Expect(event.EventID).NotTo(BeEmpty())
			}
			Expect(publisher.Orchestrations[0].AgentType).To(Equal(agent.TypePlanner))
			Expect(publisher.Orchestrations[3].AgentType).To(Equal(agent.TypeSynthesizer))
		})

		It("still succeeds when event publishing fails", func() {
			publisher.PublishErr = context.DeadlineExceeded

			result, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "q",
				Prompt: "Query: q",
				Model:  "test-model",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Degraded).To(BeFalse())
		})
	})

	Describe("planner failure", func() {
		It("fails the whole run with ErrPlannerFailed", func() {
			generator.FailOn = "Outline a short plan"

			result, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "q",
				Prompt: "Query: q",
				Model:  "test-model",
			})
			Expect(err).To(MatchError(orchestrator.ErrPlannerFailed))
			Expect(result).To(BeNil())
		})

		It("publishes an error event for the planner step", func() {
			generator.FailOn = "Outline a short plan"

			_, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "q",
				Prompt: "Query: q",
				Model:  "test-model",
			})
			Expect(err).To(HaveOccurred())

			Expect(publisher.Orchestrations).To(HaveLen(1))
			Expect(publisher.Orchestrations[0].Severity).To(Equal(eventstream.SeverityError))
			Expect(publisher.Orchestrations[0].AgentType).To(Equal(agent.TypePlanner))
		})
	})

	Describe("later-step failure", func() {
		It("degrades to the reasoner's answer when the synthesizer fails", func() {
			generator.FailOn = "Write the final answer"
			generator.Canned = []testutils.CannedResponse{
				{Match: "Evidence:", Text: "partial reasoning answer", Confidence: 0.6},
			}

			result, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "q",
				Prompt: "Query: q",
				Model:  "test-model",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Degraded).To(BeTrue())
			Expect(result.Answer).To(Equal("partial reasoning answer"))
			Expect(result.Steps[2].Status).To(Equal(orchestrator.StepCompleted))
			Expect(result.Steps[3].Status).To(Equal(orchestrator.StepFailed))
			Expect(result.Steps[3].Note).NotTo(BeEmpty())
		})

		It("degrades to the research notes when the reasoner fails", func() {
			generator.Canned = []testutils.CannedResponse{
				{Match: "Extract the evidence", Text: "the evidence notes"},
				{Match: "Evidence:", Err: context.DeadlineExceeded},
			}

			result, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "q",
				Prompt: "Query: q",
				Model:  "test-model",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Degraded).To(BeTrue())
			Expect(result.Answer).To(Equal("the evidence notes"))
			Expect(result.Steps[2].Status).To(Equal(orchestrator.StepFailed))
			Expect(result.Steps[3].Status).To(Equal(orchestrator.StepPending))
		})

		It("releases the failing step's agent", func() {
			generator.FailOn = "Write the final answer"

			_, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "q",
				Prompt: "Query: q",
				Model:  "test-model",
			})
			Expect(err).NotTo(HaveOccurred())

			for _, a := range registry.List() {
				Expect(a.Status).To(Equal(agent.StatusAvailable))
			}
		})
	})

	Describe("agent availability", func() {
		It("fails the step when no agent of the role is registered", func() {
			registry = agent.NewRegistry()
			for _, t := range []agent.Type{agent.TypePlanner, agent.TypeResearcher, agent.TypeSynthesizer} {
				registry.Register(agent.Agent{ID: string(t) + "-1", Type: t})
			}

			result, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "q",
				Prompt: "Query: q",
				Model:  "test-model",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Degraded).To(BeTrue())
			Expect(result.Steps[2].Status).To(Equal(orchestrator.StepFailed))
			Expect(result.Steps[2].Note).To(Equal("no agent available"))
		})

		It("skips busy agents and fails when none are free", func() {
			Expect(registry.SetStatus("reasoner-1", agent.StatusBusy)).To(Succeed())

			result, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:  "q",
				Prompt: "Query: q",
				Model:  "test-model",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Degraded).To(BeTrue())
			Expect(result.Steps[2].Status).To(Equal(orchestrator.StepFailed))
		})
	})

	Describe("cancellation", func() {
		It("fails the run when cancelled before the first step completes", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			result, err := newOrchestrator().Run(cancelled, orchestrator.RunInput{
				Query:  "q",
				Prompt: "Query: q",
				Model:  "test-model",
			})
			Expect(err).To(MatchError(context.Canceled))
			Expect(result).To(BeNil())
			Expect(generator.CallCount()).To(BeZero())
		})
	})

	Describe("strategy resolution", func() {
		It("rejects an unknown strategy before dispatching", func() {
			_, err := newOrchestrator().Run(ctx, orchestrator.RunInput{
				Query:      "q",
				Prompt:     "Query: q",
				Model:      "test-model",
				Strategies: []orchestrator.Kind{orchestrator.Kind("bogus")},
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown reasoning strategy"))
			Expect(generator.CallCount()).To(BeZero())
		})
	})
})

var _ = Describe("Reasoning strategies", func() {
	var registry *agent.Registry
	var generator *testutils.MockGenerator
	var publisher *testutils.CapturingPublisher
	var ctx context.Context

	run := func(strategies []orchestrator.Kind, params orchestrator.Params) *orchestrator.RunResult {
		o := orchestrator.New(orchestrator.Config{PoolSize: 2}, registry, generator, publisher, zap.NewNop())
		result, err := o.Run(ctx, orchestrator.RunInput{
			Query:      "q",
			Prompt:     "Query: q",
			Model:      "test-model",
			Strategies: strategies,
			Params:     params,
		})
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	BeforeEach(func() {
		registry = fullRegistry()
		generator = testutils.NewMockGenerator()
		publisher = testutils.NewCapturingPublisher()
		ctx = context.Background()
	})

	Describe("self-consistency", func() {
		It("draws the requested sample count and reports the majority pick", func() {
			result := run(
				[]orchestrator.Kind{orchestrator.StrategySelfConsistency},
				orchestrator.Params{ConsistencySamples: 3},
			)

			Expect(result.Descriptions[2]).To(ContainSubstring("self-consistency selected majority answer from 3 samples"))
			// planner + researcher + 3 samples + synthesizer.
			Expect(generator.CallCount()).To(Equal(6))
		})

		It("samples at non-zero temperature", func() {
			run(
				[]orchestrator.Kind{orchestrator.StrategySelfConsistency},
				orchestrator.Params{ConsistencySamples: 2},
			)

			sampled := 0
			for _, req := range generator.Requests {
				if req.Temperature != nil {
					Expect(*req.Temperature).To(BeNumerically(">", 0))
					sampled++
				}
			}
			Expect(sampled).To(Equal(2))
		})
	})

	Describe("tree-of-thoughts", func() {
		It("keeps the highest-confidence branch", func() {
			generator.Canned = []testutils.CannedResponse{
				{Match: "path 1 of 2", Text: "alpha answer", Confidence: 0.4},
				{Match: "path 2 of 2", Text: "beta answer", Confidence: 0.9},
				{Match: "Reasoning:\nbeta answer", Text: "final beta answer"},
			}

			result := run(
				[]orchestrator.Kind{orchestrator.StrategyTreeOfThoughts},
				orchestrator.Params{ToTDepth: 2},
			)

			Expect(result.Descriptions[2]).To(ContainSubstring("tree-of-thoughts selected branch 2 of 2"))
			Expect(result.Answer).To(Equal("final beta answer"))
		})
	})

	Describe("ReAct", func() {
		It("revises the first answer across reflection turns", func() {
			generator.Canned = []testutils.CannedResponse{
				{Match: "state what you would check", Text: "draft answer", Confidence: 0.3},
				{Match: "Previous answer:\ndraft answer", Text: "revised answer", Confidence: 0.7},
				{Match: "Reasoning:\nrevised answer", Text: "final revised answer"},
			}

			result := run(
				[]orchestrator.Kind{orchestrator.StrategyReAct},
				orchestrator.Params{ReflectionTurns: 2},
			)

			Expect(result.Answer).To(Equal("final revised answer"))
		})
	})

	Describe("multiple strategies", func() {
		It("keeps the highest-confidence winner across strategies", func() {
			generator.Canned = []testutils.CannedResponse{
				{Match: "Reason through the problem step by step", Text: "careful answer", Confidence: 0.9},
				{Match: "Evidence:", Text: "quick answer", Confidence: 0.2},
				{Match: "Reasoning:\ncareful answer", Text: "final careful answer"},
			}

			result := run(
				[]orchestrator.Kind{orchestrator.StrategyStandard, orchestrator.StrategyChainOfThought},
				orchestrator.Params{},
			)

			Expect(result.Answer).To(Equal("final careful answer"))
			Expect(result.Descriptions[2]).To(ContainSubstring("standard produced an answer"))
			Expect(result.Descriptions[2]).To(ContainSubstring("chain-of-thought produced an answer"))
		})

		It("breaks confidence ties toward the earlier strategy", func() {
			generator.Canned = []testutils.CannedResponse{
				{Match: "Reason through the problem step by step", Text: "second answer", Confidence: 0.5},
				{Match: "Evidence:", Text: "first answer", Confidence: 0.5},
				{Match: "Reasoning:\nfirst answer", Text: "final first answer"},
			}

			result := run(
				[]orchestrator.Kind{orchestrator.StrategyStandard, orchestrator.StrategyChainOfThought},
				orchestrator.Params{},
			)

			Expect(result.Answer).To(Equal("final first answer"))
		})
	})

	Describe("decomposition", func() {
		It("answers each sub-question and composes the result", func() {
			generator.Canned = []testutils.CannedResponse{
				{Match: "independent sub-questions", Text: "what is loom?\nwhen did it ship?"},
				{Match: "Sub-question: what is loom?", Text: "loom is an orchestrator"},
				{Match: "Sub-question: when did it ship?", Text: "it shipped in March"},
				{Match: "Compose one coherent answer", Text: "loom, an orchestrator, shipped in March", Confidence: 0.8},
				{Match: "Reasoning:\nloom, an orchestrator, shipped in March", Text: "composed final answer"},
			}

			result := run(
				[]orchestrator.Kind{orchestrator.StrategyDecomposition},
				orchestrator.Params{},
			)

			Expect(result.Answer).To(Equal("composed final answer"))
		})
	})
})
