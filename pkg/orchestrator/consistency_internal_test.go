package orchestrator

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("majorityVote", func() {
	It("picks the answer occurring most often after normalization", func() {
		winner := majorityVote([]Candidate{
			{Text: "Paris  is the capital", Confidence: 0.2, Order: 0},
			{Text: "Lyon is the capital", Confidence: 0.99, Order: 1},
			{Text: "Paris is the capital", Confidence: 0.3, Order: 2},
		})
		Expect(normalizeAnswer(winner.Text)).To(Equal("Paris is the capital"))
	})

	It("breaks vote ties toward the first-produced sample", func() {
		winner := majorityVote([]Candidate{
			{Text: "answer one", Order: 0},
			{Text: "answer two", Order: 1},
		})
		Expect(winner.Text).To(Equal("answer one"))
	})
})

var _ = Describe("selectCandidate", func() {
	It("returns a lone candidate untouched", func() {
		c := selectCandidate(StrategyTreeOfThoughts, []Candidate{{Text: "only", Confidence: 0.1}})
		Expect(c.Text).To(Equal("only"))
	})

	It("picks the highest confidence for fan-out strategies", func() {
		c := selectCandidate(StrategyTreeOfThoughts, []Candidate{
			{Text: "weak", Confidence: 0.2, Order: 0},
			{Text: "strong", Confidence: 0.8, Order: 1},
		})
		Expect(c.Text).To(Equal("strong"))
	})

	It("keeps the first-submitted candidate on a confidence tie", func() {
		c := selectCandidate(StrategyTreeOfThoughts, []Candidate{
			{Text: "first", Confidence: 0.5, Order: 0},
			{Text: "second", Confidence: 0.5, Order: 1},
		})
		Expect(c.Text).To(Equal("first"))
	})
})

var _ = Describe("Step transitions", func() {
	It("walks pending through running to completed", func() {
		s := &Step{Status: StepPending}
		Expect(s.transition(StepRunning)).To(Succeed())
		Expect(s.transition(StepCompleted)).To(Succeed())
	})

	It("rejects skipping the running state", func() {
		s := &Step{Status: StepPending}
		Expect(s.transition(StepCompleted)).NotTo(Succeed())
	})

	It("rejects leaving a terminal state", func() {
		s := &Step{Status: StepPending}
		Expect(s.transition(StepRunning)).To(Succeed())
		Expect(s.transition(StepFailed)).To(Succeed())
		Expect(s.transition(StepRunning)).NotTo(Succeed())
		Expect(s.transition(StepPending)).NotTo(Succeed())
	})
})
