package agent_test

import (
	"errors"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crosswirelabs/loom/pkg/agent"
)

var _ = Describe("Registry", func() {
	var registry *agent.Registry

	BeforeEach(func() {
		registry = agent.NewRegistry()
	})

	Describe("Register", func() {
		It("defaults new agents to available", func() {
			registry.Register(agent.Agent{ID: "a1", Type: agent.TypePlanner})

			agents := registry.List()
			Expect(agents).To(HaveLen(1))
			Expect(agents[0].Status).To(Equal(agent.StatusAvailable))
		})

		It("replaces a re-registered ID", func() {
			registry.Register(agent.Agent{ID: "a1", Type: agent.TypePlanner, Name: "old"})
			registry.Register(agent.Agent{ID: "a1", Type: agent.TypePlanner, Name: "new"})

			agents := registry.List()
			Expect(agents).To(HaveLen(1))
			Expect(agents[0].Name).To(Equal("new"))
		})
	})

	Describe("List", func() {
		It("returns agents ordered by ID", func() {
			registry.Register(agent.Agent{ID: "c", Type: agent.TypeReasoner})
			registry.Register(agent.Agent{ID: "a", Type: agent.TypePlanner})
			registry.Register(agent.Agent{ID: "b", Type: agent.TypeResearcher})

			agents := registry.List()
			Expect(agents[0].ID).To(Equal("a"))
			Expect(agents[1].ID).To(Equal("b"))
			Expect(agents[2].ID).To(Equal("c"))
		})
	})

	Describe("SetStatus", func() {
		BeforeEach(func() {
			registry.Register(agent.Agent{ID: "a1", Type: agent.TypePlanner})
		})

		It("moves available to busy and back", func() {
			Expect(registry.SetStatus("a1", agent.StatusBusy)).To(Succeed())
			_, found := registry.FindBusy(agent.TypePlanner)
			Expect(found).To(BeTrue())

			Expect(registry.SetStatus("a1", agent.StatusAvailable)).To(Succeed())
			_, found = registry.FindAvailable(agent.TypePlanner)
			Expect(found).To(BeTrue())
		})

		It("rejects offline to busy", func() {
			Expect(registry.SetStatus("a1", agent.StatusOffline)).To(Succeed())

			err := registry.SetStatus("a1", agent.StatusBusy)
			Expect(err).To(MatchError(agent.ErrOffline))
		})

		It("recovers offline to available", func() {
			Expect(registry.SetStatus("a1", agent.StatusOffline)).To(Succeed())
			Expect(registry.SetStatus("a1", agent.StatusAvailable)).To(Succeed())
			Expect(registry.SetStatus("a1", agent.StatusBusy)).To(Succeed())
		})

		It("rejects unknown agents", func() {
			Expect(registry.SetStatus("missing", agent.StatusBusy)).To(MatchError(agent.ErrNotFound))
		})

		It("rejects invalid status values", func() {
			err := registry.SetStatus("a1", agent.Status("sleeping"))
			Expect(err).To(HaveOccurred())

			var invalid agent.InvalidStatusError
			Expect(errors.As(err, &invalid)).To(BeTrue())
			Expect(invalid.Status).To(Equal(agent.Status("sleeping")))
		})
	})

	Describe("Acquire", func() {
		It("claims the lowest available ID and marks it busy", func() {
			registry.Register(agent.Agent{ID: "r2", Type: agent.TypeReasoner})
			registry.Register(agent.Agent{ID: "r1", Type: agent.TypeReasoner})

			a, ok := registry.Acquire(agent.TypeReasoner)
			Expect(ok).To(BeTrue())
			Expect(a.ID).To(Equal("r1"))
			Expect(a.Status).To(Equal(agent.StatusBusy))

			next, ok := registry.Acquire(agent.TypeReasoner)
			Expect(ok).To(BeTrue())
			Expect(next.ID).To(Equal("r2"))
		})

		It("reports no match when every agent of the type is claimed or offline", func() {
			registry.Register(agent.Agent{ID: "r1", Type: agent.TypeReasoner})
			registry.Register(agent.Agent{ID: "r2", Type: agent.TypeReasoner})
			_, ok := registry.Acquire(agent.TypeReasoner)
			Expect(ok).To(BeTrue())
			Expect(registry.SetStatus("r2", agent.StatusOffline)).To(Succeed())

			_, ok = registry.Acquire(agent.TypeReasoner)
			Expect(ok).To(BeFalse())
		})

		It("grants a contended agent to exactly one caller", func() {
			registry.Register(agent.Agent{ID: "p1", Type: agent.TypePlanner})

			const callers = 8
			var wg sync.WaitGroup
			var claims atomic.Int32
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, ok := registry.Acquire(agent.TypePlanner); ok {
						claims.Add(1)
					}
				}()
			}
			wg.Wait()

			Expect(claims.Load()).To(Equal(int32(1)))
			_, busy := registry.FindBusy(agent.TypePlanner)
			Expect(busy).To(BeTrue())
		})
	})

	Describe("Release", func() {
		BeforeEach(func() {
			registry.Register(agent.Agent{ID: "p1", Type: agent.TypePlanner})
		})

		It("returns a claimed agent to available", func() {
			_, ok := registry.Acquire(agent.TypePlanner)
			Expect(ok).To(BeTrue())

			Expect(registry.Release("p1")).To(Succeed())
			_, available := registry.FindAvailable(agent.TypePlanner)
			Expect(available).To(BeTrue())
		})

		It("rejects releasing an agent that is not busy", func() {
			Expect(registry.Release("p1")).To(HaveOccurred())

			_, ok := registry.Acquire(agent.TypePlanner)
			Expect(ok).To(BeTrue())
			Expect(registry.Release("p1")).To(Succeed())
			Expect(registry.Release("p1")).To(HaveOccurred())
		})

		It("rejects releasing an agent taken offline while busy", func() {
			_, ok := registry.Acquire(agent.TypePlanner)
			Expect(ok).To(BeTrue())
			Expect(registry.SetStatus("p1", agent.StatusOffline)).To(Succeed())

			Expect(registry.Release("p1")).To(HaveOccurred())
		})

		It("rejects unknown agents", func() {
			Expect(registry.Release("missing")).To(MatchError(agent.ErrNotFound))
		})
	})

	Describe("FindAvailable", func() {
		It("picks the lowest ID deterministically", func() {
			registry.Register(agent.Agent{ID: "r2", Type: agent.TypeReasoner})
			registry.Register(agent.Agent{ID: "r1", Type: agent.TypeReasoner})

			a, found := registry.FindAvailable(agent.TypeReasoner)
			Expect(found).To(BeTrue())
			Expect(a.ID).To(Equal("r1"))
		})

		It("reports no match when all agents of the type are busy", func() {
			registry.Register(agent.Agent{ID: "r1", Type: agent.TypeReasoner})
			Expect(registry.SetStatus("r1", agent.StatusBusy)).To(Succeed())

			_, found := registry.FindAvailable(agent.TypeReasoner)
			Expect(found).To(BeFalse())
		})
	})
})
