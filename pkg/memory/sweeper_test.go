package memory_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/memory"
	memlocal "github.com/crosswirelabs/loom/pkg/memory/local"
)

// countingStore records how many sweeps the sweeper drives.
type countingStore struct {
	memory.Store
	sweeps atomic.Int32
}

func (c *countingStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	c.sweeps.Add(1)
	return c.Store.SweepExpired(ctx, now)
}

var _ = Describe("Sweeper", func() {
	It("runs with a non-positive interval by falling back to the default", func() {
		ctx, cancel := context.WithCancel(context.Background())
		sweeper := memory.NewSweeper(memlocal.NewStore(), 0, zap.NewNop())

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			sweeper.Run(ctx)
		}()

		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("sweeps the store on the configured interval until cancelled", func() {
		store := &countingStore{Store: memlocal.NewStore()}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sweeper := memory.NewSweeper(store, time.Millisecond, zap.NewNop())
		go func() {
			defer GinkgoRecover()
			sweeper.Run(ctx)
		}()

		Eventually(func() int32 { return store.sweeps.Load() }).Should(BeNumerically(">=", 2))
	})
})
