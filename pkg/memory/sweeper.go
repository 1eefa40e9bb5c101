package memory

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically purges expired entries from a Store.
// Run blocks until the context is cancelled; expiry is also enforced on the
// read path, so the sweeper only bounds storage growth.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   *zap.Logger
}

// DefaultSweepInterval is used when the configured interval is not positive.
const DefaultSweepInterval = time.Minute

// NewSweeper creates a sweeper over the given store.
func NewSweeper(store Store, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("memory sweeper stopped")
			return
		case now := <-ticker.C:
			count, err := s.store.SweepExpired(ctx, now)
			if err != nil {
				s.logger.Warn("memory sweep failed", zap.Error(err))
				continue
			}
			if count > 0 {
				s.logger.Debug("swept expired memory entries",
					zap.Int("count", count),
				)
			}
		}
	}
}
