package orchestrator

import (
	"context"
	"errors"
	"sync"
)

// DefaultPoolSize bounds branch fan-out when no size is configured.
const DefaultPoolSize = 4

// Pool bounds concurrent strategy branches. One pool is shared by all runs so
// total provider fan-out stays capped regardless of request volume.
type Pool struct {
	sem chan struct{}
}

// NewPool creates a pool allowing up to size concurrent branches.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}

	return &Pool{
		sem: make(chan struct{}, size),
	}
}

// Map runs n branches concurrently, bounded by the pool size, and returns
// the successful candidates in submission order. Each candidate's Order is
// its branch index. Branch errors are joined and returned alongside any
// candidates that did succeed; the caller decides whether partial output is
// enough.
func (p *Pool) Map(ctx context.Context, n int, fn func(ctx context.Context, branch int) (Candidate, error)) ([]Candidate, error) {
	results := make([]*Candidate, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)

	for i := range n {
		go func() {
			defer wg.Done()

			select {
			case p.sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			defer func() { <-p.sem }()

			candidate, err := fn(ctx, i)
			if err != nil {
				errs[i] = err
				return
			}

			candidate.Order = i
			results[i] = &candidate
		}()
	}

	wg.Wait()

	candidates := make([]Candidate, 0, n)
	for _, r := range results {
		if r != nil {
			candidates = append(candidates, *r)
		}
	}

	return candidates, errors.Join(errs...)
}
