package fetch

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Governor bounds simultaneous network fetches and disk writes with two
// independent permit pools, and tracks the in-flight fetch count so the
// session can throttle pagination against a high-water mark.
type Governor struct {
	fetchPool *semaphore.Weighted
	writePool *semaphore.Weighted
	inFlight  atomic.Int64
}

// NewGovernor sizes the fetch pool to workers and the write pool to
// writePermits. Non-positive values fall back to 1.
func NewGovernor(workers, writePermits int) *Governor {
	if workers <= 0 {
		workers = 1
	}
	if writePermits <= 0 {
		writePermits = 1
	}
	return &Governor{
		fetchPool: semaphore.NewWeighted(int64(workers)),
		writePool: semaphore.NewWeighted(int64(writePermits)),
	}
}

// AcquireFetch blocks until a download permit is available or ctx finishes.
func (g *Governor) AcquireFetch(ctx context.Context) error {
	if err := g.fetchPool.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire fetch permit: %w", err)
	}
	g.inFlight.Add(1)
	return nil
}

// ReleaseFetch returns a download permit to the pool.
func (g *Governor) ReleaseFetch() {
	g.inFlight.Add(-1)
	g.fetchPool.Release(1)
}

// AcquireWrite blocks until a write permit is available or ctx finishes.
func (g *Governor) AcquireWrite(ctx context.Context) error {
	if err := g.writePool.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire write permit: %w", err)
	}
	return nil
}

// ReleaseWrite returns a write permit to the pool.
func (g *Governor) ReleaseWrite() {
	g.writePool.Release(1)
}

// InFlight reports the number of fetches currently holding a permit.
func (g *Governor) InFlight() int {
	return int(g.inFlight.Load())
}
