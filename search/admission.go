package search

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/use-agent/ytsearch/models"
)

// admission bounds the number of pipelines holding a page at once. A nil
// *admission admits everything.
type admission struct {
	sem  *semaphore.Weighted
	max  int
	wait time.Duration
}

func newAdmission(max int, wait time.Duration) *admission {
	if max <= 0 {
		return nil
	}
	return &admission{sem: semaphore.NewWeighted(int64(max)), max: max, wait: wait}
}

// acquire waits up to a.wait for a slot. The returned release func must be
// called exactly once.
func (a *admission) acquire(ctx context.Context) (func(), error) {
	if a == nil {
		return func() {}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.wait)
	defer cancel()

	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, models.NewSearchError(models.ErrCodeOverloaded, "no extraction slot available", err)
	}
	return func() { a.sem.Release(1) }, nil
}

func (a *admission) limit() int {
	if a == nil {
		return 0
	}
	return a.max
}
