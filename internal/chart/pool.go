// ABOUTME: Bounded worker pool for chart rendering
// ABOUTME: A weighted semaphore caps concurrent renders across all sessions

package chart

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool limits the number of charts rendered concurrently.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool creates a pool running at most workers jobs at once.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers)), size: workers}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Do waits for a free worker, then runs fn on the calling goroutine.
// It returns the context error if no worker frees up in time.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for chart worker: %w", err)
	}
	defer p.sem.Release(1)
	return fn()
}
