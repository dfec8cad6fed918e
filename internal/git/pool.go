// Package git provides shared concurrency utilities for git CLI operations.
package git

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool limits concurrent git CLI operations using a weighted semaphore.
// Scheduled passes and on-demand syncs share one Pool so a full-fleet pass
// cannot exhaust the host with parallel clones.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a Pool that allows at most limit concurrent git operations.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot.
// Blocks if all slots are busy. Returns ctx.Err() if the context
// is cancelled while waiting for a slot.
// If the pool is nil, fn is executed directly without concurrency control.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// Locks tracks which repositories have a sync in flight. A second sync for
// the same repository is rejected rather than queued, so overlapping
// triggers never touch the same working tree concurrently.
type Locks struct {
	mu    sync.Mutex
	inUse map[string]struct{}
}

// NewLocks creates an empty lock registry.
func NewLocks() *Locks {
	return &Locks{inUse: make(map[string]struct{})}
}

// TryAcquire claims the named repository. Returns false if a sync for it is
// already in flight.
func (l *Locks) TryAcquire(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.inUse[name]; busy {
		return false
	}
	l.inUse[name] = struct{}{}
	return true
}

// Release frees the named repository. Releasing an unclaimed name is a no-op.
func (l *Locks) Release(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inUse, name)
}
