package queue

import (
	"context"
	"sync"

	"github.com/maheshrc27/reels-poster/internal/models"
)

const runIDLength = 12

// Cycle is one pass over the schedule, implemented by job.PublishJob.
type Cycle interface {
	ProcessDueItems(ctx context.Context, opts models.RunOptions) (models.CycleResult, error)
}

// Runner allows at most one cycle at a time and remembers the last one.
// A trigger that finds a cycle in progress is refused, never queued.
type Runner struct {
	cycle Cycle
	ctx   context.Context

	guard sync.Mutex
	wg    sync.WaitGroup

	mu   sync.Mutex
	last models.RunStatus
}

// NewRunner binds background runs to ctx; cancelling it aborts them.
func NewRunner(ctx context.Context, cycle Cycle) *Runner {
	return &Runner{
		cycle: cycle,
		ctx:   ctx,
	}
}

// TryRun runs a cycle in the caller's goroutine. It reports false without
// running anything when another cycle holds the guard.
func (r *Runner) TryRun(ctx context.Context, opts models.RunOptions) (models.RunStatus, bool) {
	if !r.guard.TryLock() {
		return models.RunStatus{}, false
	}
	defer r.guard.Unlock()

	return r.execute(ctx, newRunID(), opts), true
}

// TryDispatch takes the guard and runs the cycle in the background under the
// runner context. The returned run id is empty when the runner is busy.
func (r *Runner) TryDispatch(opts models.RunOptions) (string, bool) {
	if !r.guard.TryLock() {
		return "", false
	}

	runID := newRunID()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.guard.Unlock()
		r.execute(r.ctx, runID, opts)
	}()
	return runID, true
}

// Last returns a copy of the most recent run status.
func (r *Runner) Last() models.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Busy reports whether a cycle currently holds the guard.
func (r *Runner) Busy() bool {
	if r.guard.TryLock() {
		r.guard.Unlock()
		return false
	}
	return true
}

// Wait blocks until dispatched runs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) setLast(status models.RunStatus) {
	r.mu.Lock()
	r.last = status
	r.mu.Unlock()
}
