package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/reels-poster/internal/models"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// execute must be called with the guard held.
func (r *Runner) execute(ctx context.Context, runID string, opts models.RunOptions) models.RunStatus {
	started := time.Now().UTC()
	status := models.RunStatus{
		RunID:     runID,
		StartedAt: &started,
		Ran:       true,
	}
	r.setLast(status)

	slog.Info("cycle started", "run_id", runID, "window_min", opts.WindowMin, "dry_run", opts.DryRun, "also_story", opts.AlsoStory, "max_items", opts.MaxItems)
	result, err := r.runCycle(ctx, opts)

	finished := time.Now().UTC()
	status.FinishedAt = &finished
	status.Changed = result.Changed
	status.Published = result.Published
	status.Failed = result.Failed
	if err != nil {
		msg := err.Error()
		status.Error = &msg
		slog.Error("cycle failed", "run_id", runID, "error", err)
	} else {
		slog.Info("cycle finished", "run_id", runID, "changed", result.Changed, "published", result.Published, "failed", result.Failed)
	}
	r.setLast(status)
	return status
}

// runCycle turns a panic inside the cycle into an error so the guard is
// always released and the status always finished.
func (r *Runner) runCycle(ctx context.Context, opts models.RunOptions) (result models.CycleResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cycle panicked: %v", p)
		}
	}()
	return r.cycle.ProcessDueItems(ctx, opts)
}

func newRunID() string {
	id, err := gonanoid.New(runIDLength)
	if err != nil {
		return time.Now().UTC().Format("20060102T150405.000000")
	}
	return id
}
