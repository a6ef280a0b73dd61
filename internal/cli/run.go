package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/models"
	"github.com/maheshrc27/reels-poster/internal/queue"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

func NewRunCmd() *cobra.Command {
	var (
		windowMin int
		dryRun    bool
		alsoStory bool
		maxItems  int
		watch     bool
		interval  time.Duration
	)

	c := &cobra.Command{
		Use:   "run",
		Short: "Publish the records that are due now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			opts := models.RunOptions{
				WindowMin: cfg.WindowMin,
				DryRun:    cfg.DryRun,
				AlsoStory: cfg.AlsoStory,
				MaxItems:  cfg.MaxItems,
			}
			flags := cmd.Flags()
			if flags.Changed("window-min") {
				opts.WindowMin = windowMin
			}
			if flags.Changed("dry-run") {
				opts.DryRun = dryRun
			}
			if flags.Changed("also-story") {
				opts.AlsoStory = alsoStory
			}
			if flags.Changed("max-items") {
				opts.MaxItems = maxItems
			}
			if !flags.Changed("interval") {
				interval = cfg.Interval
			}
			if opts.WindowMin <= 0 {
				return fmt.Errorf("invalid --window-min %d (want > 0)", opts.WindowMin)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			publishJob, err := newPublishJob(ctx, *cfg)
			if err != nil {
				return err
			}

			if !watch {
				res, err := publishJob.ProcessDueItems(ctx, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "changed=%t published=%d failed=%d dry_run=%d\n",
					res.Changed, res.Published, res.Failed, res.DryRun)
				return nil
			}

			return watchLoop(ctx, queue.NewRunner(ctx, publishJob), opts, interval)
		},
	}

	c.Flags().IntVar(&windowMin, "window-min", 20, "publish records scheduled within the last N minutes")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "record what would be published without calling Instagram")
	c.Flags().BoolVar(&alsoStory, "also-story", true, "also share each published reel as a story")
	c.Flags().IntVar(&maxItems, "max-items", 0, "publish at most N records per cycle (0 = no cap)")
	c.Flags().BoolVar(&watch, "watch", false, "keep running a cycle every --interval")
	c.Flags().DurationVar(&interval, "interval", time.Minute, "cycle interval with --watch")
	return c
}

// watchLoop runs a cycle now and on every interval until ctx is done. Cycle
// errors are logged, never fatal; a tick that finds a cycle still running is
// skipped.
func watchLoop(ctx context.Context, runner *queue.Runner, opts models.RunOptions, interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("invalid --interval %s (want >= 1s)", interval)
	}

	tick := func() {
		if _, ok := runner.TryDispatch(opts); !ok {
			slog.Info("previous cycle still running, skipping tick")
		}
	}

	c := cron.New()
	if err := c.AddFunc(fmt.Sprintf("@every %s", interval), tick); err != nil {
		return err
	}
	slog.Info("watching schedule", "interval", interval.String(), "window_min", opts.WindowMin)
	tick()
	c.Start()

	<-ctx.Done()
	c.Stop()
	runner.Wait()
	slog.Info("watch stopped")
	return nil
}
