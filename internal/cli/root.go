package cli

import (
	"context"

	config "github.com/maheshrc27/reels-poster/configs"
	job "github.com/maheshrc27/reels-poster/internal/jobs"
	"github.com/maheshrc27/reels-poster/internal/repository"
	"github.com/maheshrc27/reels-poster/internal/service"
	"github.com/spf13/cobra"
)

func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "poster",
		Short:         "Publish scheduled Instagram reels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewTokenCmd())
	cmd.AddCommand(NewEncryptCmd())
	return cmd
}

func newPublishJob(ctx context.Context, cfg config.Config) (*job.PublishJob, error) {
	store, err := repository.NewScheduleRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	graph := service.NewGraphClient(cfg, nil)
	return job.NewPublishJob(cfg, store, service.NewInstagramService(cfg, graph)), nil
}
