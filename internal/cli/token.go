package cli

import (
	"fmt"
	"time"

	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/pkg/utils"
	"github.com/spf13/cobra"
)

const randomTokenBytes = 32

func NewTokenCmd() *cobra.Command {
	var (
		ttl     time.Duration
		subject string
	)

	c := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for POST /run",
		Long: "With JOB_SIGNING_KEY set, prints a signed token valid for --ttl. " +
			"Otherwise prints a random key to use as JOB_TOKEN.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()

			var (
				token string
				err   error
			)
			if cfg.JobSigningKey != "" {
				token, err = utils.GenerateToken(cfg.JobSigningKey, subject, ttl)
			} else {
				token, err = utils.GenerateRandomKey(randomTokenBytes)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	c.Flags().DurationVar(&ttl, "ttl", time.Hour, "lifetime of a signed token")
	c.Flags().StringVar(&subject, "subject", "cron", "subject claim of a signed token")
	return c
}
