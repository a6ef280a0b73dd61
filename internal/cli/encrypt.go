package cli

import (
	"errors"
	"fmt"

	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/pkg/utils"
	"github.com/spf13/cobra"
)

func NewEncryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <access-token>",
		Short: "Encrypt an access token with SECRET_KEY for IG_ACCESS_TOKEN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			if cfg.SecretKey == "" {
				return errors.New("SECRET_KEY is not set")
			}
			enc, err := utils.Encrypt([]byte(args[0]), []byte(cfg.SecretKey))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enc:%s\n", enc)
			return nil
		},
	}
}
