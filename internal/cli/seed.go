package cli

import (
	"fmt"
	"os"

	"github.com/ammiranda/forest_service/internal/bootstrap"

	"github.com/spf13/cobra"
)

func newSeedCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty store with a sample tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			provider, err := opts.load(ctx)
			if err != nil {
				return err
			}
			logger := bootstrap.NewLogger(provider.GetEnvironment(), os.Stderr)

			app, err := bootstrap.New(ctx, provider, logger)
			if err != nil {
				return err
			}
			defer app.Close(ctx)

			seeded, err := app.Service.Seed(ctx)
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "seeded sample forest")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "store is not empty, nothing to do")
			}
			return nil
		},
	}
}
