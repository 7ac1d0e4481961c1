package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ammiranda/forest_service/config"
	"github.com/ammiranda/forest_service/internal/bootstrap"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string
}

// NewRootCommand builds the forest command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "forest",
		Short: "Forest serves a hierarchy of named nodes over HTTP",
		Long: `Forest stores named nodes that may point at a parent node, forming one or
more trees. It exposes lookup, search and create operations over a JSON API.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (env vars are used when empty)")

	root.AddCommand(
		newServeCommand(opts),
		newSeedCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load resolves the configuration provider
func (o *options) load(ctx context.Context) (config.Provider, error) {
	provider, err := bootstrap.NewProvider(ctx, o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return provider, nil
}
