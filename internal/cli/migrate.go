package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/ammiranda/forest_service/config"
	"github.com/ammiranda/forest_service/internal/bootstrap"
	"github.com/ammiranda/forest_service/migrations"
	"github.com/ammiranda/forest_service/repository"

	"github.com/spf13/cobra"
)

type sqlBackend interface {
	repository.Repository
	DB() *sql.DB
}

func newMigrateCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL schema (sqlite and postgres only)",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSQL(cmd.Context(), opts, func(db *sql.DB, dialect migrations.Dialect) error {
					if err := migrations.Up(db, dialect); err != nil {
						return err
					}
					return printVersion(cmd, db, dialect)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSQL(cmd.Context(), opts, func(db *sql.DB, dialect migrations.Dialect) error {
					if err := migrations.Down(db, dialect); err != nil {
						return err
					}
					return printVersion(cmd, db, dialect)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSQL(cmd.Context(), opts, func(db *sql.DB, dialect migrations.Dialect) error {
					return printVersion(cmd, db, dialect)
				})
			},
		},
	)
	return cmd
}

func printVersion(cmd *cobra.Command, db *sql.DB, dialect migrations.Dialect) error {
	version, dirty, err := migrations.Version(db, dialect)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
	return nil
}

// withSQL opens the configured SQL backend. Opening applies pending
// migrations, so fn always sees an up-to-date schema first.
func withSQL(ctx context.Context, opts *options, fn func(db *sql.DB, dialect migrations.Dialect) error) error {
	provider, err := opts.load(ctx)
	if err != nil {
		return err
	}
	logger := bootstrap.NewLogger(provider.GetEnvironment(), os.Stderr)

	serverCfg, err := config.GetServerConfig(ctx, provider)
	if err != nil {
		return err
	}

	var dialect migrations.Dialect
	switch serverCfg.StorageDriver {
	case config.StoragePostgres:
		dialect = migrations.Postgres
	case config.StorageSQLite:
		dialect = migrations.SQLite
	default:
		return fmt.Errorf("storage driver %q has no SQL schema", serverCfg.StorageDriver)
	}

	repo, err := bootstrap.OpenRepository(ctx, provider, serverCfg, logger)
	if err != nil {
		return err
	}
	defer repo.Cleanup(ctx)

	backend, ok := repo.(sqlBackend)
	if !ok {
		return fmt.Errorf("storage driver %q does not expose a SQL connection", serverCfg.StorageDriver)
	}
	return fn(backend.DB(), dialect)
}
