package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ammiranda/forest_service/config"
	"github.com/ammiranda/forest_service/migrations"

	_ "github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	*sqlStore
	config *config.DatabaseConfig
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfgProvider config.Provider, logger *slog.Logger) (*PostgresRepository, error) {
	cfg, err := config.GetDatabaseConfig(ctx, cfgProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to get database config: %w", err)
	}

	return &PostgresRepository{
		sqlStore: newSQLStore(nil, postgresQueries, logger),
		config:   cfg,
	}, nil
}

// Initialize sets up the PostgreSQL database
func (r *PostgresRepository) Initialize(ctx context.Context) error {
	db, err := sql.Open("postgres", r.config.ConnectionString())
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("error pinging database: %w", err)
	}

	if err := migrations.Up(db, migrations.Postgres); err != nil {
		db.Close()
		return err
	}

	r.db = db
	r.logger.Info("postgres repository initialized",
		slog.String("host", r.config.Host),
		slog.String("database", r.config.DBName),
	)
	return nil
}

// Cleanup closes the database connection
func (r *PostgresRepository) Cleanup(ctx context.Context) error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the connection pool for migration tooling
func (r *PostgresRepository) DB() *sql.DB {
	return r.db
}
