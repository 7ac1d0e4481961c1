package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ammiranda/forest_service/migrations"

	"github.com/mattn/go-sqlite3"
)

// sqliteDriver is go-sqlite3 with a unicode_lower function on every
// connection. SQLite's own lower() folds ASCII only.
const sqliteDriver = "sqlite3_forest"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	*sqlStore
	dbPath string
}

// NewSQLiteRepository creates a new SQLite repository instance.
// An empty path selects ~/.forest/forest.db.
func NewSQLiteRepository(path string, logger *slog.Logger) *SQLiteRepository {
	if path == "" {
		path = defaultSQLitePath()
	}
	return &SQLiteRepository{
		sqlStore: newSQLStore(nil, sqliteQueries, logger),
		dbPath:   path,
	}
}

func defaultSQLitePath() string {
	// Default to data directory in user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	dataDir := filepath.Join(homeDir, ".forest")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		// Fallback to current directory if home directory is not accessible
		dataDir = "."
	}
	return filepath.Join(dataDir, "forest.db")
}

// Initialize opens the SQLite database and applies migrations
func (r *SQLiteRepository) Initialize(ctx context.Context) error {
	// foreign keys are enforced per connection, so the pragma goes in the DSN
	db, err := sql.Open(sqliteDriver, fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", r.dbPath))
	if err != nil {
		return err
	}
	// a single writer avoids SQLITE_BUSY between concurrent transactions
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("error opening sqlite database: %w", err)
	}

	if err := migrations.Up(db, migrations.SQLite); err != nil {
		db.Close()
		return err
	}

	r.db = db
	r.logger.Info("sqlite repository initialized", slog.String("path", r.dbPath))
	return nil
}

// Cleanup closes the database connection
func (r *SQLiteRepository) Cleanup(ctx context.Context) error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the connection pool for migration tooling
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}
