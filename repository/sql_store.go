package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ammiranda/forest_service/models"

	"github.com/google/uuid"
)

// dbtx is the subset of *sql.DB and *sql.Tx used by sqlStore
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlTxKey struct{}

// sqlQueries holds the statements of one SQL dialect
type sqlQueries struct {
	get    string
	exists string
	insert string
	search string
}

var postgresQueries = sqlQueries{
	get: `SELECT id, name, parent_id, created_at FROM nodes
		WHERE name = $1 ORDER BY created_at, id LIMIT 1`,
	exists: `SELECT EXISTS(SELECT 1 FROM nodes WHERE id = $1)`,
	insert: `INSERT INTO nodes (id, name, parent_id, created_at) VALUES ($1, $2, $3, $4)`,
	search: `SELECT id, name, parent_id, created_at FROM nodes
		WHERE lower(name) LIKE '%' || lower($1) || '%' ESCAPE '\'
		ORDER BY name, created_at, id`,
}

var sqliteQueries = sqlQueries{
	get: `SELECT id, name, parent_id, created_at FROM nodes
		WHERE name = ? ORDER BY created_at, id LIMIT 1`,
	exists: `SELECT EXISTS(SELECT 1 FROM nodes WHERE id = ?)`,
	insert: `INSERT INTO nodes (id, name, parent_id, created_at) VALUES (?, ?, ?, ?)`,
	search: `SELECT id, name, parent_id, created_at FROM nodes
		WHERE unicode_lower(name) LIKE '%' || unicode_lower(?) || '%' ESCAPE '\'
		ORDER BY name, created_at, id`,
}

// sqlStore implements NodeRepository and UnitOfWork on database/sql.
// The Postgres and SQLite backends differ only in dialect and setup.
type sqlStore struct {
	db      *sql.DB
	queries sqlQueries
	logger  *slog.Logger
}

func newSQLStore(db *sql.DB, queries sqlQueries, logger *slog.Logger) *sqlStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqlStore{db: db, queries: queries, logger: logger}
}

// conn returns the transaction carried by ctx, or the pool
func (s *sqlStore) conn(ctx context.Context) (dbtx, error) {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return tx, nil
	}
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// Do runs fn inside a database transaction
func (s *sqlStore) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, nested := ctx.Value(sqlTxKey{}).(*sql.Tx); nested {
		return ErrNestedTransaction
	}
	if s.db == nil {
		return ErrNotInitialized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("error rolling back transaction", slog.Any("error", rbErr))
		}
	}()

	if err := fn(context.WithValue(ctx, sqlTxKey{}, tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	committed = true
	return nil
}

// Get retrieves the oldest node with the given name
func (s *sqlStore) Get(ctx context.Context, name string) (*models.Node, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	node, err := scanNode(conn.QueryRowContext(ctx, s.queries.get, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting node: %w", err)
	}
	return node, nil
}

// Exists checks if a node exists
func (s *sqlStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := conn.QueryRowContext(ctx, s.queries.exists, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking node existence: %w", err)
	}
	return exists, nil
}

// Add inserts the node on the current transaction or connection
func (s *sqlStore) Add(ctx context.Context, node *models.Node) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	var parentID uuid.NullUUID
	if p := node.ParentID(); p != nil {
		parentID = uuid.NullUUID{UUID: *p, Valid: true}
	}
	if _, err := conn.ExecContext(ctx, s.queries.insert,
		node.ID(), node.Name(), parentID, node.CreatedAt(),
	); err != nil {
		return fmt.Errorf("error creating node: %w", err)
	}
	return nil
}

// Search retrieves nodes whose name contains text
func (s *sqlStore) Search(ctx context.Context, text string) ([]*models.Node, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, s.queries.search, escapeLike(text))
	if err != nil {
		return nil, fmt.Errorf("error searching nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]*models.Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning node: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}
	return nodes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var (
		id        uuid.UUID
		name      string
		parentID  uuid.NullUUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &name, &parentID, &createdAt); err != nil {
		return nil, err
	}
	var parent *uuid.UUID
	if parentID.Valid {
		parent = &parentID.UUID
	}
	return models.RestoreNode(id, name, parent, createdAt.UTC()), nil
}

// escapeLike makes LIKE wildcards in text match literally
func escapeLike(text string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(text)
}
