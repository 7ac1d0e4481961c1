package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*sqlStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newSQLStore(db, postgresQueries, nil), mock
}

func TestSQLStoreDoCommits(t *testing.T) {
	store, mock := newMockStore(t)
	node := mustNode(t, "Root", nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(postgresQueries.insert)).
		WithArgs(node.ID(), "Root", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Do(context.Background(), func(ctx context.Context) error {
		return store.Add(ctx, node)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreDoRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	parent := uuid.New()
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(postgresQueries.exists)).
		WithArgs(parent).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := store.Do(context.Background(), func(ctx context.Context) error {
		exists, err := store.Exists(ctx, parent)
		if err != nil {
			return err
		}
		assert.False(t, exists)
		return boom
	})
	assert.Same(t, boom, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreDoRollsBackOnPanic(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = store.Do(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreDoCommitFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection lost"))

	err := store.Do(context.Background(), func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error committing transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreDoBeginFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	called := false
	err := store.Do(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreDoNested(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.Do(context.Background(), func(ctx context.Context) error {
		return store.Do(ctx, func(ctx context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, ErrNestedTransaction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGet(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	parent := uuid.New()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(postgresQueries.get)).
		WithArgs("Child").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_id", "created_at"}).
			AddRow(id.String(), "Child", parent.String(), created))

	node, err := store.Get(context.Background(), "Child")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, id, node.ID())
	assert.Equal(t, parent, *node.ParentID())
	assert.True(t, created.Equal(node.CreatedAt()))

	mock.ExpectQuery(regexp.QuoteMeta(postgresQueries.get)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_id", "created_at"}))

	node, err = store.Get(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, node)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSearchEscapesWildcards(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(postgresQueries.search)).
		WithArgs(`50\%\_off`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_id", "created_at"}).
			AddRow(uuid.New().String(), "50%_off", nil, time.Now()))

	nodes, err := store.Search(context.Background(), "50%_off")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].IsRoot())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreInfrastructureErrors(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(postgresQueries.search)).
		WillReturnError(errors.New("connection refused"))

	_, err := store.Search(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error searching nodes")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "plain", escapeLike("plain"))
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}
