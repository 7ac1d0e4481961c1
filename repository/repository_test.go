package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ammiranda/forest_service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRepositorySuite checks the behavior every backend must share
func runRepositorySuite(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Run("GetMissing", func(t *testing.T) {
		repo := newRepo(t)
		node, err := repo.Get(context.Background(), "nope")
		assert.NoError(t, err)
		assert.Nil(t, node)
	})

	t.Run("AddGetExists", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		root := mustNode(t, "Root", nil)
		require.NoError(t, repo.Add(ctx, root))
		child := mustNode(t, "Child 1", ptr(root.ID()))
		require.NoError(t, repo.Add(ctx, child))

		got, err := repo.Get(ctx, "Child 1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, child.ID(), got.ID())
		require.NotNil(t, got.ParentID())
		assert.Equal(t, root.ID(), *got.ParentID())

		exists, err := repo.Exists(ctx, root.ID())
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.Exists(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("GetReturnsOldestDuplicate", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := models.RestoreNode(uuid.New(), "dup", nil, time.Now().UTC().Add(-time.Minute))
		second := models.RestoreNode(uuid.New(), "dup", nil, time.Now().UTC())
		require.NoError(t, repo.Add(ctx, second))
		require.NoError(t, repo.Add(ctx, first))

		got, err := repo.Get(ctx, "dup")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first.ID(), got.ID())
	})

	t.Run("Search", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, name := range []string{"Root", "Child 2", "Child 1", "Grandchild 1", "100%_done"} {
			require.NoError(t, repo.Add(ctx, mustNode(t, name, nil)))
		}

		all, err := repo.Search(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"100%_done", "Child 1", "Child 2", "Grandchild 1", "Root"}, names(all))

		children, err := repo.Search(ctx, "child")
		require.NoError(t, err)
		assert.Equal(t, []string{"Child 1", "Child 2", "Grandchild 1"}, names(children))

		// wildcards match literally
		pct, err := repo.Search(ctx, "%_")
		require.NoError(t, err)
		assert.Equal(t, []string{"100%_done"}, names(pct))

		none, err := repo.Search(ctx, "zzz")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("SearchFoldsNonASCIICase", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, name := range []string{"Étoile", "Ölberg", "Root"} {
			require.NoError(t, repo.Add(ctx, mustNode(t, name, nil)))
		}

		lower, err := repo.Search(ctx, "é")
		require.NoError(t, err)
		assert.Equal(t, []string{"Étoile"}, names(lower))

		upper, err := repo.Search(ctx, "ÖLB")
		require.NoError(t, err)
		assert.Equal(t, []string{"Ölberg"}, names(upper))
	})

	t.Run("CommitMakesWritesVisible", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		root := mustNode(t, "Root", nil)
		err := repo.Do(ctx, func(ctx context.Context) error {
			if err := repo.Add(ctx, root); err != nil {
				return err
			}
			// staged writes are visible inside the transaction
			exists, err := repo.Exists(ctx, root.ID())
			if err != nil {
				return err
			}
			if !exists {
				return errors.New("staged node not visible in its own transaction")
			}
			return repo.Add(ctx, mustNode(t, "Child", ptr(root.ID())))
		})
		require.NoError(t, err)

		all, err := repo.Search(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("ErrorRollsBack", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		boom := errors.New("boom")

		err := repo.Do(ctx, func(ctx context.Context) error {
			if err := repo.Add(ctx, mustNode(t, "Ghost", nil)); err != nil {
				return err
			}
			return boom
		})
		assert.Same(t, boom, err, "the action error is returned unchanged")

		got, err := repo.Get(ctx, "Ghost")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CancelRollsBack", func(t *testing.T) {
		repo := newRepo(t)
		ctx, cancel := context.WithCancel(context.Background())

		err := repo.Do(ctx, func(txCtx context.Context) error {
			if err := repo.Add(txCtx, mustNode(t, "Cancelled", nil)); err != nil {
				return err
			}
			cancel()
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)

		got, err := repo.Get(context.Background(), "Cancelled")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("PanicRollsBack", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		assert.Panics(t, func() {
			_ = repo.Do(ctx, func(ctx context.Context) error {
				if err := repo.Add(ctx, mustNode(t, "Panicked", nil)); err != nil {
					return err
				}
				panic("boom")
			})
		})

		got, err := repo.Get(ctx, "Panicked")
		require.NoError(t, err)
		assert.Nil(t, got)

		// the backend is still usable afterwards
		assert.NoError(t, repo.Do(ctx, func(ctx context.Context) error { return nil }))
	})

	t.Run("NestedRejected", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Do(context.Background(), func(ctx context.Context) error {
			return repo.Do(ctx, func(ctx context.Context) error { return nil })
		})
		assert.ErrorIs(t, err, ErrNestedTransaction)
	})

	t.Run("InTransaction", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := InTransaction(ctx, repo, func(ctx context.Context) (uuid.UUID, error) {
			n := mustNode(t, "Returned", nil)
			return n.ID(), repo.Add(ctx, n)
		})
		require.NoError(t, err)

		got, err := repo.Get(ctx, "Returned")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, id, got.ID())

		zero, err := InTransaction(ctx, repo, func(ctx context.Context) (uuid.UUID, error) {
			return uuid.New(), errors.New("fail")
		})
		assert.Error(t, err)
		assert.Equal(t, uuid.Nil, zero)
	})

	t.Run("ConcurrentTransactions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.Do(ctx, func(ctx context.Context) error {
					n, err := models.NewNode("worker", nil)
					if err != nil {
						return err
					}
					return repo.Add(ctx, n)
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}

		all, err := repo.Search(ctx, "worker")
		require.NoError(t, err)
		assert.Len(t, all, 10)
	})
}

func mustNode(t *testing.T, name string, parent *uuid.UUID) *models.Node {
	t.Helper()
	n, err := models.NewNode(name, parent)
	require.NoError(t, err)
	return n
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func names(nodes []*models.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name())
	}
	return out
}
