package repository

import (
	"context"
	"errors"

	"github.com/ammiranda/forest_service/models"

	"github.com/google/uuid"
)

// NodeRepository defines data access for forest nodes.
// Lookups never report absence as an error; only storage failures are returned.
// When ctx carries a transaction opened by the backend's UnitOfWork, every
// method runs inside that transaction.
type NodeRepository interface {
	// Get returns the node with exactly the given name.
	// Returns:
	//   - nil, nil if no node matches
	//   - the oldest node if several share the name
	Get(ctx context.Context, name string) (*models.Node, error)

	// Exists reports whether a node with the given ID is stored.
	// It is used to validate a prospective parent and does not load the node.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Add stages a node for persistence. It does not commit: durability is
	// decided by the unit-of-work the call runs in.
	Add(ctx context.Context, node *models.Node) error

	// Search returns every node whose name contains text, case-insensitively.
	// An empty text matches all nodes. Results are ordered by name, creation
	// time and ID.
	Search(ctx context.Context, text string) ([]*models.Node, error)
}

// UnitOfWork runs a sequence of repository operations atomically.
type UnitOfWork interface {
	// Do opens a transaction and calls fn with a context carrying it.
	// If fn returns nil the transaction is committed; otherwise it is rolled
	// back and fn's error is returned unchanged. A panic in fn rolls back and
	// re-panics. Cancellation of ctx before commit rolls back and returns
	// ctx.Err().
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repository is a storage backend: node access, transactions and lifecycle.
type Repository interface {
	NodeRepository
	UnitOfWork

	// Initialize performs any necessary setup for the repository.
	// This may include establishing database connections or running migrations.
	Initialize(ctx context.Context) error

	// Cleanup releases the resources acquired by Initialize.
	Cleanup(ctx context.Context) error
}

// Common errors
var (
	// ErrNestedTransaction is returned when Do is called inside another Do
	ErrNestedTransaction = errors.New("nested transactions are not supported")
	// ErrNotInitialized is returned when a backend is used before Initialize
	ErrNotInitialized = errors.New("repository not initialized")
)

// InTransaction runs fn inside uow and returns its result once committed
func InTransaction[T any](ctx context.Context, uow UnitOfWork, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := uow.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
