package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ammiranda/forest_service/models"

	"github.com/google/uuid"
)

// MemoryRepository implements Repository in process memory.
// Transactions are serialized: a writer holds the transaction slot from
// begin to commit or rollback, and its adds stay invisible to other
// readers until commit.
type MemoryRepository struct {
	mu    sync.RWMutex
	nodes map[uuid.UUID]*models.Node
	// slot is a one-token semaphore held by the active transaction
	slot chan struct{}
}

type memoryTxKey struct{}

// memoryTx buffers the nodes added inside one transaction
type memoryTx struct {
	staged map[uuid.UUID]*models.Node
	order  []uuid.UUID
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nodes: make(map[uuid.UUID]*models.Node),
		slot:  make(chan struct{}, 1),
	}
}

// Initialize performs any necessary setup
func (m *MemoryRepository) Initialize(ctx context.Context) error {
	return nil
}

// Cleanup drops every stored node
func (m *MemoryRepository) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[uuid.UUID]*models.Node)
	return nil
}

// Do runs fn inside a memory transaction
func (m *MemoryRepository) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(memoryTxKey{}).(*memoryTx); nested {
		return ErrNestedTransaction
	}

	select {
	case m.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.slot }()

	tx := &memoryTx{staged: make(map[uuid.UUID]*models.Node)}
	// a panic in fn leaves tx unapplied, which is the rollback
	if err := fn(context.WithValue(ctx, memoryTxKey{}, tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range tx.order {
		m.nodes[id] = tx.staged[id]
	}
	return nil
}

// Get retrieves the oldest node with the given name
func (m *MemoryRepository) Get(ctx context.Context, name string) (*models.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found *models.Node
	for _, node := range m.visible(ctx) {
		if node.Name() != name {
			continue
		}
		if found == nil || olderThan(node, found) {
			found = node
		}
	}
	if found == nil {
		return nil, nil
	}
	return clone(found), nil
}

// Exists checks if a node exists
func (m *MemoryRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx); ok {
		if _, staged := tx.staged[id]; staged {
			return true, nil
		}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[id]
	return ok, nil
}

// Add stages the node in the current transaction, or stores it directly
func (m *MemoryRepository) Add(ctx context.Context, node *models.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := clone(node)
	if tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx); ok {
		if _, dup := tx.staged[stored.ID()]; !dup {
			tx.order = append(tx.order, stored.ID())
		}
		tx.staged[stored.ID()] = stored
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[stored.ID()] = stored
	return nil
}

// Search retrieves nodes whose name contains text
func (m *MemoryRepository) Search(ctx context.Context, text string) ([]*models.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(text)
	result := make([]*models.Node, 0)
	for _, node := range m.visible(ctx) {
		if strings.Contains(strings.ToLower(node.Name()), needle) {
			result = append(result, clone(node))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name() != result[j].Name() {
			return result[i].Name() < result[j].Name()
		}
		return olderThan(result[i], result[j])
	})
	return result, nil
}

// Len returns the number of committed nodes
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// visible returns committed nodes plus those staged by the transaction in ctx
func (m *MemoryRepository) visible(ctx context.Context) []*models.Node {
	m.mu.RLock()
	nodes := make([]*models.Node, 0, len(m.nodes))
	for _, node := range m.nodes {
		nodes = append(nodes, node)
	}
	m.mu.RUnlock()

	if tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx); ok {
		for _, id := range tx.order {
			nodes = append(nodes, tx.staged[id])
		}
	}
	return nodes
}

func olderThan(a, b *models.Node) bool {
	if !a.CreatedAt().Equal(b.CreatedAt()) {
		return a.CreatedAt().Before(b.CreatedAt())
	}
	return a.ID().String() < b.ID().String()
}

func clone(node *models.Node) *models.Node {
	return models.RestoreNode(node.ID(), node.Name(), node.ParentID(), node.CreatedAt())
}
