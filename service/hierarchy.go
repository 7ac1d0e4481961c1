package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ammiranda/forest_service/cache"
	"github.com/ammiranda/forest_service/models"
	"github.com/ammiranda/forest_service/repository"

	"github.com/google/uuid"
)

// HierarchyService implements the node operations exposed to callers.
// It never commits or rolls back itself; every write runs inside the
// unit-of-work it was built with.
type HierarchyService struct {
	repo   repository.NodeRepository
	uow    repository.UnitOfWork
	cache  cache.CacheProvider
	logger *slog.Logger
}

// Option configures a HierarchyService
type Option func(*HierarchyService)

// WithCache sets the projection cache. Reads consult it and every committed
// create invalidates it.
func WithCache(c cache.CacheProvider) Option {
	return func(s *HierarchyService) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *HierarchyService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHierarchyService creates a service over the given repository and unit-of-work
func NewHierarchyService(repo repository.NodeRepository, uow repository.UnitOfWork, opts ...Option) *HierarchyService {
	s := &HierarchyService{
		repo:   repo,
		uow:    uow,
		cache:  cache.NoopCache{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the projection of the node named name, or a NotFound error
func (s *HierarchyService) Get(ctx context.Context, name string) (*models.NodeDTO, error) {
	key := cache.NodeKey(name)
	cached, gen, ok := s.cache.Get(ctx, key)
	if ok && len(cached) == 1 {
		return cached[0], nil
	}

	node, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get node %q: %w", name, err)
	}
	if node == nil {
		return nil, models.NotFoundError("node %q", name)
	}

	dto := node.ToDTO()
	s.cache.Set(ctx, gen, key, []*models.NodeDTO{dto})
	return dto, nil
}

// Create validates and stores a new node under parentID, or as a root when
// parentID is nil. The parent check and the insert share one transaction.
func (s *HierarchyService) Create(ctx context.Context, name string, parentID *uuid.UUID) (*models.NodeDTO, error) {
	dto, err := repository.InTransaction(ctx, s.uow, func(ctx context.Context) (*models.NodeDTO, error) {
		return s.create(ctx, name, parentID)
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateCache(ctx)
	s.logger.InfoContext(ctx, "node created", "id", dto.ID, "name", dto.Name, "parent_id", dto.ParentID)
	return dto, nil
}

func (s *HierarchyService) create(ctx context.Context, name string, parentID *uuid.UUID) (*models.NodeDTO, error) {
	trimmed, err := models.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		exists, err := s.repo.Exists(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to check parent %s: %w", *parentID, err)
		}
		if !exists {
			return nil, models.NotFoundError("parent node %s", *parentID)
		}
	}

	node, err := models.NewNode(trimmed, parentID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Add(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to add node: %w", err)
	}
	return node.ToDTO(), nil
}

// Search returns the projections of every node whose name contains text.
// The result is never nil.
func (s *HierarchyService) Search(ctx context.Context, text string) ([]*models.NodeDTO, error) {
	key := cache.SearchKey(text)
	cached, gen, ok := s.cache.Get(ctx, key)
	if ok {
		return cached, nil
	}

	nodes, err := s.repo.Search(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to search nodes: %w", err)
	}

	dtos := make([]*models.NodeDTO, 0, len(nodes))
	for _, n := range nodes {
		dtos = append(dtos, n.ToDTO())
	}

	// gen predates the storage read, so a create committed meanwhile
	// retires this write
	s.cache.Set(ctx, gen, key, dtos)
	return dtos, nil
}

// Forest returns every tree in the store, roots first
func (s *HierarchyService) Forest(ctx context.Context) ([]*models.TreeNode, error) {
	nodes, err := s.Search(ctx, "")
	if err != nil {
		return nil, err
	}
	return BuildForest(nodes), nil
}

// BuildForest links flat projections into trees through an ID index.
// Nodes whose parent is not in the input are treated as roots. Sibling
// order follows input order.
func BuildForest(nodes []*models.NodeDTO) []*models.TreeNode {
	index := make(map[uuid.UUID]*models.TreeNode, len(nodes))
	for _, n := range nodes {
		index[n.ID] = models.NewTreeNode(n)
	}

	roots := make([]*models.TreeNode, 0)
	for _, n := range nodes {
		tn := index[n.ID]
		if n.ParentID != nil {
			if parent, ok := index[*n.ParentID]; ok && parent != tn {
				parent.AddChild(tn)
				continue
			}
		}
		roots = append(roots, tn)
	}
	return roots
}

// Seed populates an empty store with a small sample tree.
// It reports whether anything was written.
func (s *HierarchyService) Seed(ctx context.Context) (bool, error) {
	seeded, err := repository.InTransaction(ctx, s.uow, func(ctx context.Context) (bool, error) {
		existing, err := s.repo.Search(ctx, "")
		if err != nil {
			return false, fmt.Errorf("failed to inspect store: %w", err)
		}
		if len(existing) > 0 {
			return false, nil
		}

		root, err := s.create(ctx, "Root", nil)
		if err != nil {
			return false, err
		}
		child1, err := s.create(ctx, "Child 1", &root.ID)
		if err != nil {
			return false, err
		}
		if _, err := s.create(ctx, "Child 2", &root.ID); err != nil {
			return false, err
		}
		if _, err := s.create(ctx, "Grandchild 1", &child1.ID); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}

	if seeded {
		s.cache.InvalidateCache(ctx)
		s.logger.InfoContext(ctx, "seeded sample forest")
	}
	return seeded, nil
}
