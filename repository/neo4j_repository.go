package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ammiranda/forest_service/config"
	"github.com/ammiranda/forest_service/models"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jRepository implements Repository on a Neo4j graph.
// Nodes are stored as :Node with a parentId property and a CHILD_OF
// relationship to the parent, so subtrees can be walked with variable length
// patterns.
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
	config *config.Neo4jConfig
	logger *slog.Logger
}

type neo4jTxKey struct{}

const nodeReturn = `RETURN n.id AS id, n.name AS name, n.parentId AS parentId, n.createdAt AS createdAt`

// NewNeo4jRepository creates a new Neo4j repository
func NewNeo4jRepository(ctx context.Context, cfgProvider config.Provider, logger *slog.Logger) (*Neo4jRepository, error) {
	cfg, err := config.GetNeo4jConfig(ctx, cfgProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to get neo4j config: %w", err)
	}
	return NewNeo4jRepositoryWithConfig(cfg, logger), nil
}

// NewNeo4jRepositoryWithConfig creates a Neo4j repository from an explicit config
func NewNeo4jRepositoryWithConfig(cfg *config.Neo4jConfig, logger *slog.Logger) *Neo4jRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Neo4jRepository{config: cfg, logger: logger}
}

// Initialize connects to Neo4j and creates the schema
func (r *Neo4jRepository) Initialize(ctx context.Context) error {
	driver, err := neo4j.NewDriverWithContext(
		r.config.URI,
		neo4j.BasicAuth(r.config.User, r.config.Password, ""),
	)
	if err != nil {
		return fmt.Errorf("error creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return fmt.Errorf("error connecting to neo4j: %w", err)
	}
	r.driver = driver

	schema := []string{
		`CREATE CONSTRAINT node_id IF NOT EXISTS FOR (n:Node) REQUIRE n.id IS UNIQUE`,
		`CREATE INDEX node_name IF NOT EXISTS FOR (n:Node) ON (n.name)`,
	}
	for _, stmt := range schema {
		if _, err := r.run(ctx, stmt, nil); err != nil {
			driver.Close(ctx)
			r.driver = nil
			return fmt.Errorf("error creating neo4j schema: %w", err)
		}
	}

	r.logger.Info("neo4j repository initialized", slog.String("uri", r.config.URI))
	return nil
}

// Cleanup closes the driver
func (r *Neo4jRepository) Cleanup(ctx context.Context) error {
	if r.driver != nil {
		return r.driver.Close(ctx)
	}
	return nil
}

// Do runs fn inside an explicit Neo4j transaction
func (r *Neo4jRepository) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(neo4jTxKey{}).(neo4j.ExplicitTransaction); nested {
		return ErrNestedTransaction
	}
	if r.driver == nil {
		return ErrNotInitialized
	}

	session := r.newSession(ctx)
	defer r.closeSession(ctx, session)

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// roll back even when ctx is already cancelled
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			r.logger.Warn("error rolling back transaction", slog.Any("error", rbErr))
		}
	}()

	if err := fn(context.WithValue(ctx, neo4jTxKey{}, tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	committed = true
	return nil
}

// Get retrieves the oldest node with the given name
func (r *Neo4jRepository) Get(ctx context.Context, name string) (*models.Node, error) {
	records, err := r.run(ctx,
		`MATCH (n:Node {name: $name}) `+nodeReturn+` ORDER BY n.createdAt, n.id LIMIT 1`,
		map[string]any{"name": name},
	)
	if err != nil {
		return nil, fmt.Errorf("error getting node: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return recordToNode(records[0])
}

// Exists checks if a node exists
func (r *Neo4jRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	records, err := r.run(ctx,
		`OPTIONAL MATCH (n:Node {id: $id}) RETURN n IS NOT NULL AS found LIMIT 1`,
		map[string]any{"id": id.String()},
	)
	if err != nil {
		return false, fmt.Errorf("error checking node existence: %w", err)
	}
	if len(records) == 0 {
		return false, nil
	}
	found, _ := records[0].Get("found")
	exists, _ := found.(bool)
	return exists, nil
}

// Add creates the node and links it to its parent
func (r *Neo4jRepository) Add(ctx context.Context, node *models.Node) error {
	var parentID any
	if p := node.ParentID(); p != nil {
		parentID = p.String()
	}
	_, err := r.run(ctx, `
		CREATE (n:Node {id: $id, name: $name, parentId: $parentId, createdAt: $createdAt})
		WITH n
		OPTIONAL MATCH (p:Node {id: $parentId})
		FOREACH (x IN CASE WHEN p IS NULL THEN [] ELSE [1] END | CREATE (n)-[:CHILD_OF]->(p))
	`, map[string]any{
		"id":        node.ID().String(),
		"name":      node.Name(),
		"parentId":  parentID,
		"createdAt": node.CreatedAt(),
	})
	if err != nil {
		return fmt.Errorf("error creating node: %w", err)
	}
	return nil
}

// Search retrieves nodes whose name contains text
func (r *Neo4jRepository) Search(ctx context.Context, text string) ([]*models.Node, error) {
	records, err := r.run(ctx,
		`MATCH (n:Node) WHERE toLower(n.name) CONTAINS toLower($text) `+nodeReturn+` ORDER BY n.name, n.createdAt, n.id`,
		map[string]any{"text": text},
	)
	if err != nil {
		return nil, fmt.Errorf("error searching nodes: %w", err)
	}
	nodes := make([]*models.Node, 0, len(records))
	for _, record := range records {
		node, err := recordToNode(record)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// run executes cypher on the transaction in ctx, or in an auto-commit session
func (r *Neo4jRepository) run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if tx, ok := ctx.Value(neo4jTxKey{}).(neo4j.ExplicitTransaction); ok {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	}
	if r.driver == nil {
		return nil, ErrNotInitialized
	}

	session := r.newSession(ctx)
	defer r.closeSession(ctx, session)
	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func (r *Neo4jRepository) newSession(ctx context.Context) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: r.config.Database,
	})
}

func (r *Neo4jRepository) closeSession(ctx context.Context, session neo4j.SessionWithContext) {
	if err := session.Close(context.WithoutCancel(ctx)); err != nil {
		r.logger.Warn("error closing neo4j session", slog.Any("error", err))
	}
}

func recordToNode(record *neo4j.Record) (*models.Node, error) {
	rawID, _ := record.Get("id")
	rawName, _ := record.Get("name")
	rawParent, _ := record.Get("parentId")
	rawCreated, _ := record.Get("createdAt")

	idStr, ok := rawID.(string)
	if !ok {
		return nil, fmt.Errorf("error scanning node: id is %T", rawID)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("error scanning node: %w", err)
	}
	name, _ := rawName.(string)

	var parentID *uuid.UUID
	if s, ok := rawParent.(string); ok && s != "" {
		p, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("error scanning node parent: %w", err)
		}
		parentID = &p
	}

	createdAt, _ := rawCreated.(time.Time)
	return models.RestoreNode(id, name, parentID, createdAt.UTC()), nil
}
