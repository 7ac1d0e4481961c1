package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ammiranda/forest_service/config"
	"github.com/ammiranda/forest_service/models"
)

// CacheProvider defines the interface for cache implementations.
// It stores node projections under string keys; a provider must tolerate
// backend failures by reporting a miss rather than an error.
//
// Entries belong to a generation that InvalidateCache retires. A reader
// takes the generation from Get before it queries storage and hands it back
// to Set, so a result computed before an invalidation never becomes visible
// after it.
type CacheProvider interface {
	// Get retrieves the projections stored under key.
	// Returns:
	//   - The cached projections
	//   - The generation the lookup was made in, empty when unknown
	//   - A boolean indicating whether the key was found and not expired
	Get(ctx context.Context, key string) ([]*models.NodeDTO, string, bool)

	// Set stores projections under key for the configured TTL, in generation
	// gen. Writes for a retired or empty generation are never served.
	Set(ctx context.Context, gen, key string, nodes []*models.NodeDTO)

	// InvalidateCache removes all cached data.
	// This is called after every committed change to the forest.
	InvalidateCache(ctx context.Context)

	// SetCacheTTL sets the cache time-to-live duration.
	SetCacheTTL(ttl time.Duration)

	// Initialize performs any necessary setup for the cache provider,
	// such as checking connectivity or creating tables.
	Initialize(ctx context.Context) error
}

// Key helpers keep key formats in one place
func SearchKey(text string) string { return "search:" + text }
func NodeKey(name string) string   { return "node:" + name }

// New builds the provider selected by cfg and initializes it
func New(ctx context.Context, cfg *config.CacheConfig, logger *slog.Logger) (CacheProvider, error) {
	var provider CacheProvider
	switch cfg.Backend {
	case config.CacheNone:
		provider = NoopCache{}
	case config.CacheMemory:
		provider = NewMemoryCache()
	case config.CacheRedis:
		provider = NewRedisCache(cfg.RedisAddr, logger)
	case config.CacheDynamoDB:
		dc, err := NewDynamoDBCache(ctx, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create dynamodb cache: %w", err)
		}
		provider = dc
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}

	provider.SetCacheTTL(cfg.TTL)
	if err := provider.Initialize(ctx); err != nil {
		if closer, ok := provider.(io.Closer); ok {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to initialize %s cache: %w", cfg.Backend, err)
	}
	return provider, nil
}

// NoopCache never stores anything
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]*models.NodeDTO, string, bool) { return nil, "", false }
func (NoopCache) Set(context.Context, string, string, []*models.NodeDTO)         {}
func (NoopCache) InvalidateCache(context.Context)                                {}
func (NoopCache) SetCacheTTL(time.Duration)                                      {}
func (NoopCache) Initialize(context.Context) error                               { return nil }
