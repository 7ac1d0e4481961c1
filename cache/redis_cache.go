package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/ammiranda/forest_service/models"

	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix        = "forest:"
	redisGenerationKey = redisPrefix + "generation"
)

// RedisCache implements CacheProvider using Redis.
// Entries are namespaced by a generation token; invalidation bumps the
// token so stale entries become unreachable and age out through their TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a new Redis cache provider
func NewRedisCache(addr string, logger *slog.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	return NewRedisCacheWithClient(client, logger)
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: client,
		ttl:    5 * time.Minute,
		logger: logger,
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *RedisCache) Initialize(ctx context.Context) error {
	_, err := c.client.Ping(ctx).Result()
	return err
}

func (c *RedisCache) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Get(ctx, redisGenerationKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func dataKey(gen, key string) string {
	return redisPrefix + gen + ":" + key
}

// Get retrieves cached projections if available
func (c *RedisCache) Get(ctx context.Context, key string) ([]*models.NodeDTO, string, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, "", false
	}

	data, err := c.client.Get(ctx, dataKey(gen, key)).Result()
	if err != nil {
		return nil, gen, false
	}

	var nodes []*models.NodeDTO
	if err := json.Unmarshal([]byte(data), &nodes); err != nil {
		return nil, gen, false
	}

	return nodes, gen, true
}

// Set stores projections in cache under generation gen. A retired
// generation is never read again, so such writes only age out.
func (c *RedisCache) Set(ctx context.Context, gen, key string, nodes []*models.NodeDTO) {
	if gen == "" {
		return
	}
	data, err := json.Marshal(nodes)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, dataKey(gen, key), data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "redis cache set failed", "key", key, "error", err)
	}
}

// InvalidateCache makes every existing entry unreachable
func (c *RedisCache) InvalidateCache(ctx context.Context) {
	gen := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := c.client.Set(ctx, redisGenerationKey, gen, 0).Err(); err != nil {
		c.logger.WarnContext(ctx, "redis cache invalidation failed", "error", err)
	}
}

// SetCacheTTL sets the cache time-to-live duration
func (c *RedisCache) SetCacheTTL(ttl time.Duration) {
	c.ttl = ttl
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
