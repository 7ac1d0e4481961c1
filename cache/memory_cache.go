package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ammiranda/forest_service/models"
)

// MemoryCache implements CacheProvider using in-memory storage
type MemoryCache struct {
	mu       sync.RWMutex
	data     map[string][]*models.NodeDTO
	ttl      time.Duration
	expiries map[string]time.Time
	// epoch counts invalidations; Set drops writes from an older epoch
	epoch uint64
}

// NewMemoryCache creates a new in-memory cache provider
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		ttl:      5 * time.Minute,
		data:     make(map[string][]*models.NodeDTO),
		expiries: make(map[string]time.Time),
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *MemoryCache) Initialize(ctx context.Context) error {
	return nil
}

// Get retrieves cached projections if present and not expired
func (c *MemoryCache) Get(ctx context.Context, key string) ([]*models.NodeDTO, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	gen := strconv.FormatUint(c.epoch, 10)
	expiry, exists := c.expiries[key]
	if !exists || time.Now().After(expiry) {
		return nil, gen, false
	}

	nodes, ok := c.data[key]
	return nodes, gen, ok
}

// Set stores projections in cache unless gen has been invalidated since
func (c *MemoryCache) Set(ctx context.Context, gen, key string, nodes []*models.NodeDTO) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != strconv.FormatUint(c.epoch, 10) {
		return
	}
	c.data[key] = nodes
	c.expiries[key] = time.Now().Add(c.ttl)
}

// InvalidateCache removes all cached data and starts a new epoch
func (c *MemoryCache) InvalidateCache(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.data = make(map[string][]*models.NodeDTO)
	c.expiries = make(map[string]time.Time)
}

// SetCacheTTL sets the cache time-to-live duration
func (c *MemoryCache) SetCacheTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ttl = ttl
	// Update all existing expiries
	now := time.Now()
	for key := range c.data {
		c.expiries[key] = now.Add(ttl)
	}
}
