package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/ammiranda/forest_service/models"
)

// MockCache is a cache provider that can be used for testing
type MockCache struct {
	mu              sync.RWMutex
	data            map[string][]*models.NodeDTO
	ttl             time.Duration
	expiry          map[string]time.Time
	epoch           uint64
	GetCalls        int
	SetCalls        int
	InvalidateCalls int
	SetTTLCalls     int
	InitCalls       int
	ShouldFail      bool
}

// NewMockCache creates a new mock cache provider
func NewMockCache() *MockCache {
	return &MockCache{
		ttl:    5 * time.Minute,
		data:   make(map[string][]*models.NodeDTO),
		expiry: make(map[string]time.Time),
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *MockCache) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InitCalls++
	if c.ShouldFail {
		return ErrCacheInitialization
	}
	return nil
}

// Get retrieves projections from cache if available
func (c *MockCache) Get(ctx context.Context, key string) ([]*models.NodeDTO, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls++

	if c.ShouldFail {
		return nil, "", false
	}

	gen := strconv.FormatUint(c.epoch, 10)
	nodes, ok := c.data[key]
	if !ok || time.Now().After(c.expiry[key]) {
		return nil, gen, false
	}
	return nodes, gen, true
}

// Set stores projections in cache unless gen is stale
func (c *MockCache) Set(ctx context.Context, gen, key string, nodes []*models.NodeDTO) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetCalls++

	if !c.ShouldFail && gen == strconv.FormatUint(c.epoch, 10) {
		c.data[key] = nodes
		c.expiry[key] = time.Now().Add(c.ttl)
	}
}

// InvalidateCache removes all entries
func (c *MockCache) InvalidateCache(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InvalidateCalls++

	if !c.ShouldFail {
		c.epoch++
		c.data = make(map[string][]*models.NodeDTO)
		c.expiry = make(map[string]time.Time)
	}
}

// SetCacheTTL sets the cache time-to-live duration
func (c *MockCache) SetCacheTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetTTLCalls++

	if !c.ShouldFail {
		c.ttl = ttl
	}
}

// Reset resets all counters and state
func (c *MockCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls = 0
	c.SetCalls = 0
	c.InvalidateCalls = 0
	c.SetTTLCalls = 0
	c.InitCalls = 0
	c.ShouldFail = false
	c.data = make(map[string][]*models.NodeDTO)
	c.expiry = make(map[string]time.Time)
}

// GetCallCounts returns the number of times each method was called
func (c *MockCache) GetCallCounts() (get, set, invalidate, setTTL, init int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GetCalls, c.SetCalls, c.InvalidateCalls, c.SetTTLCalls, c.InitCalls
}

// SetShouldFail makes the mock cache fail all operations
func (c *MockCache) SetShouldFail(shouldFail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ShouldFail = shouldFail
}

// ErrCacheInitialization is returned when the mock cache is configured to fail
var ErrCacheInitialization = errors.New("mock cache initialization failed")
