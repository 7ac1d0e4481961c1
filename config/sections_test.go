package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapProvider serves configuration from a map
type mapProvider struct {
	env    Environment
	values map[string]string
}

func (m *mapProvider) GetString(ctx context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok || v == "" {
		return "", ErrKeyNotSet
	}
	return v, nil
}

func (m *mapProvider) GetInt(ctx context.Context, key string) (int, error) {
	return intOr(ctx, m, key, 0), nil
}

func (m *mapProvider) GetBool(ctx context.Context, key string) (bool, error) {
	return m.values[key] == "true", nil
}

func (m *mapProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return m.GetString(ctx, key)
}

func (m *mapProvider) GetEnvironment() Environment { return m.env }

func newMapProvider(env Environment, values map[string]string) *mapProvider {
	return &mapProvider{env: env, values: values}
}

func TestGetServerConfigDefaults(t *testing.T) {
	cfg, err := GetServerConfig(context.Background(), newMapProvider(Development, nil))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 120, cfg.RequestsPerMinute)
}

func TestGetServerConfig(t *testing.T) {
	cfg, err := GetServerConfig(context.Background(), newMapProvider(Development, map[string]string{
		"PORT":                  "9000",
		"STORAGE_DRIVER":        "SQLite",
		"SQLITE_PATH":           "/tmp/forest.db",
		"RATE_LIMIT_PER_MINUTE": "0",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, StorageSQLite, cfg.StorageDriver)
	assert.Equal(t, "/tmp/forest.db", cfg.SQLitePath)
	assert.Equal(t, 0, cfg.RequestsPerMinute)

	_, err = GetServerConfig(context.Background(), newMapProvider(Development, map[string]string{"STORAGE_DRIVER": "mongo"}))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "StorageDriver", verr.Field)
}

func TestGetAuthConfig(t *testing.T) {
	ctx := context.Background()

	cfg, err := GetAuthConfig(ctx, newMapProvider(Development, nil))
	require.NoError(t, err)
	assert.Equal(t, "ForestOwner", cfg.Issuer)
	assert.Equal(t, "ForestUsers", cfg.Audience)
	assert.Equal(t, 15*time.Minute, cfg.Lifetime)
	assert.GreaterOrEqual(t, len(cfg.Key), 32)

	// outside development a key is mandatory
	_, err = GetAuthConfig(ctx, newMapProvider(Staging, nil))
	assert.Error(t, err)

	_, err = GetAuthConfig(ctx, newMapProvider(Development, map[string]string{"JWT_KEY": "short"}))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Key", verr.Field)

	// production needs a user table
	_, err = GetAuthConfig(ctx, newMapProvider(Production, map[string]string{"JWT_KEY": "0123456789abcdef0123456789abcdef"}))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Users", verr.Field)

	cfg, err = GetAuthConfig(ctx, newMapProvider(Production, map[string]string{
		"JWT_KEY":              "0123456789abcdef0123456789abcdef",
		"JWT_LIFETIME_MINUTES": "60",
		"AUTH_USERS":           "admin:$2a$10$hash:Admin",
	}))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Lifetime)
}

func TestGetNeo4jConfig(t *testing.T) {
	ctx := context.Background()

	_, err := GetNeo4jConfig(ctx, newMapProvider(Development, nil))
	assert.ErrorIs(t, err, ErrKeyNotSet)

	cfg, err := GetNeo4jConfig(ctx, newMapProvider(Development, map[string]string{
		"NEO4J_URI":      "bolt://localhost:7687",
		"NEO4J_PASSWORD": "password",
	}))
	require.NoError(t, err)
	assert.Equal(t, "neo4j", cfg.User)

	_, err = GetNeo4jConfig(ctx, newMapProvider(Development, map[string]string{
		"NEO4J_URI":      "localhost:7687",
		"NEO4J_PASSWORD": "password",
	}))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "URI", verr.Field)
}

func TestGetCacheConfig(t *testing.T) {
	ctx := context.Background()

	cfg, err := GetCacheConfig(ctx, newMapProvider(Development, nil))
	require.NoError(t, err)
	assert.Equal(t, CacheMemory, cfg.Backend)
	assert.Equal(t, 5*time.Minute, cfg.TTL)

	cfg, err = GetCacheConfig(ctx, newMapProvider(Development, map[string]string{"REDIS_HOST": "cache.internal"}))
	require.NoError(t, err)
	assert.Equal(t, CacheRedis, cfg.Backend)
	assert.Equal(t, "cache.internal:6379", cfg.RedisAddr)

	cfg, err = GetCacheConfig(ctx, newMapProvider(Development, map[string]string{
		"REDIS_HOST":        "cache.internal",
		"CACHE_BACKEND":     "none",
		"CACHE_TTL_SECONDS": "30",
	}))
	require.NoError(t, err)
	assert.Equal(t, CacheNone, cfg.Backend)
	assert.Equal(t, 30*time.Second, cfg.TTL)

	_, err = GetCacheConfig(ctx, newMapProvider(Development, map[string]string{"CACHE_TTL_SECONDS": "0"}))
	assert.Error(t, err)
}
