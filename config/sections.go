package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by ServerConfig.StorageDriver
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageNeo4j    = "neo4j"
)

// Cache backends accepted by CacheConfig.Backend
const (
	CacheNone     = "none"
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CacheDynamoDB = "dynamodb"
)

// ServerConfig holds process level settings
type ServerConfig struct {
	Port          int
	StorageDriver string
	SQLitePath    string
	// RequestsPerMinute limits each client IP; zero disables the limiter
	RequestsPerMinute int
}

// Validate checks if the server configuration is valid
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return &ValidationError{Field: "Port", Message: "port must be between 1 and 65535"}
	}
	switch c.StorageDriver {
	case StorageMemory, StorageSQLite, StoragePostgres, StorageNeo4j:
	default:
		return &ValidationError{Field: "StorageDriver", Message: fmt.Sprintf("unknown storage driver %q", c.StorageDriver)}
	}
	if c.RequestsPerMinute < 0 {
		return &ValidationError{Field: "RequestsPerMinute", Message: "requests per minute cannot be negative"}
	}
	return nil
}

// GetServerConfig retrieves server configuration using the provided config provider
func GetServerConfig(ctx context.Context, provider Provider) (*ServerConfig, error) {
	cfg := &ServerConfig{
		Port:              intOr(ctx, provider, "PORT", 8080),
		StorageDriver:     strings.ToLower(stringOr(ctx, provider, "STORAGE_DRIVER", StorageMemory)),
		SQLitePath:        stringOr(ctx, provider, "SQLITE_PATH", ""),
		RequestsPerMinute: intOr(ctx, provider, "RATE_LIMIT_PER_MINUTE", 120),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	return cfg, nil
}

// AuthConfig holds token issuing settings and the credential table
type AuthConfig struct {
	Issuer   string
	Audience string
	Key      string
	Lifetime time.Duration
	// Users is the raw AUTH_USERS value: "name:bcrypt-hash:Role,..."
	Users string
}

// Validate checks if the auth configuration is valid
func (c *AuthConfig) Validate(env Environment) error {
	if len(c.Key) < 32 {
		return &ValidationError{Field: "Key", Message: "signing key must be at least 32 characters long"}
	}
	if c.Lifetime <= 0 {
		return &ValidationError{Field: "Lifetime", Message: "token lifetime must be positive"}
	}
	if env == Production && c.Users == "" {
		return &ValidationError{Field: "Users", Message: "a user table is required in production"}
	}
	return nil
}

// GetAuthConfig retrieves auth configuration using the provided config provider
func GetAuthConfig(ctx context.Context, provider Provider) (*AuthConfig, error) {
	key, err := provider.GetSecret(ctx, "JWT_KEY")
	if err != nil {
		if provider.GetEnvironment() != Development {
			return nil, fmt.Errorf("failed to get JWT_KEY: %w", err)
		}
		key = "development-only-signing-key-change-me"
	}

	users, err := provider.GetSecret(ctx, "AUTH_USERS")
	if err != nil {
		users = ""
	}

	cfg := &AuthConfig{
		Issuer:   stringOr(ctx, provider, "JWT_ISSUER", "ForestOwner"),
		Audience: stringOr(ctx, provider, "JWT_AUDIENCE", "ForestUsers"),
		Key:      key,
		Lifetime: time.Duration(intOr(ctx, provider, "JWT_LIFETIME_MINUTES", 15)) * time.Minute,
		Users:    users,
	}
	if err := cfg.Validate(provider.GetEnvironment()); err != nil {
		return nil, fmt.Errorf("invalid auth configuration: %w", err)
	}
	return cfg, nil
}

// Neo4jConfig holds graph database connection settings
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// Validate checks if the neo4j configuration is valid
func (c *Neo4jConfig) Validate() error {
	if c.URI == "" {
		return &ValidationError{Field: "URI", Message: "uri cannot be empty"}
	}
	if !strings.Contains(c.URI, "://") {
		return &ValidationError{Field: "URI", Message: "uri must include a scheme such as bolt:// or neo4j://"}
	}
	if c.User == "" {
		return &ValidationError{Field: "User", Message: "user cannot be empty"}
	}
	return nil
}

// GetNeo4jConfig retrieves neo4j configuration using the provided config provider
func GetNeo4jConfig(ctx context.Context, provider Provider) (*Neo4jConfig, error) {
	uri, err := provider.GetString(ctx, "NEO4J_URI")
	if err != nil {
		return nil, fmt.Errorf("failed to get NEO4J_URI: %w", err)
	}
	password, err := provider.GetSecret(ctx, "NEO4J_PASSWORD")
	if err != nil {
		return nil, fmt.Errorf("failed to get NEO4J_PASSWORD: %w", err)
	}
	cfg := &Neo4jConfig{
		URI:      uri,
		User:     stringOr(ctx, provider, "NEO4J_USER", "neo4j"),
		Password: password,
		Database: stringOr(ctx, provider, "NEO4J_DATABASE", ""),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid neo4j configuration: %w", err)
	}
	return cfg, nil
}

// CacheConfig selects and configures the projection cache
type CacheConfig struct {
	Backend   string
	RedisAddr string
	TTL       time.Duration
}

// Validate checks if the cache configuration is valid
func (c *CacheConfig) Validate() error {
	switch c.Backend {
	case CacheNone, CacheMemory, CacheDynamoDB:
	case CacheRedis:
		if c.RedisAddr == "" {
			return &ValidationError{Field: "RedisAddr", Message: "redis address cannot be empty"}
		}
	default:
		return &ValidationError{Field: "Backend", Message: fmt.Sprintf("unknown cache backend %q", c.Backend)}
	}
	if c.TTL <= 0 {
		return &ValidationError{Field: "TTL", Message: "cache ttl must be positive"}
	}
	return nil
}

// GetCacheConfig retrieves cache configuration using the provided config provider.
// Without CACHE_BACKEND, Redis is used when REDIS_HOST is set and memory otherwise.
func GetCacheConfig(ctx context.Context, provider Provider) (*CacheConfig, error) {
	redisHost := stringOr(ctx, provider, "REDIS_HOST", "")
	backend := CacheMemory
	if redisHost != "" {
		backend = CacheRedis
	}
	backend = strings.ToLower(stringOr(ctx, provider, "CACHE_BACKEND", backend))
	if redisHost == "" {
		redisHost = "localhost"
	}

	cfg := &CacheConfig{
		Backend:   backend,
		RedisAddr: fmt.Sprintf("%s:%d", redisHost, intOr(ctx, provider, "REDIS_PORT", 6379)),
		TTL:       time.Duration(intOr(ctx, provider, "CACHE_TTL_SECONDS", 300)) * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache configuration: %w", err)
	}
	return cfg, nil
}

// stringOr returns the value for key, or def when it is not set
func stringOr(ctx context.Context, provider Provider, key, def string) string {
	value, err := provider.GetString(ctx, key)
	if err != nil || value == "" {
		return def
	}
	return value
}

// intOr returns the integer value for key, or def when it is not set or malformed
func intOr(ctx context.Context, provider Provider, key string, def int) int {
	value, err := provider.GetString(ctx, key)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return n
}
