package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ammiranda/forest_service/auth"
	"github.com/ammiranda/forest_service/cache"
	"github.com/ammiranda/forest_service/config"
	"github.com/ammiranda/forest_service/handlers"
	"github.com/ammiranda/forest_service/middleware"
	"github.com/ammiranda/forest_service/repository"
	"github.com/ammiranda/forest_service/service"

	"github.com/gin-gonic/gin"
)

// NewProvider picks the configuration source: a config file when path is
// set, AWS Secrets Manager when AWS_SECRET_NAME is set, else the environment.
func NewProvider(ctx context.Context, path string) (config.Provider, error) {
	if path != "" {
		return config.NewFileProvider(path)
	}
	if os.Getenv("AWS_SECRET_NAME") != "" {
		return config.NewAWSConfigProvider(ctx)
	}
	return config.NewEnvProvider(""), nil
}

// NewLogger builds the process logger: text in development, JSON elsewhere
func NewLogger(env config.Environment, w io.Writer) *slog.Logger {
	if env == config.Development {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// NewRepository creates the storage backend named by cfg without initializing it
func NewRepository(ctx context.Context, provider config.Provider, cfg *config.ServerConfig, logger *slog.Logger) (repository.Repository, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return repository.NewMemoryRepository(), nil
	case config.StorageSQLite:
		return repository.NewSQLiteRepository(cfg.SQLitePath, logger), nil
	case config.StoragePostgres:
		return repository.NewPostgresRepository(ctx, provider, logger)
	case config.StorageNeo4j:
		return repository.NewNeo4jRepository(ctx, provider, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// OpenRepository creates and initializes the configured storage backend
func OpenRepository(ctx context.Context, provider config.Provider, cfg *config.ServerConfig, logger *slog.Logger) (repository.Repository, error) {
	repo, err := NewRepository(ctx, provider, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := repo.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", cfg.StorageDriver, err)
	}
	return repo, nil
}

// App holds the wired application
type App struct {
	Server  *config.ServerConfig
	Logger  *slog.Logger
	Repo    repository.Repository
	Cache   cache.CacheProvider
	Service *service.HierarchyService
	Auth    *auth.Authenticator
	Limiter *middleware.IPRateLimiter
}

// New wires storage, cache, service and authentication from provider
func New(ctx context.Context, provider config.Provider, logger *slog.Logger) (*App, error) {
	serverCfg, err := config.GetServerConfig(ctx, provider)
	if err != nil {
		return nil, err
	}
	cacheCfg, err := config.GetCacheConfig(ctx, provider)
	if err != nil {
		return nil, err
	}
	authCfg, err := config.GetAuthConfig(ctx, provider)
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewStaticVerifier(authCfg.Users, provider.GetEnvironment())
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	repo, err := OpenRepository(ctx, provider, serverCfg, logger)
	if err != nil {
		return nil, err
	}

	projections, err := cache.New(ctx, cacheCfg, logger)
	if err != nil {
		// the service works without a cache
		logger.WarnContext(ctx, "cache unavailable, continuing without it", "backend", cacheCfg.Backend, "error", err)
		projections = cache.NoopCache{}
	}

	app := &App{
		Server:  serverCfg,
		Logger:  logger,
		Repo:    repo,
		Cache:   projections,
		Service: service.NewHierarchyService(repo, repo, service.WithCache(projections), service.WithLogger(logger)),
		Auth:    auth.NewAuthenticator(verifier, auth.NewTokenService(authCfg)),
	}
	if serverCfg.RequestsPerMinute > 0 {
		app.Limiter = middleware.NewIPRateLimiter(serverCfg.RequestsPerMinute, serverCfg.RequestsPerMinute/2)
	}
	return app, nil
}

// Router returns the HTTP router for the app
func (a *App) Router() *gin.Engine {
	return handlers.NewRouter(handlers.RouterConfig{
		Nodes:   a.Service,
		Login:   a.Auth,
		Tokens:  a.Auth.Tokens(),
		Logger:  a.Logger,
		Limiter: a.Limiter,
	})
}

// Close releases the storage and cache connections
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if closer, ok := a.Cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache: %w", err))
		}
	}
	if err := a.Repo.Cleanup(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to clean up repository: %w", err))
	}
	return errors.Join(errs...)
}
