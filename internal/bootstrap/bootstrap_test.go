package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ammiranda/forest_service/cache"
	"github.com/ammiranda/forest_service/config"
	"github.com/ammiranda/forest_service/models"
	"github.com/ammiranda/forest_service/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewProviderPrefersFile(t *testing.T) {
	path := writeConfig(t, "APP_ENV: development\nPORT: 9090\n")

	provider, err := NewProvider(context.Background(), path)
	require.NoError(t, err)
	assert.IsType(t, &config.FileProvider{}, provider)

	port, err := provider.GetInt(context.Background(), "PORT")
	require.NoError(t, err)
	assert.Equal(t, 9090, port)
}

func TestNewProviderFallsBackToEnv(t *testing.T) {
	t.Setenv("AWS_SECRET_NAME", "")

	provider, err := NewProvider(context.Background(), "")
	require.NoError(t, err)
	assert.IsType(t, &config.EnvProvider{}, provider)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(config.Development, &buf).Debug("visible", "k", "v")
	assert.Contains(t, buf.String(), "msg=visible")

	buf.Reset()
	logger := NewLogger(config.Production, &buf)
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Info("structured", "k", "v")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "structured", line["msg"])
	assert.Equal(t, "v", line["k"])
}

func TestNewRepository(t *testing.T) {
	ctx := context.Background()
	logger := NewLogger(config.Development, io.Discard)

	repo, err := NewRepository(ctx, nil, &config.ServerConfig{StorageDriver: config.StorageMemory}, logger)
	require.NoError(t, err)
	assert.IsType(t, &repository.MemoryRepository{}, repo)

	repo, err = NewRepository(ctx, nil, &config.ServerConfig{
		StorageDriver: config.StorageSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "forest.db"),
	}, logger)
	require.NoError(t, err)
	assert.IsType(t, &repository.SQLiteRepository{}, repo)

	_, err = NewRepository(ctx, nil, &config.ServerConfig{StorageDriver: "cassandra"}, logger)
	assert.Error(t, err)
}

func TestOpenRepositoryInitializesSQLite(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenRepository(ctx, nil, &config.ServerConfig{
		StorageDriver: config.StorageSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "forest.db"),
	}, NewLogger(config.Development, io.Discard))
	require.NoError(t, err)
	defer repo.Cleanup(ctx)

	found, err := repo.Get(ctx, "Root")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestNewWiresApp(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, writeConfig(t, strings.Join([]string{
		"APP_ENV: development",
		"STORAGE_DRIVER: memory",
		"CACHE_BACKEND: memory",
		"RATE_LIMIT_PER_MINUTE: 60",
	}, "\n")))
	require.NoError(t, err)

	app, err := New(ctx, provider, NewLogger(config.Development, io.Discard))
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Close(ctx)) }()

	assert.Equal(t, config.StorageMemory, app.Server.StorageDriver)
	assert.IsType(t, &cache.MemoryCache{}, app.Cache)
	require.NotNil(t, app.Limiter)

	seeded, err := app.Service.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	router := app.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	body, _ := json.Marshal(models.LoginRequest{Username: "admin", Password: "admin"})
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var token models.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))
	require.NotEmpty(t, token.AccessToken)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/nodes/Root", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewFallsBackWithoutCache(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, writeConfig(t, strings.Join([]string{
		"APP_ENV: development",
		"STORAGE_DRIVER: memory",
		"CACHE_BACKEND: redis",
		"REDIS_HOST: 127.0.0.1",
		"REDIS_PORT: 1",
		"RATE_LIMIT_PER_MINUTE: 0",
	}, "\n")))
	require.NoError(t, err)

	app, err := New(ctx, provider, NewLogger(config.Development, io.Discard))
	require.NoError(t, err)
	defer app.Close(ctx)

	assert.Equal(t, cache.NoopCache{}, app.Cache)
	assert.Nil(t, app.Limiter)
}

func TestNewRejectsInvalidServerConfig(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, writeConfig(t, "APP_ENV: development\nSTORAGE_DRIVER: cassandra\n"))
	require.NoError(t, err)

	_, err = New(ctx, provider, NewLogger(config.Development, io.Discard))
	assert.Error(t, err)
}
