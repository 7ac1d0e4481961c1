package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/ammiranda/forest_service/auth"
	"github.com/ammiranda/forest_service/config"
	"github.com/ammiranda/forest_service/models"
	"github.com/ammiranda/forest_service/repository"
	"github.com/ammiranda/forest_service/service"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandler(t *testing.T) (*Handler, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	require.NoError(t, repo.Initialize(context.Background()))

	verifier, err := auth.NewStaticVerifier("", config.Development)
	require.NoError(t, err)
	tokens := auth.NewTokenService(&config.AuthConfig{
		Issuer:   "ForestOwner",
		Audience: "ForestUsers",
		Key:      "0123456789abcdef0123456789abcdef",
		Lifetime: 15 * time.Minute,
	})

	h := NewHandler(service.NewHierarchyService(repo, repo), auth.NewAuthenticator(verifier, tokens), tokens, nil)
	return h, repo
}

func login(t *testing.T, h *Handler, username, password string) string {
	t.Helper()
	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/auth/login",
		Body:       fmt.Sprintf(`{"username":%q,"password":%q}`, username, password),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var token models.TokenResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &token))
	return token.AccessToken
}

func call(t *testing.T, h *Handler, method, path, token, body string, query map[string]string) events.APIGatewayProxyResponse {
	t.Helper()
	req := events.APIGatewayProxyRequest{
		HTTPMethod:            method,
		Path:                  path,
		Body:                  body,
		QueryStringParameters: query,
		Headers:               map[string]string{},
	}
	if token != "" {
		req.Headers["authorization"] = "Bearer " + token
	}
	resp, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func TestHandlerScenario(t *testing.T) {
	h, repo := setupHandler(t)
	admin := login(t, h, "admin", "admin")
	reader := login(t, h, "user", "user")

	resp := call(t, h, http.MethodPost, "/api/nodes", admin, `{"name":"Root"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)
	var root models.NodeDTO
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &root))

	resp = call(t, h, http.MethodPost, "/api/nodes", admin, fmt.Sprintf(`{"name":"Child 1","parentId":%q}`, root.ID), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)

	resp = call(t, h, http.MethodPost, "/api/nodes", admin, fmt.Sprintf(`{"name":"Orphan","parentId":%q}`, uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 2, repo.Len())

	resp = call(t, h, http.MethodGet, "/api/nodes/Root", reader, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%q,"name":"Root","parentId":null}`, root.ID), resp.Body)

	resp = call(t, h, http.MethodGet, "/api/nodes/Child%201", reader, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, h, http.MethodGet, "/api/nodes", reader, "", map[string]string{"search": "child"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found []models.NodeDTO
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &found))
	assert.Len(t, found, 1)

	resp = call(t, h, http.MethodGet, "/api/tree", reader, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var forest []models.TreeNode
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &forest))
	require.Len(t, forest, 1)
	assert.Len(t, forest[0].Children, 1)
}

func TestHandlerErrors(t *testing.T) {
	h, _ := setupHandler(t)
	admin := login(t, h, "admin", "admin")
	reader := login(t, h, "user", "user")

	resp := call(t, h, http.MethodGet, "/api/tree", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = call(t, h, http.MethodPost, "/api/nodes", reader, `{"name":"Root"}`, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(t, h, http.MethodPost, "/api/nodes", admin, `{"name":"  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, h, http.MethodPost, "/api/nodes", admin, `{`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, h, http.MethodGet, "/api/nodes/Missing", reader, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = call(t, h, http.MethodDelete, "/api/nodes", admin, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = call(t, h, http.MethodPost, "/api/auth/login", "", `{"username":"admin","password":"bad"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = call(t, h, http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
