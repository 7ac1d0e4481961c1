package lambda

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ammiranda/forest_service/auth"
	"github.com/ammiranda/forest_service/handlers"
	"github.com/ammiranda/forest_service/models"

	"github.com/aws/aws-lambda-go/events"
)

// TokenParser validates a bearer token
type TokenParser interface {
	Parse(token string) (auth.Principal, error)
}

// Handler represents the Lambda handler with its dependencies
type Handler struct {
	nodes  handlers.NodeService
	login  handlers.LoginService
	tokens TokenParser
	logger *slog.Logger
}

// NewHandler creates a new Handler over the hierarchy service and authenticator
func NewHandler(nodes handlers.NodeService, login handlers.LoginService, tokens TokenParser, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		nodes:  nodes,
		login:  login,
		tokens: tokens,
		logger: logger,
	}
}

// Handle processes API Gateway events
func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := strings.TrimSuffix(request.Path, "/")

	switch {
	case request.HTTPMethod == http.MethodGet && path == "/healthz":
		return respond(http.StatusOK, map[string]string{"status": "ok"}), nil
	case request.HTTPMethod == http.MethodPost && path == "/api/auth/login":
		return h.handleLogin(ctx, request), nil
	case request.HTTPMethod == http.MethodGet && path == "/api/tree":
		return h.authorized(request, h.handleGetTree, auth.RoleReader)(ctx), nil
	case request.HTTPMethod == http.MethodGet && path == "/api/nodes":
		return h.authorized(request, h.handleSearch, auth.RoleReader)(ctx), nil
	case request.HTTPMethod == http.MethodPost && path == "/api/nodes":
		return h.authorized(request, h.handleCreateNode, auth.RoleAdmin)(ctx), nil
	case request.HTTPMethod == http.MethodGet && strings.HasPrefix(path, "/api/nodes/"):
		return h.authorized(request, h.handleGetNode, auth.RoleReader)(ctx), nil
	default:
		return errorResponse(http.StatusNotFound, "not found"), nil
	}
}

type route func(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse

// authorized checks the bearer token and role before calling next
func (h *Handler) authorized(request events.APIGatewayProxyRequest, next route, role auth.Role) func(ctx context.Context) events.APIGatewayProxyResponse {
	return func(ctx context.Context) events.APIGatewayProxyResponse {
		header := headerValue(request.Headers, "Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return errorResponse(http.StatusUnauthorized, "missing bearer token")
		}
		principal, err := h.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			return errorResponse(http.StatusUnauthorized, "invalid or expired token")
		}
		if !principal.Role.Allows(role) {
			return errorResponse(http.StatusForbidden, "forbidden")
		}
		return next(ctx, request)
	}
}

func (h *Handler) handleLogin(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var req models.LoginRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return errorResponse(http.StatusBadRequest, err.Error())
	}

	token, err := h.login.Login(ctx, req.Username, req.Password)
	if err != nil {
		return h.fail(ctx, err)
	}
	return respond(http.StatusOK, token)
}

func (h *Handler) handleGetNode(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	name := request.PathParameters["name"]
	if name == "" {
		raw := strings.TrimPrefix(strings.TrimSuffix(request.Path, "/"), "/api/nodes/")
		unescaped, err := url.PathUnescape(raw)
		if err != nil {
			return errorResponse(http.StatusBadRequest, "invalid node name")
		}
		name = unescaped
	}

	node, err := h.nodes.Get(ctx, name)
	if err != nil {
		return h.fail(ctx, err)
	}
	return respond(http.StatusOK, node)
}

func (h *Handler) handleSearch(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	nodes, err := h.nodes.Search(ctx, request.QueryStringParameters["search"])
	if err != nil {
		return h.fail(ctx, err)
	}
	return respond(http.StatusOK, nodes)
}

func (h *Handler) handleGetTree(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	forest, err := h.nodes.Forest(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}
	return respond(http.StatusOK, forest)
}

func (h *Handler) handleCreateNode(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var req models.CreateNodeRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return errorResponse(http.StatusBadRequest, err.Error())
	}

	node, err := h.nodes.Create(ctx, req.Name, req.ParentID)
	if err != nil {
		return h.fail(ctx, err)
	}
	return respond(http.StatusCreated, node)
}

func (h *Handler) fail(ctx context.Context, err error) events.APIGatewayProxyResponse {
	status, message := handlers.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed", "error", err)
	}
	return errorResponse(status, message)
}

func respond(status int, body any) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "internal error")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}
}

func errorResponse(status int, message string) events.APIGatewayProxyResponse {
	data, _ := json.Marshal(map[string]string{"error": message})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}
}

// headerValue looks a header up case-insensitively
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
