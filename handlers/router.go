package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ammiranda/forest_service/auth"
	"github.com/ammiranda/forest_service/middleware"

	"github.com/gin-gonic/gin"
)

// RouterConfig holds everything NewRouter wires together
type RouterConfig struct {
	Nodes   NodeService
	Login   LoginService
	Tokens  middleware.TokenParser
	Logger  *slog.Logger
	Limiter *middleware.IPRateLimiter
}

// NewRouter builds the gin engine serving the API
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	if cfg.Limiter != nil {
		r.Use(middleware.RateLimit(cfg.Limiter))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	nodes := NewNodeHandler(cfg.Nodes, logger)
	authHandler := NewAuthHandler(cfg.Login)

	api := r.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)

		secured := api.Group("", middleware.Authenticate(cfg.Tokens))
		readers := secured.Group("", middleware.RequireRole(auth.RoleReader, auth.RoleAdmin))
		readers.GET("/nodes/:name", nodes.GetNode)
		readers.GET("/nodes", nodes.SearchNodes)
		readers.GET("/tree", nodes.GetTree)

		admins := secured.Group("", middleware.RequireRole(auth.RoleAdmin))
		admins.POST("/nodes", nodes.CreateNode)
	}

	return r
}
