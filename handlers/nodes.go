package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ammiranda/forest_service/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NodeService is the set of hierarchy operations served over HTTP
type NodeService interface {
	Get(ctx context.Context, name string) (*models.NodeDTO, error)
	Create(ctx context.Context, name string, parentID *uuid.UUID) (*models.NodeDTO, error)
	Search(ctx context.Context, text string) ([]*models.NodeDTO, error)
	Forest(ctx context.Context) ([]*models.TreeNode, error)
}

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	service NodeService
	logger  *slog.Logger
}

// NewNodeHandler creates a new NodeHandler instance
func NewNodeHandler(service NodeService, logger *slog.Logger) *NodeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NodeHandler{
		service: service,
		logger:  logger,
	}
}

// GetNode returns the node with the name given in the path
func (h *NodeHandler) GetNode(c *gin.Context) {
	node, err := h.service.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// SearchNodes returns nodes whose name contains the search query parameter
func (h *NodeHandler) SearchNodes(c *gin.Context) {
	nodes, err := h.service.Search(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nodes)
}

// CreateNode creates a new node in the forest
func (h *NodeHandler) CreateNode(c *gin.Context) {
	var req models.CreateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.service.Create(c.Request.Context(), req.Name, req.ParentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

// GetTree returns every tree in the forest
func (h *NodeHandler) GetTree(c *gin.Context) {
	forest, err := h.service.Forest(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, forest)
}

func (h *NodeHandler) fail(c *gin.Context, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": message})
}
