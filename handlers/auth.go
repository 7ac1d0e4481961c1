package handlers

import (
	"context"
	"net/http"

	"github.com/ammiranda/forest_service/models"

	"github.com/gin-gonic/gin"
)

// LoginService exchanges credentials for a token
type LoginService interface {
	Login(ctx context.Context, username, password string) (*models.TokenResponse, error)
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	login LoginService
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(login LoginService) *AuthHandler {
	return &AuthHandler{login: login}
}

// Login issues an access token for valid credentials
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.login.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		status, message := StatusFor(err)
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(http.StatusOK, token)
}
