package handler

import (
	"context"

	"github.com/erp/taxsync/internal/application/auth"
	"github.com/gin-gonic/gin"
)

// SessionService defines the session operations the handler needs
type SessionService interface {
	Authenticate(ctx context.Context, input auth.AuthenticateInput) (*auth.SessionDescriptor, error)
	Logout(ctx context.Context, tenantID string) (*auth.LogoutResult, error)
	GetStatus(ctx context.Context, tenantID string) (*auth.Status, error)
	ValidateToken(ctx context.Context, token string) (*auth.TokenInfo, error)
}

// AuthHandler handles session lifecycle API endpoints
type AuthHandler struct {
	BaseHandler
	service SessionService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service SessionService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/authenticate", h.Authenticate)
		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/validate", h.ValidateToken)
		authGroup.GET("/status/:tenantId", h.GetStatus)
	}
}

// Authenticate establishes or reuses a session for a tenant
func (h *AuthHandler) Authenticate(c *gin.Context) {
	var req AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	descriptor, err := h.service.Authenticate(c.Request.Context(), auth.AuthenticateInput{
		TenantID:    req.TenantID,
		Credentials: req.Credentials.toDomain(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, descriptor)
}

// Logout revokes every active session for a tenant
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Logout(c.Request.Context(), req.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetStatus reports session liveness and remote reachability for a tenant
func (h *AuthHandler) GetStatus(c *gin.Context) {
	status, err := h.service.GetStatus(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}

// ValidateToken reports what is known about a token
func (h *AuthHandler) ValidateToken(c *gin.Context) {
	var req ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	info, err := h.service.ValidateToken(c.Request.Context(), req.Token)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, info)
}
