package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brewops/brewops-server/internal/logger"
	"github.com/brewops/brewops-server/internal/model"
)

// AuthService defines credential operations exposed over HTTP.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	RevokeSessions(ctx context.Context, userID uuid.UUID) error
}

// Auth handles login and session revocation.
type Auth struct {
	authService    AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAuth(authService AuthService, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		contextManager: contextManager,
		logger:         logger,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Auth) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}

// LogoutAll revokes every token issued to the caller, including the current one.
func (h *Auth) LogoutAll(c *gin.Context) {
	userID, ok := h.contextManager.UserIDFromContext(c.Request.Context())
	if !ok {
		failure(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	if err := h.authService.RevokeSessions(c.Request.Context(), userID); err != nil {
		handleError(c, err)
		return
	}

	h.logger.Info("Auth handler: all sessions revoked", "user_id", userID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All sessions revoked",
	})
}
