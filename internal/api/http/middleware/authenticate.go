package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brewops/brewops-server/internal/logger"
	"github.com/brewops/brewops-server/internal/model"
)

const (
	msgNoToken      = "No token, authorization denied"
	msgInvalidToken = "Token is not valid"
	// legacyTokenHeader is still sent by older dashboard builds.
	legacyTokenHeader = "x-auth-token"
)

// Authenticator resolves an access token to a user ID.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}

// Authenticate rejects requests without a valid access token and stores the
// caller's ID on the request context.
type Authenticate struct {
	authenticator  Authenticator
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAuthenticate(authenticator Authenticator, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{authenticator: authenticator, contextManager: contextManager, logger: logger}
}

func (m *Authenticate) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request)
		if token == "" {
			abortWithMessage(c, http.StatusUnauthorized, msgNoToken)
			return
		}

		userID, err := m.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, model.ErrInvalidCredentials) {
				abortWithMessage(c, http.StatusUnauthorized, msgInvalidToken)
				return
			}
			m.logger.Error("Authenticate middleware: failed to verify token",
				"path", c.Request.URL.Path,
				"error", err.Error())
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Server error",
				"error":   err.Error(),
			})
			return
		}

		c.Request = c.Request.WithContext(m.contextManager.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(legacyTokenHeader))
}
