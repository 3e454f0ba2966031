package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brewops/brewops-server/internal/model"
)

const (
	msgUserNotFound   = "User not found"
	msgServerError    = "Server error"
	msgInvalidBody    = "Invalid request body"
	msgUnauthorized   = "No token, authorization denied"
	msgAvatarTooLarge = "Avatar file is too large"
)

func failure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// handleError writes the response for a service error. Unclassified errors
// expose their message under "error".
func handleError(c *gin.Context, err error) {
	var invalid *model.InvalidArgumentError
	switch {
	case errors.As(err, &invalid):
		failure(c, http.StatusBadRequest, invalid.Message)
	case errors.Is(err, model.ErrNotFound):
		failure(c, http.StatusNotFound, msgUserNotFound)
	case errors.Is(err, model.ErrInvalidCredentials):
		failure(c, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, model.ErrAvatarTooLarge):
		failure(c, http.StatusRequestEntityTooLarge, msgAvatarTooLarge)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": msgServerError,
			"error":   err.Error(),
		})
	}
}
