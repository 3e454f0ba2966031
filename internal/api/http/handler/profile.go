package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brewops/brewops-server/internal/logger"
	"github.com/brewops/brewops-server/internal/model"
)

const (
	avatarFormField = "avatar"
	// multipartOverhead covers boundaries and part headers around the file.
	multipartOverhead = 64 << 10
)

// ProfileService defines the profile operations exposed over HTTP.
type ProfileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (model.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update model.ProfileUpdate) (model.Profile, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, upload model.AvatarUpload) (model.Profile, error)
	GetAvatar(ctx context.Context, userID uuid.UUID) (model.Avatar, error)
}

// Profile handles the caller's own profile endpoints.
type Profile struct {
	profileService ProfileService
	contextManager model.ContextManager
	maxAvatarBytes int64
	logger         *logger.Logger
}

func NewProfile(profileService ProfileService, contextManager model.ContextManager, maxAvatarBytes int64, logger *logger.Logger) *Profile {
	return &Profile{
		profileService: profileService,
		contextManager: contextManager,
		maxAvatarBytes: maxAvatarBytes,
		logger:         logger,
	}
}

type updateProfileRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
	Avatar *string `json:"avatar"`
}

// GetProfile returns the profile both nested under "profile" and flattened
// into the top-level object.
func (h *Profile) GetProfile(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	body := gin.H{
		"success": true,
		"profile": profile,
	}
	for k, v := range profile.Fields() {
		body[k] = v
	}

	c.JSON(http.StatusOK, body)
}

func (h *Profile) UpdateProfile(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	// An empty body is treated as an empty update so that it fails name validation.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Debug("Profile handler: malformed update body",
			"user_id", userID,
			"error", err.Error())
		failure(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	profile, err := h.profileService.UpdateProfile(c.Request.Context(), userID, model.ProfileUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Avatar: req.Avatar,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile updated successfully",
		"profile": profile,
	})
}

func (h *Profile) UploadAvatar(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxAvatarBytes+multipartOverhead)

	fileHeader, err := c.FormFile(avatarFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			failure(c, http.StatusRequestEntityTooLarge, msgAvatarTooLarge)
			return
		}
		failure(c, http.StatusBadRequest, "Avatar file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Profile handler: failed to open uploaded avatar",
			"user_id", userID,
			"error", err.Error())
		handleError(c, err)
		return
	}
	defer file.Close()

	profile, err := h.profileService.UploadAvatar(c.Request.Context(), userID, model.AvatarUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  file,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Avatar updated successfully",
		"profile": profile,
	})
}

func (h *Profile) GetAvatar(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	avatar, err := h.profileService.GetAvatar(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			failure(c, http.StatusNotFound, "Avatar not found")
			return
		}
		handleError(c, err)
		return
	}
	defer avatar.Content.Close()

	c.Header("Cache-Control", "private, max-age=300")
	c.DataFromReader(http.StatusOK, -1, avatar.ContentType, avatar.Content, nil)
}

func (h *Profile) userID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := h.contextManager.UserIDFromContext(c.Request.Context())
	if !ok {
		failure(c, http.StatusUnauthorized, msgUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}
