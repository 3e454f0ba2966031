package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/brewops/brewops-server/internal/logger"
	"github.com/brewops/brewops-server/internal/model"
)

const (
	avatarKeyPrefix = "avatars/"
	// sniffLen is the number of leading bytes inspected to detect the image type.
	sniffLen = 3072
)

var avatarTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Profile implements reading and updating the caller's own profile.
type Profile struct {
	userStore      model.UserStore
	storage        model.Storage
	logger         *logger.Logger
	validate       *validator.Validate
	maxAvatarBytes int64
	now            func() time.Time
}

func NewProfile(
	userStore model.UserStore,
	storage model.Storage,
	maxAvatarBytes int64,
	logger *logger.Logger,
) *Profile {
	return &Profile{
		userStore:      userStore,
		storage:        storage,
		logger:         logger,
		validate:       validator.New(),
		maxAvatarBytes: maxAvatarBytes,
		now:            time.Now,
	}
}

func (s *Profile) GetProfile(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Profile{}, model.ErrNotFound
		}
		s.logger.Error("Profile service: failed to get user",
			"user_id", userID,
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to get user: %w", err)
	}

	return model.NewProfile(user), nil
}

// UpdateProfile validates the request, writes the whitelisted fields and
// returns the stored result.
//
// Phone is cleared when absent or blank, while a blank email or avatar
// leaves the stored value untouched.
func (s *Profile) UpdateProfile(ctx context.Context, userID uuid.UUID, req model.ProfileUpdate) (model.Profile, error) {
	update, err := s.mergeUpdate(req)
	if err != nil {
		return model.Profile{}, err
	}

	if err := s.userStore.Update(ctx, userID, update); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Info("Profile service: update for unknown user",
				"user_id", userID)
			return model.Profile{}, model.ErrNotFound
		}
		var invalid *model.InvalidArgumentError
		if errors.As(err, &invalid) {
			return model.Profile{}, invalid
		}
		s.logger.Error("Profile service: failed to update user",
			"user_id", userID,
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Debug("Profile service: profile updated", "user_id", userID)

	return s.GetProfile(ctx, userID)
}

func (s *Profile) mergeUpdate(req model.ProfileUpdate) (model.UserUpdate, error) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return model.UserUpdate{}, model.NewInvalidArgument("Name is required")
	}

	update := model.UserUpdate{
		Name:      strings.TrimSpace(*req.Name),
		UpdatedAt: s.now(),
	}

	if req.Phone != nil {
		if phone := strings.TrimSpace(*req.Phone); phone != "" {
			update.Phone = &phone
		}
	}

	if req.Email != nil && *req.Email != "" {
		if err := s.validate.Var(*req.Email, "email"); err != nil {
			return model.UserUpdate{}, model.NewInvalidArgument("Invalid email format")
		}
		email := *req.Email
		update.Email = &email
	}

	if req.Avatar != nil && *req.Avatar != "" {
		avatar := *req.Avatar
		update.Avatar = &avatar
	}

	return update, nil
}

// UploadAvatar stores a new avatar image and points the profile at it.
func (s *Profile) UploadAvatar(ctx context.Context, userID uuid.UUID, upload model.AvatarUpload) (model.Profile, error) {
	if upload.Size <= 0 {
		return model.Profile{}, model.NewInvalidArgument("Avatar file is empty")
	}
	if upload.Size > s.maxAvatarBytes {
		return model.Profile{}, model.ErrAvatarTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return model.Profile{}, fmt.Errorf("failed to read avatar: %w", err)
	}
	head = head[:n]

	contentType := mimetype.Detect(head).String()
	ext, ok := avatarTypes[contentType]
	if !ok {
		return model.Profile{}, model.NewInvalidArgument("Avatar must be a PNG, JPEG, GIF or WebP image")
	}

	previous, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Profile{}, model.ErrNotFound
		}
		s.logger.Error("Profile service: failed to get user",
			"user_id", userID,
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to get user: %w", err)
	}

	key := avatarKey(userID, ext)
	body := io.MultiReader(bytes.NewReader(head), upload.Content)
	if err := s.storage.Upload(ctx, key, body, upload.Size, contentType); err != nil {
		s.logger.Error("Profile service: failed to upload avatar",
			"user_id", userID,
			"key", key,
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to upload avatar: %w", err)
	}

	if err := s.userStore.SetAvatar(ctx, userID, key, s.now()); err != nil {
		s.removeObject(ctx, userID, key)
		if errors.Is(err, model.ErrNotFound) {
			return model.Profile{}, model.ErrNotFound
		}
		s.logger.Error("Profile service: failed to set avatar",
			"user_id", userID,
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to set avatar: %w", err)
	}

	s.logger.Info("Profile service: avatar updated",
		"user_id", userID,
		"key", key,
		"filename", upload.Filename,
		"size", upload.Size)

	if previous.Avatar != nil && ownsAvatarKey(userID, *previous.Avatar) && *previous.Avatar != key {
		s.removeObject(ctx, userID, *previous.Avatar)
	}

	return s.GetProfile(ctx, userID)
}

// GetAvatar opens the caller's stored avatar image.
func (s *Profile) GetAvatar(ctx context.Context, userID uuid.UUID) (model.Avatar, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Avatar{}, model.ErrNotFound
		}
		s.logger.Error("Profile service: failed to get user",
			"user_id", userID,
			"error", err.Error())
		return model.Avatar{}, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Avatar == nil || !ownsAvatarKey(userID, *user.Avatar) {
		return model.Avatar{}, model.ErrNotFound
	}

	content, err := s.storage.Download(ctx, *user.Avatar)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Avatar{}, model.ErrNotFound
		}
		s.logger.Error("Profile service: failed to download avatar",
			"user_id", userID,
			"key", *user.Avatar,
			"error", err.Error())
		return model.Avatar{}, fmt.Errorf("failed to download avatar: %w", err)
	}

	return model.Avatar{
		Content:     content,
		ContentType: contentTypeForKey(*user.Avatar),
	}, nil
}

func (s *Profile) removeObject(ctx context.Context, userID uuid.UUID, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Profile service: failed to delete avatar object",
			"user_id", userID,
			"key", key,
			"error", err.Error())
	}
}

func avatarKey(userID uuid.UUID, ext string) string {
	return avatarKeyPrefix + userID.String() + "/" + uuid.NewString() + ext
}

func ownsAvatarKey(userID uuid.UUID, key string) bool {
	return strings.HasPrefix(key, avatarKeyPrefix+userID.String()+"/")
}

func contentTypeForKey(key string) string {
	ext := path.Ext(key)
	for contentType, e := range avatarTypes {
		if e == ext {
			return contentType
		}
	}
	return "application/octet-stream"
}
