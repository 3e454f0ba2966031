package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/brewops/brewops-server/internal/logger"
	"github.com/brewops/brewops-server/internal/model"
)

// dummyHash is compared against when the e-mail is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("brewops-dummy-password"), bcrypt.DefaultCost)

// Auth verifies credentials and owns the token version of each account.
type Auth struct {
	userStore    model.UserStore
	tokenManager model.TokenManager
	logger       *logger.Logger
}

func NewAuth(userStore model.UserStore, tokenManager model.TokenManager, logger *logger.Logger) *Auth {
	return &Auth{
		userStore:    userStore,
		tokenManager: tokenManager,
		logger:       logger,
	}
}

// Login checks the password and issues an access token bound to the
// account's current token version.
func (a *Auth) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", model.ErrInvalidCredentials
	}

	user, err := a.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			a.logger.Info("Auth service: login for unknown email", "email", email)
			return "", model.ErrInvalidCredentials
		}
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return "", fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		a.logger.Info("Auth service: password mismatch", "user_id", user.ID)
		return "", model.ErrInvalidCredentials
	}

	token, err := a.tokenManager.GenerateAccessToken(user.ID, user.TokenVersion)
	if err != nil {
		a.logger.Error("Auth service: failed to generate access token",
			"user_id", user.ID,
			"error", err.Error())
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return token, nil
}

// Authenticate maps an access token to the identity it was issued for.
// Tokens issued before the last RevokeSessions call are rejected.
func (a *Auth) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	claims, err := a.tokenManager.ParseAccessToken(token)
	if err != nil {
		a.logger.Debug("Auth service: invalid access token", "error", err.Error())
		return uuid.Nil, model.ErrInvalidCredentials
	}

	user, err := a.userStore.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return uuid.Nil, model.ErrInvalidCredentials
		}
		a.logger.Error("Auth service: failed to get user by id",
			"user_id", claims.UserID,
			"error", err.Error())
		return uuid.Nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	if user.TokenVersion != claims.TokenVersion {
		a.logger.Info("Auth service: revoked token presented",
			"user_id", user.ID,
			"token_version", claims.TokenVersion)
		return uuid.Nil, model.ErrInvalidCredentials
	}

	return user.ID, nil
}

// RevokeSessions invalidates every access token issued to the user so far.
func (a *Auth) RevokeSessions(ctx context.Context, userID uuid.UUID) error {
	version, err := a.userStore.IncrementTokenVersion(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		a.logger.Error("Auth service: failed to increment token version",
			"user_id", userID,
			"error", err.Error())
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	a.logger.Info("Auth service: sessions revoked",
		"user_id", userID,
		"token_version", version)

	return nil
}
