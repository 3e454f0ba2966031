package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, id uuid.UUID, update UserUpdate) error
	SetAvatar(ctx context.Context, id uuid.UUID, avatar string, updatedAt time.Time) error
	IncrementTokenVersion(ctx context.Context, id uuid.UUID) (int, error)
	Ping(ctx context.Context) error
}

// User represents a stored account together with its server-only secrets.
// It carries no JSON tags and must never be serialized directly; use
// NewProfile to obtain a response-safe view.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        *string
	Phone        *string
	Avatar       *string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate is a whitelisted partial update applied to a single user row.
//
// Name, Phone and UpdatedAt are always written; a nil Phone clears the
// column. Email and Avatar are written only when non-nil.
type UserUpdate struct {
	Name      string
	Phone     *string
	Email     *string
	Avatar    *string
	UpdatedAt time.Time
}
