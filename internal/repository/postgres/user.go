package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/brewops/brewops-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

const userColumns = `id, name, email, phone, avatar, password_hash, token_version, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w: %w", model.ErrStoreUnavailable, err)
	}

	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w: %w", model.ErrStoreUnavailable, err)
	}

	return user, nil
}

// Update applies the whitelisted fields in a single statement. Email and
// avatar keep their stored value when the update leaves them nil.
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, update model.UserUpdate) error {
	const query = `
        UPDATE users
        SET name = $2,
            phone = $3,
            email = COALESCE($4, email),
            avatar = COALESCE($5, avatar),
            updated_at = $6
        WHERE id = $1
    `

	tag, err := r.db.Exec(ctx, query, id, update.Name, update.Phone, update.Email, update.Avatar, update.UpdatedAt)
	if err != nil {
		if invalid := constraintError(err); invalid != nil {
			return invalid
		}
		return fmt.Errorf("failed to update user: %w: %w", model.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *UserRepository) SetAvatar(ctx context.Context, id uuid.UUID, avatar string, updatedAt time.Time) error {
	const query = `UPDATE users SET avatar = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, avatar, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to set avatar: %w: %w", model.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *UserRepository) IncrementTokenVersion(ctx context.Context, id uuid.UUID) (int, error) {
	const query = `
        UPDATE users
        SET token_version = token_version + 1
        WHERE id = $1
        RETURNING token_version
    `

	var version int
	if err := r.db.QueryRow(ctx, query, id).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment token version: %w: %w", model.ErrStoreUnavailable, err)
	}

	return version, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w: %w", model.ErrStoreUnavailable, err)
	}
	return nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.Avatar,
		&user.PasswordHash, &user.TokenVersion, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

// constraintError maps schema constraint violations to client errors.
func constraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case uniqueViolation:
		return model.NewInvalidArgument("Email is already in use")
	case checkViolation:
		return model.NewInvalidArgument("Name is required")
	}
	return nil
}
