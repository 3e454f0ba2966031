package context

import (
	"context"

	"github.com/google/uuid"

	"github.com/brewops/brewops-server/internal/model"
)

type userIDKey struct{}

var _ model.ContextManager = (*Manager)(nil)

// Manager keeps the authenticated user ID on the request context.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// WithUserID returns a copy of ctx carrying userID.
func (m *Manager) WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user ID set by WithUserID.
// A missing or nil ID reports false.
func (m *Manager) UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}
