package model

import (
	"context"

	"github.com/google/uuid"
)

// ContextManager carries the identity resolved by authentication from the
// middleware to the handlers. A request without an identity reports false.
type ContextManager interface {
	WithUserID(ctx context.Context, userID uuid.UUID) context.Context
	UserIDFromContext(ctx context.Context) (uuid.UUID, bool)
}
