package model

import "errors"

var (
	// ErrNotFound is returned when the requested user has no backing record.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable wraps failures of the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidCredentials is returned for unknown users, wrong passwords
	// and tokens that no longer match the user's token version.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAvatarTooLarge is returned when an uploaded avatar exceeds the limit.
	ErrAvatarTooLarge = errors.New("avatar too large")
)

// InvalidArgumentError reports client-supplied data that breaks a business rule.
type InvalidArgumentError struct {
	Message string
}

// NewInvalidArgument creates an InvalidArgumentError with the given message.
func NewInvalidArgument(message string) *InvalidArgumentError {
	return &InvalidArgumentError{Message: message}
}

func (e *InvalidArgumentError) Error() string {
	return e.Message
}
