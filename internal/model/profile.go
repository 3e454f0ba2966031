package model

import (
	"time"

	"github.com/google/uuid"
)

// ProfileUpdate is the client-supplied profile change. A nil field was not
// present in the request.
type ProfileUpdate struct {
	Name   *string
	Email  *string
	Phone  *string
	Avatar *string
}

// Profile is the externally observable projection of a User.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProfile copies the allow-listed fields of u. Password hash and token
// version are never copied.
func NewProfile(u User) Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     cloneString(u.Email),
		Phone:     cloneString(u.Phone),
		Avatar:    cloneString(u.Avatar),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Fields returns the profile as a flat key/value set using the same keys
// as its JSON encoding.
func (p Profile) Fields() map[string]any {
	return map[string]any{
		"id":         p.ID,
		"name":       p.Name,
		"email":      p.Email,
		"phone":      p.Phone,
		"avatar":     p.Avatar,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
