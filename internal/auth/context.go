package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

// Identity is the authenticated caller, rebuilt from the store on each request.
// It is stored by value so handlers cannot alter what later middleware sees.
type Identity struct {
	UserID        uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          user.Role `json:"role"`
	Approved      bool      `json:"isApproved"`
	EmailVerified bool      `json:"isEmailVerified"`
}

// NewIdentity snapshots the fields of u that authorization decisions need
func NewIdentity(u *user.User) Identity {
	return Identity{
		UserID:        u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		Approved:      u.Role != user.RoleTutor || u.IsApproved(),
		EmailVerified: u.EmailVerified,
	}
}

// HasRole reports whether the identity holds one of roles
func (i Identity) HasRole(roles ...user.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext extracts the identity attached by RequireAuth
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
