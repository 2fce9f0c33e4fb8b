package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jionu102/codeit-image-post-auth/internal/domain"
)

const identityKey = "auth_identity"

type identityCtxKey struct{}

// Identity is the authenticated caller of a single request. It is threaded
// through the request instead of being looked up globally.
type Identity struct {
	Subject     string
	Role        domain.Role
	PrincipalID string
	SessionID   string
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (i Identity) IsAdmin() bool { return i.Role == domain.RoleAdmin }

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFrom extracts the caller from ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// IdentityFromCtx retrieves the authenticated caller of a fiber request.
func IdentityFromCtx(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(identityKey).(Identity)
	return id, ok
}

func setIdentity(c *fiber.Ctx, id Identity) {
	c.Locals(identityKey, id)
	c.SetUserContext(WithIdentity(c.UserContext(), id))
}
