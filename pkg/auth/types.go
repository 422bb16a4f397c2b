package auth

import (
	"context"

	"github.com/platinummonkey/docvault/pkg/contextkeys"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/users"
)

// AuthContext holds authenticated user information. User is always reloaded
// from the store, never taken from token claims.
type AuthContext struct {
	User    *users.Profile
	TokenID string
}

// Principal returns the role authority identity of the caller.
func (ac *AuthContext) Principal() rbac.Principal {
	if ac == nil || ac.User == nil {
		return rbac.Principal{}
	}
	return ac.User.Principal()
}

// WithAuthContext stores ac on ctx.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	ctx = contextkeys.WithAuth(ctx, ac)
	if ac != nil && ac.User != nil {
		ctx = contextkeys.WithUserID(ctx, ac.User.ID)
	}
	return ctx
}

// FromContext returns the AuthContext set by the auth middleware.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(contextkeys.AuthKey).(*AuthContext)
	return ac, ok && ac != nil && ac.User != nil
}
