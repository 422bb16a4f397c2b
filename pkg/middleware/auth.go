package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/docvault/pkg/auth"
	"github.com/platinummonkey/docvault/pkg/httputil"
	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/policy"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/users"
)

// ProfileLoader loads the caller's current profile.
type ProfileLoader interface {
	GetByID(ctx context.Context, id string) (*users.Profile, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	tokens   *auth.TokenIssuer
	profiles ProfileLoader
	logger   *observability.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokens *auth.TokenIssuer, profiles ProfileLoader, logger *observability.Logger) *AuthMiddleware {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &AuthMiddleware{tokens: tokens, profiles: profiles, logger: logger}
}

// Handler wraps an HTTP handler with authentication. The token only names
// the user; role, organization and status come from the profile loaded on
// every request.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.tokens.Verify(parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		profile, err := m.profiles.GetByID(r.Context(), claims.Subject)
		if errors.Is(err, users.ErrNotFound) {
			httputil.WriteUnauthorized(w, "account no longer exists")
			return
		}
		if err != nil {
			m.logger.WithError(err).Error("failed to load caller profile")
			httputil.WriteServiceUnavailable(w, "authentication temporarily unavailable")
			return
		}

		switch {
		case !profile.IsActive:
			httputil.WriteForbidden(w, "your account has been deactivated")
			return
		case profile.ApprovalStatus != users.ApprovalApproved:
			httputil.WriteForbidden(w, (&auth.ApprovalError{Status: profile.ApprovalStatus}).Error())
			return
		}

		ctx := auth.WithAuthContext(r.Context(), &auth.AuthContext{User: profile, TokenID: claims.ID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		return nil
	}
	return ac
}

// RequirePermission creates middleware that checks one permission on a
// resource with no owner, such as admin_panel or audit_log.
func RequirePermission(authz policy.Authorizer, resource rbac.Resource, action rbac.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := GetAuthContext(r)
			if ac == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			d := authz.Check(r.Context(), ac.Principal(), action, resource, "", "")
			if !d.Allowed {
				httputil.WriteForbidden(w, d.Reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
