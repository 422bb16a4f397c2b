// Package auth provides registration, password sign-in and session tokens.
//
// # Overview
//
// Passwords are stored as bcrypt hashes (cost 12) in the credentials table.
// A successful login returns an HS256 JWT whose subject is the user id. The
// HTTP middleware verifies the token and then reloads the profile on every
// request, so a role change or deactivation takes effect immediately; the
// role claim inside the token is never used for authorization.
//
// # Usage Example
//
//	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
//	svc := auth.NewService(userStore, orgService, tokens, auditLogger, logger)
//
//	session, err := svc.Login(ctx, "ann@example.com", password)
//	var approval *auth.ApprovalError
//	if errors.As(err, &approval) {
//		// 403: membership pending or rejected
//	}
//
// # Related Packages
//
//   - pkg/middleware: bearer token authentication
//   - pkg/users: profile and credential storage
package auth
