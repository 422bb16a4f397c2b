// Package middleware provides HTTP middleware for authentication, authorization, and rate limiting.
//
// # Authentication
//
//	authn := middleware.NewAuthMiddleware(tokens, profileCache, logger)
//	router.Use(authn.Handler)
//
// The bearer token only identifies the user. The profile is reloaded for
// every request so a role change, deactivation or rejection takes effect
// immediately. Deactivated and unapproved accounts get 403.
//
// # Rate Limiting
//
// In-process, per client IP, for sign-in and registration:
//
//	login := middleware.NewRateLimiter(middleware.LoginRateLimitConfig())
//	r.Use(middleware.RateLimitMiddleware(login, middleware.ByClientIP, "login", metrics))
//
// Redis-backed, per user, for API key submission. This limiter fails closed:
//
//	keys := middleware.NewDistributedRateLimiter(redisClient, nil, "")
//	r.Use(middleware.DistributedRateLimitMiddleware(keys, middleware.ByUser, "ai_key_submit", metrics))
//
// # Related Packages
//
//   - pkg/auth: Token validation
//   - pkg/policy: Permission checking
package middleware
