package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platinummonkey/docvault/pkg/audit"
	"github.com/platinummonkey/docvault/pkg/auth"
	"github.com/platinummonkey/docvault/pkg/documents"
	"github.com/platinummonkey/docvault/pkg/httputil"
	"github.com/platinummonkey/docvault/pkg/keys"
	"github.com/platinummonkey/docvault/pkg/members"
	"github.com/platinummonkey/docvault/pkg/middleware"
	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/orgs"
	"github.com/platinummonkey/docvault/pkg/policy"
	"github.com/platinummonkey/docvault/pkg/rbac"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// AuditSearcher reads back audit entries.
type AuditSearcher interface {
	Search(ctx context.Context, filter audit.SearchFilter) ([]*audit.Event, error)
}

// Deps are the services the HTTP layer fronts. Search, KeyLimiter and
// Registry may be nil.
type Deps struct {
	Auth      *auth.Service
	Authn     *middleware.AuthMiddleware
	Authz     policy.Authorizer
	Keys      *keys.Service
	Members   *members.Service
	Documents *documents.Service
	Orgs      orgs.Service
	Search    AuditSearcher
	Audit     audit.Logger

	LoginLimiter *middleware.RateLimiter
	KeyLimiter   *middleware.DistributedRateLimiter

	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Health   *observability.HealthChecker
	Logger   *observability.Logger

	TrustProxy bool
}

// Server represents our API server
type Server struct {
	deps   Deps
	router *mux.Router
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	if deps.Audit == nil {
		deps.Audit = audit.NoOp()
	}
	if deps.Authz == nil {
		deps.Authz = policy.Local()
	}
	if deps.LoginLimiter == nil {
		deps.LoginLimiter = middleware.NewRateLimiter(middleware.LoginRateLimitConfig())
	}
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{deps: deps, router: mux.NewRouter()}
	s.setupRoutes()
	return s
}

// Handler returns the router wrapped in the request middleware chain.
func (s *Server) Handler() http.Handler {
	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware(s.deps.TrustProxy),
		httputil.LoggingMiddleware(s.deps.Logger),
		httputil.RecoveryMiddleware(s.deps.Logger),
		audit.Middleware(s.deps.Audit),
		httputil.MaxBytesMiddleware(maxBodyBytes),
	}
	return observability.TraceHandler(httputil.Chain(chain...)(s.router), "docvault.api")
}

// Router exposes the bare router for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Registered on the router so the route template is known when labelling.
	if s.deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.deps.Metrics))
	}

	if s.deps.Health != nil {
		s.router.HandleFunc("/health", s.deps.Health.Readiness).Methods(http.MethodGet)
		s.router.HandleFunc("/health/live", s.deps.Health.Liveness).Methods(http.MethodGet)
		s.router.HandleFunc("/health/ready", s.deps.Health.Readiness).Methods(http.MethodGet)
	}
	if s.deps.Registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(httputil.ContentTypeMiddleware)

	// Unauthenticated, limited per client IP.
	public := v1.PathPrefix("/auth").Subrouter()
	public.Use(middleware.RateLimitMiddleware(s.deps.LoginLimiter, middleware.ByClientIP, "login", s.deps.Metrics))
	public.HandleFunc("/register", s.register).Methods(http.MethodPost)
	public.HandleFunc("/login", s.login).Methods(http.MethodPost)

	private := v1.NewRoute().Subrouter()
	private.Use(s.deps.Authn.Handler)

	private.HandleFunc("/me", s.me).Methods(http.MethodGet)
	private.HandleFunc("/roles", s.listRoles).Methods(http.MethodGet)
	private.HandleFunc("/permissions/check", s.checkPermission).Methods(http.MethodPost)

	s.registerKeyRoutes(private)
	s.registerDocumentRoutes(private)
	s.registerMemberRoutes(private)
	s.registerOrgRoutes(private)
	s.registerAuditRoutes(private)
}

// Serve runs srv until ctx is cancelled, then drains in-flight requests.
func Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *observability.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.WithField("addr", srv.Addr).Info("HTTP server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func principal(r *http.Request) rbac.Principal {
	return middleware.GetAuthContext(r).Principal()
}
