package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/docvault/pkg/api"
	"github.com/platinummonkey/docvault/pkg/audit"
	"github.com/platinummonkey/docvault/pkg/auth"
	"github.com/platinummonkey/docvault/pkg/config"
	"github.com/platinummonkey/docvault/pkg/documents"
	"github.com/platinummonkey/docvault/pkg/keys"
	"github.com/platinummonkey/docvault/pkg/members"
	"github.com/platinummonkey/docvault/pkg/middleware"
	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/orgs"
	"github.com/platinummonkey/docvault/pkg/policy"
	"github.com/platinummonkey/docvault/pkg/secrets"
	"github.com/platinummonkey/docvault/pkg/storage"
	"github.com/platinummonkey/docvault/pkg/storage/postgres"
	"github.com/platinummonkey/docvault/pkg/users"
)

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the health/metrics server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, !skipMigrations)
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on startup")
	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", "docvault").
		WithField("version", version)

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize OpenTelemetry, continuing without tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = observability.ShutdownOTel(shutdownCtx, providers, logger)
	}()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	cipher, err := secrets.NewCipher(cfg.Security.EncryptionKey)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, postgres.ConfigFromStorage(cfg.Storage), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		if _, err := postgres.Migrate(ctx, db, logger); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = postgres.NewRedisClient(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		logger.Info("Redis connected, key submission limit is shared across replicas")
	} else {
		logger.Warn("No Redis configured, key submissions are not rate limited")
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize blob storage: %w", err)
	}

	auditLogger, auditStore, err := newAuditSink(db, cfg.Audit.Sink, logger)
	if err != nil {
		return err
	}
	defer auditLogger.Close()

	if auditStore != nil && cfg.Audit.RetentionDays > 0 {
		job := audit.NewRetentionJob(
			auditStore,
			audit.RetentionPolicy{RetentionDays: cfg.Audit.RetentionDays},
			cfg.Audit.RetentionSchedule,
			newJobLogger(cfg.Observability.LogLevel),
		).WithMetrics(metrics)
		if err := job.Start(); err != nil {
			return err
		}
		defer job.Stop()
	}

	profiles := users.NewCachedStore(users.NewPostgresStore(db), cfg.Cache.ProfileSize, cfg.Cache.ProfileTTL, metrics)
	orgService := orgs.NewPostgresService(db)
	authz := policy.FromConfig(cfg.Policy, metrics, logger)

	tokens, err := auth.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		return err
	}

	deps := api.Deps{
		Auth:  auth.NewService(profiles, orgService, tokens, auditLogger, logger),
		Authn: middleware.NewAuthMiddleware(tokens, profiles, logger),
		Authz: authz,
		Keys: keys.NewService(keys.Config{
			Store:   keys.NewPostgresStore(db),
			Cipher:  cipher,
			Authz:   authz,
			Owners:  profiles,
			Audit:   auditLogger,
			Metrics: metrics,
			Logger:  logger,
		}),
		Members: members.NewService(members.Config{
			Users:   profiles,
			Orgs:    orgService,
			Authz:   authz,
			Audit:   auditLogger,
			Metrics: metrics,
			Logger:  logger,
		}),
		Documents: documents.NewService(documents.Config{
			Store:   documents.NewPostgresStore(db),
			Blobs:   blobs,
			Owners:  profiles,
			Authz:   authz,
			Audit:   auditLogger,
			Metrics: metrics,
			Logger:  logger,
		}),
		Orgs:  orgService,
		Audit: auditLogger,
		LoginLimiter: middleware.NewRateLimiter(&middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.LoginPerMinute,
			WindowDuration:    time.Minute,
			BurstSize:         cfg.RateLimit.LoginBurst,
		}),
		Metrics:    metrics,
		Health:     observability.NewHealthChecker(db, redisClient).WithCipher(cipher).WithVersion(version),
		Logger:     logger,
		TrustProxy: cfg.Server.TrustProxy,
	}
	if auditStore != nil {
		deps.Search = auditStore
	}
	if redisClient != nil {
		deps.KeyLimiter = middleware.NewDistributedRateLimiter(redisClient, &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.KeySubmissionsPerHour,
			WindowDuration:    time.Hour,
		}, "")
	}
	if cfg.Observability.MetricsEnabled {
		deps.Registry = registry
	}

	server := api.NewServer(deps)

	apiSrv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, deps.Health)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthSrv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.WithFields(map[string]interface{}{
		"storage":    blobs.Backend(),
		"audit_sink": cfg.Audit.Sink,
		"remote_pdp": cfg.Policy.Enabled(),
	}).Info("Starting docvault")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, apiSrv, cfg.Server.ShutdownTimeout, logger)
	})
	g.Go(func() error {
		return api.Serve(gctx, healthSrv, cfg.Server.ShutdownTimeout, logger)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}

// newAuditSink builds the audit logger for sink. The DB logger is returned
// separately when it is part of the sink so it can back search and
// retention.
func newAuditSink(db *sql.DB, sink string, logger *observability.Logger) (audit.Logger, *audit.DBLogger, error) {
	logSink := audit.NewLogLogger(logger)
	if sink == "log" {
		return logSink, nil, nil
	}

	dbSink, err := audit.NewDBLogger(db)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize audit store: %w", err)
	}
	if sink == "db" {
		return dbSink, dbSink, nil
	}
	return audit.NewMultiLogger(dbSink, logSink), dbSink, nil
}

// newJobLogger returns the logrus logger used by scheduled jobs.
func newJobLogger(level observability.LogLevel) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})
	switch level {
	case observability.DebugLevel:
		l.SetLevel(logrus.DebugLevel)
	case observability.WarnLevel:
		l.SetLevel(logrus.WarnLevel)
	case observability.ErrorLevel:
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}
