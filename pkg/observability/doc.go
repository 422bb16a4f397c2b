// Package observability provides structured logging, Prometheus metrics,
// health checks and OpenTelemetry tracing for docvault.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("provider", "openai").Info("API key stored")
//
// FromContext enriches the context logger with the request id and user id
// set by the HTTP middleware, plus trace ids when a span is recording:
//
//	observability.FromContext(ctx).WithError(err).Warn("blob removal failed")
//
// Secret material is never passed to the logger. Key records only log their
// id and provider.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordDecision("ai_key", "create", true)
//	metrics.RecordCipher("decrypt", err)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient).WithCipher(cipher)
//	observability.RegisterHealthRoutes(mux, checker)
//
// Database and cipher failures make readiness fail; Redis only degrades it.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg.OTel, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
