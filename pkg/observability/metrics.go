package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values shared by the decision and cipher counters.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization
	PermissionDecisionsTotal *prometheus.CounterVec
	PolicyRemoteChecksTotal  *prometheus.CounterVec

	// Secret handling
	CipherOperationsTotal *prometheus.CounterVec
	KeysUnusableTotal     *prometheus.CounterVec

	// Storage / side effects
	BlobRemovalsTotal    *prometheus.CounterVec
	AuditWriteFailures   prometheus.Counter
	RateLimitRejections  *prometheus.CounterVec
	ProfileCacheLookups  *prometheus.CounterVec
	AuditRowsPurgedTotal prometheus.Counter
}

// NewMetrics creates and registers all docvault metrics on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docvault_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		PermissionDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_permission_decisions_total",
				Help: "Authorization decisions by resource, action and outcome",
			},
			[]string{"resource", "action", "outcome"},
		),
		PolicyRemoteChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_policy_remote_checks_total",
				Help: "Remote policy decision point calls by result",
			},
			[]string{"result"},
		),
		CipherOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_cipher_operations_total",
				Help: "Secret encrypt/decrypt operations by outcome",
			},
			[]string{"op", "outcome"},
		),
		KeysUnusableTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_ai_keys_unusable_total",
				Help: "Stored API keys that failed authentication on decrypt",
			},
			[]string{"provider"},
		),
		BlobRemovalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_blob_removals_total",
				Help: "Document storage object removals by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		AuditWriteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docvault_audit_write_failures_total",
				Help: "Audit events that could not be persisted",
			},
		),
		RateLimitRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_rate_limit_rejections_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
		ProfileCacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_profile_cache_lookups_total",
				Help: "Profile cache lookups by result",
			},
			[]string{"result"},
		),
		AuditRowsPurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docvault_audit_rows_purged_total",
				Help: "Audit rows removed by the retention job",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PermissionDecisionsTotal,
		m.PolicyRemoteChecksTotal,
		m.CipherOperationsTotal,
		m.KeysUnusableTotal,
		m.BlobRemovalsTotal,
		m.AuditWriteFailures,
		m.RateLimitRejections,
		m.ProfileCacheLookups,
		m.AuditRowsPurgedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// NewTestMetrics registers metrics on a throwaway registry.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// RecordDecision counts one authorization decision. Safe on a nil receiver.
func (m *Metrics) RecordDecision(resource, action string, allowed bool) {
	if m == nil {
		return
	}
	outcome := OutcomeDenied
	if allowed {
		outcome = OutcomeAllowed
	}
	m.PermissionDecisionsTotal.WithLabelValues(resource, action, outcome).Inc()
}

// RecordCipher counts one encrypt or decrypt. Safe on a nil receiver.
func (m *Metrics) RecordCipher(op string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.CipherOperationsTotal.WithLabelValues(op, outcome).Inc()
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests. The route label is the
// mux path template so ids do not explode cardinality.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeTemplate(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func routeTemplate(r *http.Request) string {
	if current := mux.CurrentRoute(r); current != nil {
		if tpl, err := current.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(serveMux *http.ServeMux, registry *prometheus.Registry) {
	serveMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
