package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const readinessTimeout = 5 * time.Second

// SelfChecker verifies its own configuration without external calls. The
// secret cipher implements it with an encrypt/decrypt round trip.
type SelfChecker interface {
	SelfCheck() error
}

// probe is one readiness dependency. A failing critical probe makes the
// service unhealthy; any other failure only degrades it.
type probe struct {
	name     string
	critical bool
	check    func(ctx context.Context) error
}

// HealthChecker answers liveness and readiness for the API and health
// servers.
type HealthChecker struct {
	probes  []probe
	version string
}

// NewHealthChecker probes db (critical) and redis (non-critical). Either
// may be nil.
func NewHealthChecker(db *sql.DB, rdb *redis.Client) *HealthChecker {
	h := &HealthChecker{version: "dev"}
	if db != nil {
		h.probes = append(h.probes, probe{name: "database", critical: true, check: databaseCheck(db)})
	}
	if rdb != nil {
		h.probes = append(h.probes, probe{name: "redis", check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return h
}

// WithCipher adds the cipher self check as a critical probe.
func (h *HealthChecker) WithCipher(c SelfChecker) *HealthChecker {
	h.probes = append(h.probes, probe{name: "cipher", critical: true, check: func(context.Context) error {
		return c.SelfCheck()
	}})
	return h
}

// WithVersion sets the version reported by Check.
func (h *HealthChecker) WithVersion(v string) *HealthChecker {
	h.version = v
	return h
}

// HealthStatus is the readiness report.
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the result of one probe.
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Check runs every probe.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	report := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(h.probes)),
	}

	for _, p := range h.probes {
		start := time.Now()
		err := p.check(ctx)
		dep := DependencyStatus{Status: StatusHealthy, Latency: time.Since(start), Timestamp: start}

		var degraded *degradedError
		switch {
		case err == nil:
		case errors.As(err, &degraded):
			dep.Status = StatusDegraded
			dep.Message = degraded.msg
			report.Status = worse(report.Status, StatusDegraded)
		default:
			dep.Status = StatusUnhealthy
			dep.Message = err.Error()
			if p.critical {
				report.Status = worse(report.Status, StatusUnhealthy)
			} else {
				report.Status = worse(report.Status, StatusDegraded)
			}
		}
		report.Dependencies[p.name] = dep
	}
	return report
}

// Liveness reports 200 while the process can serve requests.
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness runs the probes and reports 503 when a critical one fails.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	report := h.Check(ctx)
	code := http.StatusOK
	if report.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, report)
}

// RegisterHealthRoutes mounts /health, /health/live and /health/ready.
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// degradedError marks a probe that answered but is not at full capacity.
type degradedError struct{ msg string }

func (e *degradedError) Error() string { return e.msg }

func databaseCheck(db *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var one int
		if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
			return err
		}
		stats := db.Stats()
		if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			return &degradedError{msg: "connection pool exhausted"}
		}
		return nil
	}
}

func worse(current, next string) string {
	rank := map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[next] > rank[current] {
		return next
	}
	return current
}
