package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/docvault/pkg/observability"
)

// DefaultRetentionSchedule runs the purge daily at 03:15 UTC.
const DefaultRetentionSchedule = "15 3 * * *"

// Purger deletes audit rows older than a cutoff.
type Purger interface {
	Purge(ctx context.Context, policy RetentionPolicy, now time.Time) (int64, error)
}

// RetentionJob periodically purges expired audit rows.
type RetentionJob struct {
	purger   Purger
	policy   RetentionPolicy
	schedule string
	timeout  time.Duration
	log      logrus.FieldLogger
	metrics  *observability.Metrics
	cron     *cron.Cron
	now      func() time.Time
}

// NewRetentionJob creates a purge job. An empty schedule uses
// DefaultRetentionSchedule.
func NewRetentionJob(purger Purger, policy RetentionPolicy, schedule string, log logrus.FieldLogger) *RetentionJob {
	if schedule == "" {
		schedule = DefaultRetentionSchedule
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RetentionJob{
		purger:   purger,
		policy:   policy,
		schedule: schedule,
		timeout:  5 * time.Minute,
		log:      log.WithField("component", "audit_retention"),
		cron:     cron.New(cron.WithLocation(time.UTC)),
		now:      time.Now,
	}
}

// WithMetrics counts purged rows on m.
func (j *RetentionJob) WithMetrics(m *observability.Metrics) *RetentionJob {
	j.metrics = m
	return j
}

// Start registers the purge on the cron schedule and starts the scheduler.
func (j *RetentionJob) Start() error {
	if j.policy.RetentionDays <= 0 {
		return fmt.Errorf("audit retention days must be positive, got %d", j.policy.RetentionDays)
	}
	if _, err := j.cron.AddFunc(j.schedule, func() { _, _ = j.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("failed to schedule audit retention: %w", err)
	}
	j.cron.Start()
	j.log.WithFields(logrus.Fields{
		"schedule":       j.schedule,
		"retention_days": j.policy.RetentionDays,
	}).Info("Audit retention job started")
	return nil
}

// RunOnce performs a single purge.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	n, err := j.purger.Purge(ctx, j.policy, j.now().UTC())
	if err != nil {
		j.log.WithError(err).Error("Audit retention purge failed")
		return 0, err
	}
	if j.metrics != nil {
		j.metrics.AuditRowsPurgedTotal.Add(float64(n))
	}
	j.log.WithField("deleted", n).Info("Audit retention purge complete")
	return n, nil
}

// Stop stops the scheduler and waits for a running purge to finish.
func (j *RetentionJob) Stop() {
	<-j.cron.Stop().Done()
}
