package audit

import (
	"context"

	"github.com/platinummonkey/docvault/pkg/observability"
)

// LogLogger mirrors audit events into the structured application log.
type LogLogger struct {
	logger *observability.Logger
}

// NewLogLogger creates an audit logger that writes through logger.
func NewLogLogger(logger *observability.Logger) *LogLogger {
	return &LogLogger{logger: logger}
}

// Log writes the event as one structured line.
func (l *LogLogger) Log(ctx context.Context, event *Event) error {
	fields := map[string]interface{}{
		"audit_action":  string(event.Action),
		"resource_type": string(event.ResourceType),
	}
	if event.UserID != "" {
		fields["actor_id"] = event.UserID
	}
	if event.OrgID != "" {
		fields["org_id"] = event.OrgID
	}
	if event.ResourceID != "" {
		fields["resource_id"] = event.ResourceID
	}
	for k, v := range event.Details {
		fields["detail_"+k] = v
	}

	entry := l.logger.WithFields(fields)
	if outcome := event.Details["outcome"]; outcome == OutcomeDenied || outcome == OutcomeFailure {
		entry.Warn("audit")
		return nil
	}
	entry.Info("audit")
	return nil
}

// Close is a no-op; the application logger outlives the audit logger.
func (l *LogLogger) Close() error {
	return nil
}
