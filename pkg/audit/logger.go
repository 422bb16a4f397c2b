package audit

import (
	"context"
	"time"

	"github.com/platinummonkey/docvault/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records a single event. Implementations fill ID and CreatedAt.
	Log(ctx context.Context, event *Event) error

	// Close flushes buffered events and releases resources.
	Close() error
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return contextkeys.WithAuditLogger(ctx, logger)
}

// FromContext retrieves the audit logger from context
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return NoOp()
}

// NoOp returns a logger that discards every event.
func NoOp() Logger {
	return noOpLogger{}
}

type noOpLogger struct{}

func (noOpLogger) Log(ctx context.Context, event *Event) error { return nil }
func (noOpLogger) Close() error                                { return nil }

// NewEvent builds an event carrying the request id and client address held
// in ctx.
func NewEvent(ctx context.Context, userID string, action Action, resourceType ResourceType, resourceID string) *Event {
	details := make(map[string]interface{})
	if reqID := contextkeys.GetRequestID(ctx); reqID != "" {
		details["request_id"] = reqID
	}
	return &Event{
		CreatedAt:    time.Now().UTC(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    contextkeys.GetClientIP(ctx),
	}
}

// With sets a detail field and returns the event for chaining.
func (e *Event) With(key string, value interface{}) *Event {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// InOrg sets the event's organization.
func (e *Event) InOrg(orgID string) *Event {
	e.OrgID = orgID
	return e
}

// Denied marks the event as a refused attempt with the rule's reason.
func (e *Event) Denied(reason string) *Event {
	return e.With("outcome", OutcomeDenied).With("reason", reason)
}

// Failed marks the event as an allowed operation that could not complete.
func (e *Event) Failed(reason string) *Event {
	return e.With("outcome", OutcomeFailure).With("reason", reason)
}
