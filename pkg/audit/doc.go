// Package audit records security-relevant actions in the audit_logs table.
//
// # Overview
//
// Every state-changing operation on keys, documents and members writes one
// Event. The row shape (user_id, action, resource_type, resource_id, details,
// org_id, ip_address) is shared with rows written by earlier deployments, so
// Action values such as "create", "update_role" and "deactivate_user" are
// stable strings.
//
// # Usage Example
//
//	event := audit.NewEvent(ctx, actor.ID, audit.ActionCreate, audit.ResourceTypeAPIKey, key.ID).
//		With("provider", key.Provider).
//		InOrg(actor.OrgID)
//	if err := auditLogger.Log(ctx, event); err != nil {
//		logger.WithError(err).Warn("audit write failed")
//	}
//
// NewEvent copies the request id and client address from the request
// context, which httputil.RequestIDMiddleware populates.
//
// # Loggers
//
//	DBLogger     PostgreSQL, with Search and Purge
//	LogLogger    structured application log
//	MultiLogger  fan-out to several loggers
//	NoOp         discards everything
//
// # Retention
//
// RetentionJob runs DBLogger.Purge on a cron schedule (robfig/cron) and
// deletes rows older than RetentionPolicy.RetentionDays.
package audit
