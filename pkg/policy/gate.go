package policy

import (
	"context"

	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/rbac"
)

// Rules fired by the remote layer.
const (
	RuleUnavailable = "policy.unavailable"
	RuleRemoteDeny  = "policy.remote_deny"
)

// Authorizer answers permission questions for services.
type Authorizer interface {
	// Check evaluates the role matrix for p and, if it allows, confirms with
	// any configured remote policy.
	Check(ctx context.Context, p rbac.Principal, action rbac.Action, resource rbac.Resource, ownerID, resourceOrgID string) rbac.Decision
	// Confirm applies the remote layer to a local decision computed elsewhere,
	// such as a workflow check.
	Confirm(ctx context.Context, p rbac.Principal, action rbac.Action, resource rbac.Resource, local rbac.Decision) rbac.Decision
}

// Gate layers an optional remote PDP over the local role authority. The
// local decision always runs first and a local deny is final. A remote
// failure denies.
type Gate struct {
	remote  *RemoteClient
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewGate creates a gate. remote may be nil for local-only decisions;
// metrics and logger may be nil.
func NewGate(remote *RemoteClient, metrics *observability.Metrics, logger *observability.Logger) *Gate {
	return &Gate{remote: remote, metrics: metrics, logger: logger}
}

// Local returns a gate with no remote layer.
func Local() *Gate {
	return &Gate{}
}

// Check implements Authorizer.
func (g *Gate) Check(ctx context.Context, p rbac.Principal, action rbac.Action, resource rbac.Resource, ownerID, resourceOrgID string) rbac.Decision {
	return g.Confirm(ctx, p, action, resource, rbac.Check(p, action, resource, ownerID, resourceOrgID))
}

// Confirm implements Authorizer.
func (g *Gate) Confirm(ctx context.Context, p rbac.Principal, action rbac.Action, resource rbac.Resource, local rbac.Decision) rbac.Decision {
	d := g.confirm(ctx, p, action, resource, local)
	g.metrics.RecordDecision(string(resource), string(action), d.Allowed)
	return d
}

func (g *Gate) confirm(ctx context.Context, p rbac.Principal, action rbac.Action, resource rbac.Resource, local rbac.Decision) rbac.Decision {
	if !local.Allowed || g.remote == nil {
		return local
	}

	allowed, err := g.remote.Allowed(ctx, Query{
		UserID:   p.ID,
		Action:   string(action),
		Resource: string(resource),
		Tenant:   p.OrgID,
	})
	if err != nil {
		g.recordRemote("error")
		if g.logger != nil {
			observability.UpdateLoggerWithTraceContext(ctx, g.logger).
				WithError(err).
				WithField("permission", rbac.Permission{Resource: resource, Action: action}.String()).
				Warn("remote policy check failed, denying")
		}
		return rbac.Decision{Allowed: false, Rule: RuleUnavailable, Reason: "Authorization service unavailable"}
	}
	if !allowed {
		g.recordRemote("deny")
		return rbac.Decision{Allowed: false, Rule: RuleRemoteDeny, Reason: "Denied by organization policy"}
	}
	g.recordRemote("allow")
	return local
}

func (g *Gate) recordRemote(result string) {
	if g.metrics != nil {
		g.metrics.PolicyRemoteChecksTotal.WithLabelValues(result).Inc()
	}
}

// FromConfig builds a gate with a remote layer only when cfg is enabled.
func FromConfig(cfg RemoteConfig, metrics *observability.Metrics, logger *observability.Logger) *Gate {
	if !cfg.Enabled() {
		return NewGate(nil, metrics, logger)
	}
	return NewGate(NewRemoteClient(cfg), metrics, logger)
}
