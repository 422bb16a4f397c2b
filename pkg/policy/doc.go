// Package policy gates authorization decisions through an optional external
// policy decision point (PDP).
//
// The local role authority in pkg/rbac always decides first. When it denies
// the request is denied and the PDP is never consulted. When it allows and a
// PDP is configured, the PDP must also answer {"allow": true}; an unreachable
// PDP, a non-2xx status or an undecodable body all deny with rule
// policy.unavailable. Without a configured token the gate is local-only.
//
//	gate := policy.NewGate(policy.NewRemoteClient(cfg.Policy), metrics, logger)
//	d := gate.Check(ctx, actor, rbac.ActionCreate, rbac.ResourceAIKey, ownerID, ownerOrgID)
package policy
