package rbac

import "fmt"

// Rule identifiers reported in Decision.Rule.
const (
	RuleGodPanelReserved = "god_panel.reserved"
	RuleGodUnrestricted  = "god.unrestricted"
	RuleOrgBoundary      = "org.boundary"
	RuleUnknownRole      = "role.unknown"
	RuleMinimumRole      = "role.minimum"
	RuleOwner            = "owner"
	RuleSelfUpdate       = "user.self_update"
	RuleOpen             = "open"
	RuleDefaultDeny      = "default_deny"
)

// HasPermission reports whether role may perform action on resource.
// It never fails; unknown roles, resources and actions evaluate to false.
func HasPermission(role Role, action Action, resource Resource, ctx Context) bool {
	return Evaluate(role, action, resource, ctx).Allowed
}

// Check evaluates a permission for a principal against a resource owned by
// ownerID in resourceOrgID.
func Check(p Principal, action Action, resource Resource, ownerID, resourceOrgID string) Decision {
	return Evaluate(p.Role, action, resource, ContextFor(p, ownerID, resourceOrgID))
}

// Evaluate decides a permission and reports which rule fired.
//
// Rules are applied in order: the god panel is never granted through the
// matrix; god is granted everything else; non-god principals are confined
// to their organization; then the per-resource rules apply and anything not
// listed is denied.
func Evaluate(role Role, action Action, resource Resource, ctx Context) Decision {
	if resource == ResourceGodPanel {
		return deny(RuleGodPanelReserved, "The god panel is not granted through the permission matrix")
	}
	if role == RoleGod {
		return allow(RuleGodUnrestricted, "God has unrestricted access")
	}
	if !role.Valid() {
		return deny(RuleUnknownRole, fmt.Sprintf("Unknown role %q", role))
	}
	if ctx.CrossesOrg() {
		return deny(RuleOrgBoundary, "Resource belongs to a different organization")
	}

	switch resource {
	case ResourceAdminPanel, ResourceAuditLog:
		return atLeast(role, RoleAdmin)

	case ResourceSystemSettings:
		return atLeast(role, RoleSuperAdmin)

	case ResourceOrganization:
		if action == ActionRead {
			return atLeast(role, RoleAdmin)
		}
		return atLeast(role, RoleSuperAdmin)

	case ResourceUser:
		switch action {
		case ActionRead, ActionCreate, ActionDelete:
			return atLeast(role, RoleAdmin)
		case ActionUpdate:
			if ctx.IsOwner() {
				return allow(RuleSelfUpdate, "Users can update their own profile")
			}
			return atLeast(role, RoleAdmin)
		case ActionPromote, ActionDemote:
			return atLeast(role, RoleSuperAdmin)
		}

	case ResourceDocument:
		switch action {
		case ActionRead, ActionCreate:
			return allow(RuleOpen, "Any member can "+string(action)+" documents")
		case ActionUpdate, ActionDelete:
			return ownerOrAtLeast(role, ctx, RoleAdmin)
		}

	case ResourceAIAgent:
		if action == ActionRead {
			return allow(RuleOpen, "Any member can view AI agents")
		}
		return atLeast(role, RoleAdmin)

	case ResourceAIAction:
		if action == ActionRead {
			return allow(RuleOpen, "Any member can view AI actions")
		}
		return atLeast(role, RoleAdmin)

	case ResourceAIKey:
		return ownerOrAtLeast(role, ctx, RoleSuperAdmin)
	}

	return deny(RuleDefaultDeny, fmt.Sprintf("No rule grants %s on %s", action, resource))
}

func atLeast(role, min Role) Decision {
	if IsAtLeast(role, min) {
		return allow(RuleMinimumRole, fmt.Sprintf("Requires %s or above", Info(min).Label))
	}
	return deny(RuleMinimumRole, fmt.Sprintf("Requires %s or above", Info(min).Label))
}

func ownerOrAtLeast(role Role, ctx Context, min Role) Decision {
	if ctx.IsOwner() {
		return allow(RuleOwner, "Owner access")
	}
	if IsAtLeast(role, min) {
		return allow(RuleMinimumRole, fmt.Sprintf("Requires the owner or %s or above", Info(min).Label))
	}
	return deny(RuleMinimumRole, fmt.Sprintf("Requires the owner or %s or above", Info(min).Label))
}

// CanAccessGodPanel gates the platform operator console. It sits outside the
// matrix so that no weight comparison or ownership rule can ever reach it.
func CanAccessGodPanel(role Role) bool {
	return role == RoleGod
}
