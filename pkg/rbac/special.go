package rbac

import "fmt"

// Rule identifiers for the workflow checks below.
const (
	RuleOwnerUnknown     = "document.owner_unknown"
	RuleGodPublicOnly    = "document.god_public_only"
	RuleOutranksOwner    = "document.outranks_owner"
	RuleSelfRoleChange   = "user.self_role_change"
	RuleRoleUnchanged    = "user.role_unchanged"
	RuleOutranksTarget   = "user.outranks_target"
	RuleGrantCeiling     = "user.grant_ceiling"
	RuleSelfDeactivation = "user.self_deactivation"
	RuleSelfMove         = "user.self_move"
	RuleSuperAdminReview = "membership.super_admin_review"
)

// DocumentFacts is what the deletion check needs to know about a document.
// OwnerRole is empty when the owner's profile could not be loaded.
type DocumentFacts struct {
	OwnerID   string
	OwnerRole Role
	OrgID     string
	IsPublic  bool
}

// CanDeleteDocument applies the document deletion rule.
//
// The owner can always delete. Otherwise the owner must be resolvable, a
// non-god actor must stay inside the document's organization and strictly
// outrank the owner, and god may only remove other users' public documents.
func CanDeleteDocument(actor Principal, doc DocumentFacts) Decision {
	if actor.ID != "" && actor.ID == doc.OwnerID {
		return allow(RuleOwner, "Owner access")
	}
	if !doc.OwnerRole.Valid() {
		return deny(RuleOwnerUnknown, "Cannot verify document owner. Deletion denied.")
	}
	if actor.Role == RoleGod {
		if !doc.IsPublic {
			return deny(RuleGodPublicOnly, "God can only delete public documents owned by others.")
		}
		return allow(RuleGodPublicOnly, "God can delete public documents")
	}
	if !actor.Role.Valid() {
		return deny(RuleUnknownRole, fmt.Sprintf("Unknown role %q", actor.Role))
	}
	if (Context{UserOrgID: actor.OrgID, ResourceOrgID: doc.OrgID}).CrossesOrg() {
		return deny(RuleOrgBoundary, "Resource belongs to a different organization")
	}
	if !Outranks(actor.Role, doc.OwnerRole) {
		return deny(RuleOutranksOwner, "You don't have permission to delete this document.")
	}
	return allow(RuleOutranksOwner, "Requester outranks the document owner")
}

// CanChangeRole decides whether actor may move target to newRole.
//
// The matrix must grant promote or demote on user, nobody changes their own
// role, the actor must strictly outrank the target's current role, and the
// actor can never grant a role above their own. Only god can mint god.
func CanChangeRole(actor, target Principal, newRole Role) Decision {
	if !newRole.Valid() {
		return deny(RuleUnknownRole, fmt.Sprintf("Unknown role %q", newRole))
	}
	if actor.ID != "" && actor.ID == target.ID {
		return deny(RuleSelfRoleChange, "You cannot change your own role")
	}
	if newRole == target.Role {
		return deny(RuleRoleUnchanged, "User already has this role")
	}

	action := ActionDemote
	if newRole.Weight() > target.Role.Weight() {
		action = ActionPromote
	}
	if d := Check(actor, action, ResourceUser, target.ID, target.OrgID); !d.Allowed {
		return d
	}

	if !Outranks(actor.Role, target.Role) {
		return deny(RuleOutranksTarget, "You can only change the role of users below you")
	}
	if newRole == RoleGod && actor.Role != RoleGod {
		return deny(RuleGrantCeiling, "Only god can grant the god role")
	}
	if !IsAtLeast(actor.Role, newRole) {
		return deny(RuleGrantCeiling, "You cannot grant a role above your own")
	}
	return allow(RuleOutranksTarget, fmt.Sprintf("%s to %s", action, newRole))
}

// CanSetActive decides whether actor may activate or deactivate target.
func CanSetActive(actor, target Principal) Decision {
	if actor.ID != "" && actor.ID == target.ID {
		return deny(RuleSelfDeactivation, "You cannot change your own account status")
	}
	// Self-update is excluded above, so this reduces to the admin tier.
	if d := Check(actor, ActionUpdate, ResourceUser, target.ID, target.OrgID); !d.Allowed {
		return d
	}
	if !Outranks(actor.Role, target.Role) {
		return deny(RuleOutranksTarget, "You can only change the status of users below you")
	}
	return allow(RuleOutranksTarget, "Requester outranks the target user")
}

// CanMoveOrg decides whether actor may reassign target to orgID, where an
// empty orgID removes target from their organization.
//
// Nobody moves themselves. The actor needs user:update on target where they
// are now, organization:manage on the destination, and must strictly outrank
// target.
func CanMoveOrg(actor, target Principal, orgID string) Decision {
	if actor.ID != "" && actor.ID == target.ID {
		return deny(RuleSelfMove, "You cannot change your own organization")
	}
	if d := Check(actor, ActionUpdate, ResourceUser, target.ID, target.OrgID); !d.Allowed {
		return d
	}
	if d := Check(actor, ActionManage, ResourceOrganization, "", orgID); !d.Allowed {
		return d
	}
	if !Outranks(actor.Role, target.Role) {
		return deny(RuleOutranksTarget, "You can only move users below you")
	}
	return allow(RuleOutranksTarget, "Requester outranks the target user")
}

// CanCreateUser decides whether actor may create an account with role in
// orgID. Only god mints god; everyone else grants strictly below their own
// role.
func CanCreateUser(actor Principal, role Role, orgID string) Decision {
	if !role.Valid() {
		return deny(RuleUnknownRole, fmt.Sprintf("Unknown role %q", role))
	}
	if d := Check(actor, ActionCreate, ResourceUser, "", orgID); !d.Allowed {
		return d
	}
	if actor.Role != RoleGod && !Outranks(actor.Role, role) {
		return deny(RuleGrantCeiling, "You can only create users below your own role")
	}
	return allow(RuleGrantCeiling, fmt.Sprintf("create %s", role))
}

// CanDecideMembership decides whether actor may approve or reject a pending
// member of orgID. Membership review is reserved for super admins.
func CanDecideMembership(actor Principal, action Action, orgID string) Decision {
	if action != ActionApprove && action != ActionReject {
		return deny(RuleDefaultDeny, fmt.Sprintf("No rule grants %s on membership", action))
	}
	if d := Check(actor, ActionManage, ResourceOrganization, "", orgID); !d.Allowed {
		return deny(RuleSuperAdminReview, "Membership requests are reviewed by a Super Admin")
	}
	return allow(RuleSuperAdminReview, "Super Admin review")
}
