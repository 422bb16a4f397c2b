package rbac

// Resource represents a resource type in the system
type Resource string

const (
	ResourceDocument       Resource = "document"
	ResourceOrganization   Resource = "organization"
	ResourceUser           Resource = "user"
	ResourceAIAgent        Resource = "ai_agent"
	ResourceAIAction       Resource = "ai_action"
	ResourceAIKey          Resource = "ai_key"
	ResourceAdminPanel     Resource = "admin_panel"
	ResourceGodPanel       Resource = "god_panel"
	ResourceAuditLog       Resource = "audit_log"
	ResourceSystemSettings Resource = "system_settings"
)

// Action represents an action that can be performed on a resource
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionAccess  Action = "access"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionManage  Action = "manage"
	ActionPromote Action = "promote"
	ActionDemote  Action = "demote"
)

// Permission represents a specific permission (resource + action)
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

// String returns a string representation of the permission
func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// Principal is the acting user as seen by the authority.
type Principal struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	OrgID string `json:"org_id,omitempty"`
}

// Context carries the ownership and tenancy facts for one check.
// Empty strings mean "not known" and never match anything.
type Context struct {
	UserID        string `json:"user_id,omitempty"`
	OwnerID       string `json:"owner_id,omitempty"`
	UserOrgID     string `json:"user_org_id,omitempty"`
	ResourceOrgID string `json:"resource_org_id,omitempty"`
}

// ContextFor builds a Context with the principal's identity filled in.
func ContextFor(p Principal, ownerID, resourceOrgID string) Context {
	return Context{
		UserID:        p.ID,
		OwnerID:       ownerID,
		UserOrgID:     p.OrgID,
		ResourceOrgID: resourceOrgID,
	}
}

// IsOwner reports whether the requesting user is the resource owner.
func (c Context) IsOwner() bool {
	return c.UserID != "" && c.OwnerID != "" && c.UserID == c.OwnerID
}

// CrossesOrg reports whether both org ids are known and differ.
func (c Context) CrossesOrg() bool {
	return c.UserOrgID != "" && c.ResourceOrgID != "" && c.UserOrgID != c.ResourceOrgID
}

// Decision is the outcome of a permission evaluation. Rule names the rule that
// fired so callers can log it and render Reason to the user.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Rule    string `json:"rule"`
	Reason  string `json:"reason"`
}

func allow(rule, reason string) Decision {
	return Decision{Allowed: true, Rule: rule, Reason: reason}
}

func deny(rule, reason string) Decision {
	return Decision{Allowed: false, Rule: rule, Reason: reason}
}
