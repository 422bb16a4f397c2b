package audit

import (
	"encoding/json"
	"time"
)

// Action is the verb recorded in audit_logs.action. Values match the rows
// written by earlier deployments.
type Action string

const (
	// Authentication
	ActionRegister    Action = "register"
	ActionLogin       Action = "login"
	ActionLoginFailed Action = "login_failed"

	// Data mutations
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	// Member administration
	ActionCreateUser     Action = "create_user"
	ActionUpdateRole     Action = "update_role"
	ActionUpdateOrg      Action = "update_org"
	ActionActivateUser   Action = "activate_user"
	ActionDeactivateUser Action = "deactivate_user"
	ActionDeleteUser     Action = "delete_user"
	ActionApproveMember  Action = "approve_member"
	ActionRejectMember   Action = "reject_member"

	// Authorization
	ActionAccessDenied Action = "access_denied"
	ActionKeyUnusable  Action = "key_unusable"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeAuth         ResourceType = "auth"
	ResourceTypeUser         ResourceType = "user"
	ResourceTypeOrganization ResourceType = "organization"
	ResourceTypeDocument     ResourceType = "document"
	ResourceTypeAPIKey       ResourceType = "ai_api_key"
)

// Outcome values stored under Details["outcome"].
const (
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Event is one audit_logs row.
type Event struct {
	ID           string                 `json:"id"`
	CreatedAt    time.Time              `json:"created_at"`
	UserID       string                 `json:"user_id,omitempty"`
	OrgID        string                 `json:"org_id,omitempty"`
	Action       Action                 `json:"action"`
	ResourceType ResourceType           `json:"resource_type"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Details      map[string]interface{} `json:"details"`
	IPAddress    string                 `json:"ip_address,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SearchFilter narrows an audit log query. Zero values are ignored.
type SearchFilter struct {
	UserID       string
	OrgID        string
	ResourceType ResourceType
	Actions      []Action
	Since        *time.Time
	Limit        int
}

// RetentionPolicy controls how long audit rows are kept.
type RetentionPolicy struct {
	RetentionDays int
}

// Cutoff returns the oldest timestamp kept by the policy.
func (p RetentionPolicy) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.RetentionDays)
}
