package members

import (
	"errors"

	"github.com/platinummonkey/docvault/pkg/orgs"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/users"
)

// Local rules fired by this package.
const (
	RuleSelfDelete  = "user.self_delete"
	RuleOrgRequired = "membership.org_required"
)

var (
	// ErrNotFound is returned when the target user does not exist.
	ErrNotFound = users.ErrNotFound
	// ErrOrgNotFound is returned when moving a member to an unknown organization.
	ErrOrgNotFound = orgs.ErrNotFound
	// ErrNotPending is returned when deciding a member that was already decided.
	ErrNotPending = errors.New("membership request is not pending")
	// ErrForbidden matches every *ForbiddenError.
	ErrForbidden = errors.New("forbidden")
)

// CreateRequest is the payload for an administrator-created account.
type CreateRequest struct {
	Email    string    `json:"email" validate:"required,email,max=254"`
	Password string    `json:"password" validate:"required,min=8,max=72"`
	FullName string    `json:"full_name" validate:"required,max=200"`
	Role     rbac.Role `json:"role" validate:"required"`
	OrgID    string    `json:"org_id,omitempty"`
}

// ForbiddenError carries the decision that refused the operation.
type ForbiddenError struct {
	Decision rbac.Decision
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Decision.Reason
}

// Is lets errors.Is(err, ErrForbidden) match.
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}
