package users

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/docvault/pkg/rbac"
)

// ApprovalStatus tracks whether an organization accepted a member.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when no profile matches.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("an account with this email already exists")
)

// Profile is a row of the profiles table.
type Profile struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	FullName       string         `json:"full_name"`
	Role           rbac.Role      `json:"role"`
	OrgID          string         `json:"org_id,omitempty"`
	IsActive       bool           `json:"is_active"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Principal returns the identity the role authority evaluates.
func (p *Profile) Principal() rbac.Principal {
	return rbac.Principal{ID: p.ID, Role: p.Role, OrgID: p.OrgID}
}

// CanSignIn reports whether the profile may hold a session.
func (p *Profile) CanSignIn() bool {
	return p.IsActive && p.ApprovalStatus == ApprovalApproved
}

// Store persists profiles and their password credentials.
type Store interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	// Create inserts the profile and its bcrypt hash atomically.
	Create(ctx context.Context, p *Profile, passwordHash string) error
	PasswordHash(ctx context.Context, userID string) (string, error)
	ListPending(ctx context.Context, orgID string) ([]*Profile, error)
	ListByOrg(ctx context.Context, orgID string) ([]*Profile, error)
	UpdateRole(ctx context.Context, id string, role rbac.Role) error
	UpdateOrg(ctx context.Context, id, orgID string) error
	SetActive(ctx context.Context, id string, active bool) error
	SetApproval(ctx context.Context, id string, status ApprovalStatus) error
	// Delete removes credentials then profile.
	Delete(ctx context.Context, id string) error
}
