package orgs

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no organization matches.
	ErrNotFound = errors.New("organization not found")
	// ErrInvalidCode is returned for org codes outside 4-16 alphanumerics.
	ErrInvalidCode = errors.New("organization code must be 4-16 alphanumeric characters")
)

// Organization represents a tenant. Members join by presenting OrgCode at
// registration.
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	OrgCode     string    `json:"org_code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateOrgRequest represents a request to create an organization
type CreateOrgRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Slug        string `json:"slug,omitempty" validate:"omitempty,max=64"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// UpdateOrgRequest changes an organization's display fields. Nil fields are
// left alone.
type UpdateOrgRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// Apply copies the set fields onto org.
func (r UpdateOrgRequest) Apply(org *Organization) {
	if r.Name != nil {
		org.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		org.Description = *r.Description
	}
}

// Stats counts what belongs to an organization.
type Stats struct {
	OrgID         string `json:"org_id"`
	MemberCount   int    `json:"member_count"`
	PendingCount  int    `json:"pending_count"`
	DocumentCount int    `json:"document_count"`
}

// Service defines the interface for organization management
type Service interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	GetOrganizationByCode(ctx context.Context, code string) (*Organization, error)
	ListOrganizations(ctx context.Context) ([]*Organization, error)
	UpdateOrganization(ctx context.Context, org *Organization) error
	// DeleteOrganization removes the organization and its documents.
	// Members stay, without an organization.
	DeleteOrganization(ctx context.Context, id string) error
	GetOrganizationStats(ctx context.Context, id string) (*Stats, error)
}
