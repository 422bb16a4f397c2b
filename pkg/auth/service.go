package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/docvault/pkg/audit"
	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/orgs"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/users"
)

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnknownOrgCode is returned when registration names a missing org.
	ErrUnknownOrgCode = errors.New("invalid organization code, please check and try again")
)

// ApprovalError is returned by Login for members whose organization request
// is not approved.
type ApprovalError struct {
	Status users.ApprovalStatus
}

func (e *ApprovalError) Error() string {
	if e.Status == users.ApprovalRejected {
		return "your organization membership request was rejected, please contact the Super Admin"
	}
	return "your organization membership is pending approval from a Super Admin"
}

// OrgResolver looks up organizations by their join code.
type OrgResolver interface {
	GetOrganizationByCode(ctx context.Context, code string) (*orgs.Organization, error)
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=200"`
	OrgCode  string `json:"org_code,omitempty" validate:"omitempty,alphanum,min=4,max=16"`
}

// RegisterResult describes the created account.
type RegisterResult struct {
	User    *users.Profile `json:"user"`
	Pending bool           `json:"pending"`
	Message string         `json:"message,omitempty"`
}

// Session is a signed-in user with a bearer token.
type Session struct {
	User      *users.Profile `json:"user"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Service handles registration and password sign-in.
type Service struct {
	users  users.Store
	orgs   OrgResolver
	tokens *TokenIssuer
	audit  audit.Logger
	logger *observability.Logger
}

// NewService creates an auth service. auditLogger may be nil.
func NewService(store users.Store, orgResolver OrgResolver, tokens *TokenIssuer, auditLogger audit.Logger, logger *observability.Logger) *Service {
	if auditLogger == nil {
		auditLogger = audit.NoOp()
	}
	return &Service{users: store, orgs: orgResolver, tokens: tokens, audit: auditLogger, logger: logger}
}

// Register creates a user-role account. Joining an organization by code
// leaves the account pending approval.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.FullName) == "" {
		return nil, errors.New("email, password, and full name are required")
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	profile := &users.Profile{
		Email:          req.Email,
		FullName:       req.FullName,
		Role:           rbac.RoleUser,
		IsActive:       true,
		ApprovalStatus: users.ApprovalApproved,
	}

	var orgCode string
	if strings.TrimSpace(req.OrgCode) != "" {
		orgCode, err = orgs.NormalizeOrgCode(req.OrgCode)
		if err != nil {
			return nil, err
		}
		org, err := s.orgs.GetOrganizationByCode(ctx, orgCode)
		if errors.Is(err, orgs.ErrNotFound) {
			return nil, ErrUnknownOrgCode
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve organization: %w", err)
		}
		profile.OrgID = org.ID
		profile.ApprovalStatus = users.ApprovalPending
	}

	if err := s.users.Create(ctx, profile, hash); err != nil {
		return nil, err
	}

	event := audit.NewEvent(ctx, profile.ID, audit.ActionRegister, audit.ResourceTypeAuth, "").
		With("method", "email").
		With("approval_status", string(profile.ApprovalStatus)).
		InOrg(profile.OrgID)
	if orgCode != "" {
		event.With("org_code", orgCode)
	}
	s.record(ctx, event)

	result := &RegisterResult{User: profile, Pending: profile.ApprovalStatus == users.ApprovalPending}
	if result.Pending {
		result.Message = "Account created! Your request to join the organization is pending approval from a Super Admin."
	}
	return result, nil
}

// Login verifies the password and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	profile, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !profile.IsActive {
		return nil, ErrInvalidCredentials
	}

	hash, err := s.users.PasswordHash(ctx, profile.ID)
	if errors.Is(err, users.ErrNotFound) || (err == nil && !CheckPassword(hash, password)) {
		s.record(ctx, audit.NewEvent(ctx, profile.ID, audit.ActionLoginFailed, audit.ResourceTypeAuth, "").
			Denied("bad credentials").
			InOrg(profile.OrgID))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	if profile.ApprovalStatus != users.ApprovalApproved {
		return nil, &ApprovalError{Status: profile.ApprovalStatus}
	}

	token, expires, err := s.tokens.Issue(profile)
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.NewEvent(ctx, profile.ID, audit.ActionLogin, audit.ResourceTypeAuth, "").
		With("method", "email").
		InOrg(profile.OrgID))

	return &Session{User: profile, Token: token, ExpiresAt: expires}, nil
}

func (s *Service) record(ctx context.Context, event *audit.Event) {
	if err := s.audit.Log(ctx, event); err != nil && s.logger != nil {
		s.logger.WithError(err).WithField("audit_action", string(event.Action)).Warn("audit write failed")
	}
}
