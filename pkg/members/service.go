package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/docvault/pkg/audit"
	"github.com/platinummonkey/docvault/pkg/auth"
	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/orgs"
	"github.com/platinummonkey/docvault/pkg/policy"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/users"
)

// OrgLookup loads a destination organization.
type OrgLookup interface {
	GetOrganization(ctx context.Context, id string) (*orgs.Organization, error)
}

// Config groups the Service dependencies. Orgs, Audit, Metrics and Logger
// are optional.
type Config struct {
	Users   users.Store
	Orgs    OrgLookup
	Authz   policy.Authorizer
	Audit   audit.Logger
	Metrics *observability.Metrics
	Logger  *observability.Logger
}

// Service runs the membership workflows: account creation, approval of
// pending members, role changes, activation, organization moves and removal.
type Service struct {
	users   users.Store
	orgs    OrgLookup
	authz   policy.Authorizer
	audit   audit.Logger
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewService creates a membership service
func NewService(cfg Config) *Service {
	if cfg.Authz == nil {
		cfg.Authz = policy.Local()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NoOp()
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Service{
		users:   cfg.Users,
		orgs:    cfg.Orgs,
		authz:   cfg.Authz,
		audit:   cfg.Audit,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// List returns every member of orgID, newest first.
func (s *Service) List(ctx context.Context, actor rbac.Principal, orgID string) ([]*users.Profile, error) {
	if err := s.canRead(ctx, actor, orgID); err != nil {
		return nil, err
	}
	return s.users.ListByOrg(ctx, orgID)
}

// Create adds an active, approved account on behalf of actor. The new role
// must sit below the actor's own unless the actor is god.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, req CreateRequest) (*users.Profile, error) {
	d := s.authz.Confirm(ctx, actor, rbac.ActionCreate, rbac.ResourceUser, rbac.CanCreateUser(actor, req.Role, req.OrgID))
	if !d.Allowed {
		return nil, s.deny(ctx, actor, rbac.ActionCreate, "", req.OrgID, d)
	}
	if err := s.checkOrg(ctx, req.OrgID); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	profile := &users.Profile{
		Email:          req.Email,
		FullName:       req.FullName,
		Role:           req.Role,
		OrgID:          req.OrgID,
		IsActive:       true,
		ApprovalStatus: users.ApprovalApproved,
	}
	if err := s.users.Create(ctx, profile, hash); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.record(ctx, audit.NewEvent(ctx, actor.ID, audit.ActionCreateUser, audit.ResourceTypeUser, profile.ID).
		With("email", profile.Email).
		With("role", string(req.Role)).
		InOrg(profile.OrgID))
	return profile, nil
}

// ListPending returns the members of orgID awaiting review.
func (s *Service) ListPending(ctx context.Context, actor rbac.Principal, orgID string) ([]*users.Profile, error) {
	if err := s.canRead(ctx, actor, orgID); err != nil {
		return nil, err
	}
	return s.users.ListPending(ctx, orgID)
}

func (s *Service) canRead(ctx context.Context, actor rbac.Principal, orgID string) error {
	if orgID == "" {
		return s.deny(ctx, actor, rbac.ActionRead, "", orgID, rbac.Decision{
			Rule: RuleOrgRequired, Reason: "An organization is required",
		})
	}
	if d := s.authz.Check(ctx, actor, rbac.ActionRead, rbac.ResourceUser, "", orgID); !d.Allowed {
		return s.deny(ctx, actor, rbac.ActionRead, "", orgID, d)
	}
	return nil
}

// Approve admits a pending member.
func (s *Service) Approve(ctx context.Context, actor rbac.Principal, userID string) (*users.Profile, error) {
	return s.decide(ctx, actor, userID, rbac.ActionApprove)
}

// Reject refuses a pending member. The profile is kept with status rejected.
func (s *Service) Reject(ctx context.Context, actor rbac.Principal, userID string) (*users.Profile, error) {
	return s.decide(ctx, actor, userID, rbac.ActionReject)
}

func (s *Service) decide(ctx context.Context, actor rbac.Principal, userID string, action rbac.Action) (*users.Profile, error) {
	target, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	local := rbac.CanDecideMembership(actor, action, target.OrgID)
	if target.OrgID == "" {
		local = rbac.Decision{Rule: RuleOrgRequired, Reason: "Member has no organization to join"}
	}
	if d := s.authz.Confirm(ctx, actor, action, rbac.ResourceUser, local); !d.Allowed {
		return nil, s.deny(ctx, actor, action, target.ID, target.OrgID, d)
	}
	if target.ApprovalStatus != users.ApprovalPending {
		return nil, ErrNotPending
	}

	status, auditAction := users.ApprovalApproved, audit.ActionApproveMember
	if action == rbac.ActionReject {
		status, auditAction = users.ApprovalRejected, audit.ActionRejectMember
	}
	if err := s.users.SetApproval(ctx, target.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update approval: %w", err)
	}
	target.ApprovalStatus = status

	s.record(ctx, audit.NewEvent(ctx, actor.ID, auditAction, audit.ResourceTypeUser, target.ID).
		With("email", target.Email).
		InOrg(target.OrgID))
	return target, nil
}

// ChangeRole moves userID to newRole.
func (s *Service) ChangeRole(ctx context.Context, actor rbac.Principal, userID string, newRole rbac.Role) (*users.Profile, error) {
	target, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	action := rbac.ActionDemote
	if newRole.Weight() > target.Role.Weight() {
		action = rbac.ActionPromote
	}
	d := s.authz.Confirm(ctx, actor, action, rbac.ResourceUser, rbac.CanChangeRole(actor, target.Principal(), newRole))
	if !d.Allowed {
		return nil, s.deny(ctx, actor, action, target.ID, target.OrgID, d)
	}

	oldRole := target.Role
	if err := s.users.UpdateRole(ctx, target.ID, newRole); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	target.Role = newRole

	s.record(ctx, audit.NewEvent(ctx, actor.ID, audit.ActionUpdateRole, audit.ResourceTypeUser, target.ID).
		With("new_role", string(newRole)).
		With("old_role", string(oldRole)).
		InOrg(target.OrgID))
	return target, nil
}

// SetActive activates or deactivates userID.
func (s *Service) SetActive(ctx context.Context, actor rbac.Principal, userID string, active bool) (*users.Profile, error) {
	target, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := s.authz.Confirm(ctx, actor, rbac.ActionUpdate, rbac.ResourceUser, rbac.CanSetActive(actor, target.Principal()))
	if !d.Allowed {
		return nil, s.deny(ctx, actor, rbac.ActionUpdate, target.ID, target.OrgID, d)
	}

	if err := s.users.SetActive(ctx, target.ID, active); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	target.IsActive = active

	action := audit.ActionDeactivateUser
	if active {
		action = audit.ActionActivateUser
	}
	s.record(ctx, audit.NewEvent(ctx, actor.ID, action, audit.ResourceTypeUser, target.ID).InOrg(target.OrgID))
	return target, nil
}

// MoveOrg reassigns userID to orgID. An empty orgID removes the member from
// their organization.
func (s *Service) MoveOrg(ctx context.Context, actor rbac.Principal, userID, orgID string) (*users.Profile, error) {
	target, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := s.authz.Confirm(ctx, actor, rbac.ActionUpdate, rbac.ResourceUser, rbac.CanMoveOrg(actor, target.Principal(), orgID))
	if !d.Allowed {
		return nil, s.deny(ctx, actor, rbac.ActionUpdate, target.ID, target.OrgID, d)
	}

	if err := s.checkOrg(ctx, orgID); err != nil {
		return nil, err
	}

	if err := s.users.UpdateOrg(ctx, target.ID, orgID); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	previous := target.OrgID
	target.OrgID = orgID

	s.record(ctx, audit.NewEvent(ctx, actor.ID, audit.ActionUpdateOrg, audit.ResourceTypeUser, target.ID).
		With("new_org_id", orgID).
		With("old_org_id", previous).
		InOrg(orgID))
	return target, nil
}

// Delete removes userID and their credentials. Nobody deletes themselves and
// the actor must outrank the target.
func (s *Service) Delete(ctx context.Context, actor rbac.Principal, userID string) error {
	target, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	d := s.authz.Confirm(ctx, actor, rbac.ActionDelete, rbac.ResourceUser, canDelete(actor, target.Principal()))
	if !d.Allowed {
		return s.deny(ctx, actor, rbac.ActionDelete, target.ID, target.OrgID, d)
	}

	if err := s.users.Delete(ctx, target.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.record(ctx, audit.NewEvent(ctx, actor.ID, audit.ActionDeleteUser, audit.ResourceTypeUser, target.ID).
		With("email", target.Email).
		InOrg(target.OrgID))
	return nil
}

func canDelete(actor, target rbac.Principal) rbac.Decision {
	if actor.ID != "" && actor.ID == target.ID {
		return rbac.Decision{Rule: RuleSelfDelete, Reason: "You cannot delete your own account"}
	}
	if d := rbac.Check(actor, rbac.ActionDelete, rbac.ResourceUser, target.ID, target.OrgID); !d.Allowed {
		return d
	}
	if !rbac.Outranks(actor.Role, target.Role) {
		return rbac.Decision{Rule: rbac.RuleOutranksTarget, Reason: "You can only delete users below you"}
	}
	return rbac.Decision{Allowed: true, Rule: rbac.RuleOutranksTarget, Reason: "Requester outranks the target user"}
}

func (s *Service) checkOrg(ctx context.Context, orgID string) error {
	if orgID == "" || s.orgs == nil {
		return nil
	}
	if _, err := s.orgs.GetOrganization(ctx, orgID); err != nil {
		if errors.Is(err, orgs.ErrNotFound) {
			return ErrOrgNotFound
		}
		return fmt.Errorf("failed to check organization: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, userID string) (*users.Profile, error) {
	p, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return p, nil
}

func (s *Service) deny(ctx context.Context, actor rbac.Principal, action rbac.Action, targetID, orgID string, d rbac.Decision) error {
	s.record(ctx, audit.NewEvent(ctx, actor.ID, audit.ActionAccessDenied, audit.ResourceTypeUser, targetID).
		With("action", string(action)).
		With("rule", d.Rule).
		Denied(d.Reason).
		InOrg(orgID))
	observability.UpdateLoggerWithTraceContext(ctx, s.logger).WithFields(map[string]interface{}{
		"action": string(action),
		"rule":   d.Rule,
		"target": targetID,
	}).Info("membership operation denied")
	return &ForbiddenError{Decision: d}
}

func (s *Service) record(ctx context.Context, event *audit.Event) {
	if err := s.audit.Log(ctx, event); err != nil {
		if s.metrics != nil {
			s.metrics.AuditWriteFailures.Inc()
		}
		s.logger.WithError(err).WithField("audit_action", string(event.Action)).Warn("audit write failed")
	}
}
