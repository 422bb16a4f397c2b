package keys

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/docvault/pkg/audit"
	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/policy"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/secrets"
	"github.com/platinummonkey/docvault/pkg/users"
)

// OwnerLookup loads the profile a key belongs to so the organization
// boundary can be applied.
type OwnerLookup interface {
	GetByID(ctx context.Context, id string) (*users.Profile, error)
}

// Service manages a user's encrypted AI provider keys.
type Service struct {
	store   Store
	cipher  *secrets.Cipher
	authz   policy.Authorizer
	owners  OwnerLookup
	audit   audit.Logger
	metrics *observability.Metrics
	logger  *observability.Logger
}

// Config groups the Service dependencies. Audit, Metrics and Logger are
// optional.
type Config struct {
	Store   Store
	Cipher  *secrets.Cipher
	Authz   policy.Authorizer
	Owners  OwnerLookup
	Audit   audit.Logger
	Metrics *observability.Metrics
	Logger  *observability.Logger
}

// NewService creates a key service
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
		store:   cfg.Store,
		cipher:  cfg.Cipher,
		authz:   cfg.Authz,
		owners:  cfg.Owners,
		audit:   cfg.Audit,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// authorize resolves the key owner and checks action on ai_key. Callers the
// matrix refuses even inside their own organization are denied before the
// owner lookup, so a missing owner and another user's keys look the same.
func (s *Service) authorize(ctx context.Context, actor rbac.Principal, action rbac.Action, ownerID string) error {
	if d := rbac.Check(actor, action, rbac.ResourceAIKey, ownerID, actor.OrgID); !d.Allowed {
		return s.deny(ctx, actor, action, ownerID, s.authz.Confirm(ctx, actor, action, rbac.ResourceAIKey, d))
	}

	owner, err := s.owners.GetByID(ctx, ownerID)
	if errors.Is(err, users.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load key owner: %w", err)
	}

	d := s.authz.Check(ctx, actor, action, rbac.ResourceAIKey, owner.ID, owner.OrgID)
	if !d.Allowed {
		return s.deny(ctx, actor, action, ownerID, d)
	}
	return nil
}

func (s *Service) deny(ctx context.Context, actor rbac.Principal, action rbac.Action, ownerID string, d rbac.Decision) error {
	s.record(ctx, audit.NewEvent(ctx, actor.ID, audit.ActionAccessDenied, audit.ResourceTypeAPIKey, "").
		With("action", string(action)).
		With("owner_id", ownerID).
		With("rule", d.Rule).
		Denied(d.Reason).
		InOrg(actor.OrgID))
	return &ForbiddenError{Decision: d}
}

// Add encrypts plaintext and stores it as the owner's active key for
// provider, deactivating any previous key for that provider.
func (s *Service) Add(ctx context.Context, actor rbac.Principal, ownerID string, provider Provider, plaintext, label string) (*APIKey, error) {
	if strings.TrimSpace(plaintext) == "" {
		return nil, ErrEmptySecret
	}
	if _, err := ParseProvider(string(provider)); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, rbac.ActionCreate, ownerID); err != nil {
		return nil, err
	}

	sealed, err := s.cipher.Encrypt(plaintext)
	s.metrics.RecordCipher("encrypt", err)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api key: %w", err)
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = provider.DefaultLabel()
	}
	key := &APIKey{UserID: ownerID, Provider: provider, Label: label, Secret: sealed}
	if err := s.store.Replace(ctx, key); err != nil {
		return nil, err
	}

	s.record(ctx, audit.NewEvent(ctx, actor.ID, audit.ActionCreate, audit.ResourceTypeAPIKey, key.ID).
		With("provider", string(provider)).
		InOrg(actor.OrgID))
	s.logger.WithFields(map[string]interface{}{
		"key_id":   key.ID,
		"provider": string(provider),
	}).Info("API key stored")

	return key, nil
}

// List returns key metadata for ownerID, newest first.
func (s *Service) List(ctx context.Context, actor rbac.Principal, ownerID string) ([]*APIKey, error) {
	if err := s.authorize(ctx, actor, rbac.ActionRead, ownerID); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, ownerID)
}

// Remove hard-deletes keyID if it belongs to ownerID.
func (s *Service) Remove(ctx context.Context, actor rbac.Principal, ownerID, keyID string) error {
	if err := s.authorize(ctx, actor, rbac.ActionDelete, ownerID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, keyID, ownerID); err != nil {
		return err
	}
	s.record(ctx, audit.NewEvent(ctx, actor.ID, audit.ActionDelete, audit.ResourceTypeAPIKey, keyID).InOrg(actor.OrgID))
	return nil
}

// Resolve decrypts the owner's active key for provider. A key that fails
// authentication is reported as ErrNoUsableKey.
func (s *Service) Resolve(ctx context.Context, actor rbac.Principal, ownerID string, provider Provider) (string, error) {
	if err := s.authorize(ctx, actor, rbac.ActionAccess, ownerID); err != nil {
		return "", err
	}

	key, err := s.store.ActiveForProvider(ctx, ownerID, provider)
	if errors.Is(err, ErrNotFound) {
		return "", ErrNoUsableKey
	}
	if err != nil {
		return "", err
	}

	plaintext, err := s.cipher.Decrypt(key.Secret)
	s.metrics.RecordCipher("decrypt", err)
	if err != nil {
		if s.metrics != nil {
			s.metrics.KeysUnusableTotal.WithLabelValues(string(provider)).Inc()
		}
		observability.UpdateLoggerWithTraceContext(ctx, s.logger).WithFields(map[string]interface{}{
			"key_id":   key.ID,
			"provider": string(provider),
			"tampered": secrets.IsTamper(err),
		}).Warn("stored API key failed to decrypt")
		s.record(ctx, audit.NewEvent(ctx, actor.ID, audit.ActionKeyUnusable, audit.ResourceTypeAPIKey, key.ID).
			With("provider", string(provider)).
			Failed("stored key failed authentication").
			InOrg(actor.OrgID))
		return "", ErrNoUsableKey
	}
	return plaintext, nil
}

func (s *Service) record(ctx context.Context, event *audit.Event) {
	if err := s.audit.Log(ctx, event); err != nil {
		if s.metrics != nil {
			s.metrics.AuditWriteFailures.Inc()
		}
		s.logger.WithError(err).WithField("audit_action", string(event.Action)).Warn("audit write failed")
	}
}
