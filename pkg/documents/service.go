package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/docvault/pkg/audit"
	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/policy"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/storage"
	"github.com/platinummonkey/docvault/pkg/users"
)

// OwnerLookup resolves the role of a document's owner.
type OwnerLookup interface {
	GetByID(ctx context.Context, id string) (*users.Profile, error)
}

// Config groups the Service dependencies. Blobs defaults to a no-op store;
// Audit, Metrics and Logger are optional.
type Config struct {
	Store   Store
	Blobs   storage.BlobStore
	Owners  OwnerLookup
	Authz   policy.Authorizer
	Audit   audit.Logger
	Metrics *observability.Metrics
	Logger  *observability.Logger
}

// Service deletes documents and their stored files.
type Service struct {
	store   Store
	blobs   storage.BlobStore
	owners  OwnerLookup
	authz   policy.Authorizer
	audit   audit.Logger
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewService creates a document service
func NewService(cfg Config) *Service {
	if cfg.Blobs == nil {
		cfg.Blobs = storage.NoopBlobStore{}
	}
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
		blobs:   cfg.Blobs,
		owners:  cfg.Owners,
		authz:   cfg.Authz,
		audit:   cfg.Audit,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// Delete removes docID. Other rows sharing its title and owner are deleted
// too when the actor may delete each of them on its own; the rest are kept
// and reported as retained. Stored files still referenced by a retained copy
// are left in place. File removal failures are logged and do not stop the
// deletion.
func (s *Service) Delete(ctx context.Context, actor rbac.Principal, docID string) (*DeleteResult, error) {
	doc, err := s.store.Get(ctx, docID)
	if err != nil {
		return nil, err
	}

	var ownerRole rbac.Role
	if actor.ID != doc.OwnerID {
		if ownerRole, err = s.ownerRole(ctx, doc.OwnerID); err != nil {
			return nil, err
		}
	}

	d := s.authz.Confirm(ctx, actor, rbac.ActionDelete, rbac.ResourceDocument, rbac.CanDeleteDocument(actor, factsFor(doc, ownerRole)))
	if !d.Allowed {
		s.record(ctx, audit.NewEvent(ctx, actor.ID, audit.ActionAccessDenied, audit.ResourceTypeDocument, doc.ID).
			With("action", string(rbac.ActionDelete)).
			With("rule", d.Rule).
			Denied(d.Reason).
			InOrg(doc.OrgID))
		return nil, &ForbiddenError{Decision: d}
	}

	copies, err := s.store.ListCopies(ctx, doc.Title, doc.OwnerID)
	if err != nil {
		return nil, err
	}

	doomed := []*Document{doc}
	var kept []*Document
	for _, c := range copies {
		if c.ID == doc.ID {
			continue
		}
		if rbac.CanDeleteDocument(actor, factsFor(c, ownerRole)).Allowed {
			doomed = append(doomed, c)
		} else {
			kept = append(kept, c)
		}
	}

	result := &DeleteResult{}
	for _, c := range doomed {
		result.DocumentIDs = append(result.DocumentIDs, c.ID)
	}
	for _, c := range kept {
		result.RetainedIDs = append(result.RetainedIDs, c.ID)
	}

	if len(doomed) == 1 {
		err = s.store.Delete(ctx, doc.ID)
	} else {
		_, err = s.store.DeleteMany(ctx, result.DocumentIDs)
	}
	if err != nil {
		return nil, err
	}
	result.ObjectsRemoved = s.removeObjects(ctx, doomed, kept)

	s.record(ctx, audit.NewEvent(ctx, actor.ID, audit.ActionDelete, audit.ResourceTypeDocument, doc.ID).
		With("title", doc.Title).
		With("copies", len(result.DocumentIDs)).
		With("retained", len(result.RetainedIDs)).
		With("rule", d.Rule).
		InOrg(doc.OrgID))
	return result, nil
}

func factsFor(doc *Document, ownerRole rbac.Role) rbac.DocumentFacts {
	return rbac.DocumentFacts{OwnerID: doc.OwnerID, OwnerRole: ownerRole, OrgID: doc.OrgID, IsPublic: doc.IsPublic}
}

// ownerRole returns "" when the owner no longer exists, which the deletion
// rule treats as unverifiable.
func (s *Service) ownerRole(ctx context.Context, ownerID string) (rbac.Role, error) {
	owner, err := s.owners.GetByID(ctx, ownerID)
	if errors.Is(err, users.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load document owner: %w", err)
	}
	return owner.Role, nil
}

// removeObjects deletes the distinct stored files of docs that no row in
// keep still references, and returns how many paths were sent to the backend
// successfully.
func (s *Service) removeObjects(ctx context.Context, docs, keep []*Document) int {
	seen := make(map[string]bool)
	for _, d := range keep {
		if path, ok := storage.ObjectPath(d.FileURL); ok {
			seen[path] = true
		}
	}
	var paths []string
	for _, d := range docs {
		path, ok := storage.ObjectPath(d.FileURL)
		if !ok || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return 0
	}

	backend := s.blobs.Backend()
	if err := s.blobs.Remove(ctx, paths...); err != nil {
		s.countRemoval(backend, observability.OutcomeFailed)
		observability.UpdateLoggerWithTraceContext(ctx, s.logger).
			WithError(err).
			WithFields(map[string]interface{}{"backend": backend, "objects": len(paths)}).
			Warn("document file removal failed")
		return 0
	}
	s.countRemoval(backend, observability.OutcomeOK)
	return len(paths)
}

func (s *Service) countRemoval(backend, outcome string) {
	if s.metrics != nil {
		s.metrics.BlobRemovalsTotal.WithLabelValues(backend, outcome).Inc()
	}
}

func (s *Service) record(ctx context.Context, event *audit.Event) {
	if err := s.audit.Log(ctx, event); err != nil {
		if s.metrics != nil {
			s.metrics.AuditWriteFailures.Inc()
		}
		s.logger.WithError(err).WithField("audit_action", string(event.Action)).Warn("audit write failed")
	}
}
