package documents

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docvault/pkg/audit"
	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/users"
)

type memStore struct {
	mu   sync.Mutex
	docs map[string]*Document
}

func newMemStore(docs ...*Document) *memStore {
	m := &memStore{docs: make(map[string]*Document)}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

func (m *memStore) Get(ctx context.Context, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) ListCopies(ctx context.Context, title, ownerID string) ([]*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Document
	for _, d := range m.docs {
		if d.Title == title && d.OwnerID == ownerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.docs[id]; ok {
			delete(m.docs, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	return ok
}

type fakeBlobs struct {
	removed []string
	err     error
}

func (f *fakeBlobs) Remove(ctx context.Context, paths ...string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, paths...)
	return nil
}

func (f *fakeBlobs) Backend() string { return "fake" }

type captureAudit struct{ events []*audit.Event }

func (c *captureAudit) Log(ctx context.Context, e *audit.Event) error {
	c.events = append(c.events, e)
	return nil
}
func (c *captureAudit) Close() error { return nil }

type fixture struct {
	svc     *Service
	store   *memStore
	blobs   *fakeBlobs
	audit   *captureAudit
	metrics *observability.Metrics
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, docs ...*Document) *fixture {
	t.Helper()
	owners := users.NewMemoryStore()
	owners.Put(&users.Profile{ID: "user", Role: rbac.RoleUser, OrgID: "A"})
	owners.Put(&users.Profile{ID: "sa", Role: rbac.RoleSuperAdmin, OrgID: "A"})

	f := &fixture{
		store:   newMemStore(docs...),
		blobs:   &fakeBlobs{},
		audit:   &captureAudit{},
		metrics: observability.NewTestMetrics(),
		logs:    &bytes.Buffer{},
	}
	f.svc = NewService(Config{
		Store:   f.store,
		Blobs:   f.blobs,
		Owners:  owners,
		Audit:   f.audit,
		Metrics: f.metrics,
		Logger:  observability.NewLogger(observability.DebugLevel, f.logs),
	})
	return f
}

var (
	userA  = rbac.Principal{ID: "user", Role: rbac.RoleUser, OrgID: "A"}
	adminA = rbac.Principal{ID: "admin", Role: rbac.RoleAdmin, OrgID: "A"}
	adminB = rbac.Principal{ID: "admin-b", Role: rbac.RoleAdmin, OrgID: "B"}
	god    = rbac.Principal{ID: "god", Role: rbac.RoleGod}
)

func TestService_DeleteAuthorization(t *testing.T) {
	tests := []struct {
		name     string
		actor    rbac.Principal
		doc      *Document
		allowed  bool
		wantRule string
	}{
		{"owner", userA, &Document{ID: "d", OwnerID: "user", OrgID: "A"}, true, rbac.RuleOwner},
		{"admin outranks user", adminA, &Document{ID: "d", OwnerID: "user", OrgID: "A"}, true, rbac.RuleOutranksOwner},
		{"admin below super admin", adminA, &Document{ID: "d", OwnerID: "sa", OrgID: "A"}, false, rbac.RuleOutranksOwner},
		{"admin of another org", adminB, &Document{ID: "d", OwnerID: "user", OrgID: "A"}, false, rbac.RuleOrgBoundary},
		{"god on private doc", god, &Document{ID: "d", OwnerID: "user", OrgID: "A"}, false, rbac.RuleGodPublicOnly},
		{"god on public doc", god, &Document{ID: "d", OwnerID: "user", OrgID: "A", IsPublic: true}, true, rbac.RuleGodPublicOnly},
		{"owner profile gone", adminA, &Document{ID: "d", OwnerID: "ghost", OrgID: "A"}, false, rbac.RuleOwnerUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.doc)
			res, err := f.svc.Delete(context.Background(), tt.actor, "d")
			last := f.audit.events[len(f.audit.events)-1]
			if !tt.allowed {
				var fe *ForbiddenError
				require.ErrorAs(t, err, &fe)
				assert.ErrorIs(t, err, ErrForbidden)
				assert.Equal(t, tt.wantRule, fe.Decision.Rule)
				assert.True(t, f.store.has("d"))
				assert.Equal(t, audit.ActionAccessDenied, last.Action)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"d"}, res.DocumentIDs)
			assert.False(t, f.store.has("d"))
			assert.Equal(t, audit.ActionDelete, last.Action)
			assert.Equal(t, tt.wantRule, last.Details["rule"])
		})
	}
}

func TestService_DeleteRemovesAllCopies(t *testing.T) {
	f := newFixture(t,
		&Document{ID: "d1", Title: "Handbook", OwnerID: "user", OrgID: "A", FileURL: "https://h/storage/v1/object/public/documents/u/handbook.pdf"},
		&Document{ID: "d2", Title: "Handbook", OwnerID: "user", OrgID: "B", FileURL: "https://h/storage/v1/object/public/documents/u/handbook.pdf"},
		&Document{ID: "d3", Title: "Handbook", OwnerID: "user", OrgID: "C", FileURL: "https://h/storage/v1/object/public/documents/u/handbook-c.pdf"},
		&Document{ID: "other", Title: "Notes", OwnerID: "user", OrgID: "A"},
	)

	res, err := f.svc.Delete(context.Background(), userA, "d1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"d1", "d2", "d3"}, res.DocumentIDs)
	assert.Empty(t, res.RetainedIDs)
	assert.Equal(t, 2, res.ObjectsRemoved)
	assert.ElementsMatch(t, []string{"u/handbook.pdf", "u/handbook-c.pdf"}, f.blobs.removed)
	assert.True(t, f.store.has("other"))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BlobRemovalsTotal.WithLabelValues("fake", observability.OutcomeOK)))
}

func TestService_DeleteKeepsCopiesOutsideActorReach(t *testing.T) {
	const shared = "https://h/storage/v1/object/public/documents/u/handbook.pdf"
	tests := []struct {
		name        string
		actor       rbac.Principal
		docs        []*Document
		target      string
		wantDeleted []string
		wantKept    []string
		wantRemoved []string
	}{
		{
			name:  "admin leaves the copy in another org",
			actor: adminA,
			docs: []*Document{
				{ID: "d1", Title: "Handbook", OwnerID: "user", OrgID: "A", FileURL: shared},
				{ID: "d2", Title: "Handbook", OwnerID: "user", OrgID: "B", FileURL: shared},
				{ID: "d3", Title: "Handbook", OwnerID: "user", OrgID: "A", FileURL: "https://h/storage/v1/object/public/documents/u/a-only.pdf"},
			},
			target:      "d1",
			wantDeleted: []string{"d1", "d3"},
			wantKept:    []string{"d2"},
			wantRemoved: []string{"u/a-only.pdf"},
		},
		{
			name:  "god leaves the private copy",
			actor: god,
			docs: []*Document{
				{ID: "p", Title: "Policy", OwnerID: "user", OrgID: "A", IsPublic: true},
				{ID: "q", Title: "Policy", OwnerID: "user", OrgID: "B"},
			},
			target:      "p",
			wantDeleted: []string{"p"},
			wantKept:    []string{"q"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.docs...)
			res, err := f.svc.Delete(context.Background(), tt.actor, tt.target)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantDeleted, res.DocumentIDs)
			assert.ElementsMatch(t, tt.wantKept, res.RetainedIDs)
			assert.ElementsMatch(t, tt.wantRemoved, f.blobs.removed)
			for _, id := range tt.wantDeleted {
				assert.False(t, f.store.has(id), id)
			}
			for _, id := range tt.wantKept {
				assert.True(t, f.store.has(id), id)
			}
			last := f.audit.events[len(f.audit.events)-1]
			assert.Equal(t, len(tt.wantKept), last.Details["retained"])
		})
	}
}

func TestService_DeleteSurvivesBlobFailure(t *testing.T) {
	f := newFixture(t, &Document{ID: "d", OwnerID: "user", OrgID: "A", FileURL: "https://h/documents/x.pdf"})
	f.blobs.err = errors.New("bucket unreachable")

	res, err := f.svc.Delete(context.Background(), userA, "d")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ObjectsRemoved)
	assert.False(t, f.store.has("d"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BlobRemovalsTotal.WithLabelValues("fake", observability.OutcomeFailed)))
	assert.Contains(t, f.logs.String(), "bucket unreachable")
}

func TestService_DeleteNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Delete(context.Background(), userA, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.audit.events)
}
