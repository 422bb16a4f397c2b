package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docvault/pkg/audit"
	"github.com/platinummonkey/docvault/pkg/auth"
	"github.com/platinummonkey/docvault/pkg/documents"
	"github.com/platinummonkey/docvault/pkg/keys"
	"github.com/platinummonkey/docvault/pkg/members"
	"github.com/platinummonkey/docvault/pkg/middleware"
	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/orgs"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/secrets"
	"github.com/platinummonkey/docvault/pkg/users"
)

const (
	testKeyHex = "8f1c2b3a4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8"
	testSecret = "0123456789abcdef0123456789abcdef"
)

type memAudit struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (m *memAudit) Log(ctx context.Context, e *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memAudit) Close() error { return nil }

func (m *memAudit) Search(ctx context.Context, f audit.SearchFilter) ([]*audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*audit.Event
	for _, e := range m.events {
		if f.OrgID != "" && e.OrgID != f.OrgID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memAudit) actions() []audit.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Action, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Action)
	}
	return out
}

type memOrgs struct {
	mu   sync.Mutex
	orgs map[string]*orgs.Organization
}

func (m *memOrgs) CreateOrganization(ctx context.Context, org *orgs.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	org.ID = "org-" + strings.ToLower(strings.ReplaceAll(org.Name, " ", "-"))
	org.OrgCode = "NEWCODE1"
	m.orgs[org.ID] = org
	return nil
}

func (m *memOrgs) GetOrganization(ctx context.Context, id string) (*orgs.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orgs[id]; ok {
		return o, nil
	}
	return nil, orgs.ErrNotFound
}

func (m *memOrgs) GetOrganizationByCode(ctx context.Context, code string) (*orgs.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.OrgCode == strings.ToUpper(code) {
			return o, nil
		}
	}
	return nil, orgs.ErrNotFound
}

func (m *memOrgs) ListOrganizations(ctx context.Context) ([]*orgs.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*orgs.Organization, 0, len(m.orgs))
	for _, o := range m.orgs {
		out = append(out, o)
	}
	return out, nil
}

func (m *memOrgs) UpdateOrganization(ctx context.Context, org *orgs.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[org.ID]; !ok {
		return orgs.ErrNotFound
	}
	m.orgs[org.ID] = org
	return nil
}

func (m *memOrgs) DeleteOrganization(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[id]; !ok {
		return orgs.ErrNotFound
	}
	delete(m.orgs, id)
	return nil
}

func (m *memOrgs) GetOrganizationStats(ctx context.Context, id string) (*orgs.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[id]; !ok {
		return nil, orgs.ErrNotFound
	}
	return &orgs.Stats{OrgID: id, MemberCount: 4, PendingCount: 1}, nil
}

type memDocs struct {
	mu   sync.Mutex
	docs map[string]*documents.Document
}

func (m *memDocs) Get(ctx context.Context, id string) (*documents.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[id]; ok {
		return d, nil
	}
	return nil, documents.ErrNotFound
}

func (m *memDocs) ListCopies(ctx context.Context, title, ownerID string) ([]*documents.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*documents.Document
	for _, d := range m.docs {
		if d.Title == title && d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDocs) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs, id)
	}
	return int64(len(ids)), nil
}

func (m *memDocs) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

type fixture struct {
	server *Server
	users  *users.MemoryStore
	tokens *auth.TokenIssuer
	audit  *memAudit
	docs   *memDocs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	metrics := observability.NewTestMetrics()
	store := users.NewMemoryStore()
	auditLog := &memAudit{}
	orgStore := &memOrgs{orgs: map[string]*orgs.Organization{
		"A": {ID: "A", Name: "Acme", OrgCode: "ACME1234"},
		"B": {ID: "B", Name: "Beta", OrgCode: "BETA1234"},
	}}
	docs := &memDocs{docs: map[string]*documents.Document{}}

	for _, p := range []*users.Profile{
		{ID: "god", Role: rbac.RoleGod},
		{ID: "sa", Role: rbac.RoleSuperAdmin, OrgID: "A"},
		{ID: "admin", Role: rbac.RoleAdmin, OrgID: "A"},
		{ID: "member", Role: rbac.RoleUser, OrgID: "A"},
		{ID: "other", Role: rbac.RoleUser, OrgID: "B"},
	} {
		p.Email = p.ID + "@example.com"
		p.IsActive = true
		p.ApprovalStatus = users.ApprovalApproved
		store.Put(p)
	}
	store.Put(&users.Profile{ID: "pending", Email: "pending@example.com", Role: rbac.RoleUser, OrgID: "A", IsActive: true, ApprovalStatus: users.ApprovalPending})

	tokens, err := auth.NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	cipher, err := secrets.NewCipher(testKeyHex)
	require.NoError(t, err)

	deps := Deps{
		Auth:  auth.NewService(store, orgStore, tokens, auditLog, logger),
		Authn: middleware.NewAuthMiddleware(tokens, store, logger),
		Keys: keys.NewService(keys.Config{
			Store: keys.NewMemoryStore(), Cipher: cipher, Owners: store,
			Audit: auditLog, Metrics: metrics, Logger: logger,
		}),
		Members: members.NewService(members.Config{
			Users: store, Orgs: orgStore, Audit: auditLog, Metrics: metrics, Logger: logger,
		}),
		Documents: documents.NewService(documents.Config{
			Store: docs, Owners: store, Audit: auditLog, Metrics: metrics, Logger: logger,
		}),
		Orgs:     orgStore,
		Search:   auditLog,
		Audit:    auditLog,
		Metrics:  metrics,
		Registry: prometheus.NewRegistry(),
		Logger:   logger,
	}

	return &fixture{
		server: NewServer(deps),
		users:  store,
		tokens: tokens,
		audit:  auditLog,
		docs:   docs,
	}
}

func (f *fixture) do(t *testing.T, method, path, as string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		p, err := f.users.GetByID(context.Background(), as)
		require.NoError(t, err)
		tok, _, err := f.tokens.Issue(p)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "new@example.com", "password": "correct horse", "full_name": "New Person",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "new@example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session auth.Session
	decode(t, w, &session)
	assert.NotEmpty(t, session.Token)

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "new@example.com", "password": "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterWithOrgCodeIsPending(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "joiner@example.com", "password": "correct horse", "full_name": "Joiner", "org_code": "acme1234",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res auth.RegisterResult
	decode(t, w, &res)
	assert.True(t, res.Pending)

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "joiner@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "pending approval")
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation failed")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		as        string
		wantAdmin bool
		wantGod   bool
	}{
		{"member", false, false},
		{"admin", true, false},
		{"god", true, true},
	}
	for _, tt := range tests {
		w := f.do(t, http.MethodGet, "/api/v1/me", tt.as, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			CanAccessAdmin bool `json:"can_access_admin"`
			CanAccessGod   bool `json:"can_access_god_panel"`
		}
		decode(t, w, &body)
		assert.Equal(t, tt.wantAdmin, body.CanAccessAdmin, tt.as)
		assert.Equal(t, tt.wantGod, body.CanAccessGod, tt.as)
	}
}

func TestCheckPermission(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		as      string
		req     map[string]string
		allowed bool
		rule    string
	}{
		{"owner deletes own document", "member", map[string]string{"resource": "document", "action": "delete", "owner_id": "member"}, true, rbac.RuleOwner},
		{"member deletes someone else's", "member", map[string]string{"resource": "document", "action": "delete", "owner_id": "admin"}, false, rbac.RuleMinimumRole},
		{"god panel is reserved", "god", map[string]string{"resource": "god_panel", "action": "access"}, false, rbac.RuleGodPanelReserved},
		{"cross org", "admin", map[string]string{"resource": "document", "action": "read", "resource_org_id": "B"}, false, rbac.RuleOrgBoundary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/permissions/check", tt.as, tt.req)
			require.Equal(t, http.StatusOK, w.Code)

			var d rbac.Decision
			decode(t, w, &d)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.rule, d.Rule)
		})
	}
}

func TestKeyLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/users/member/ai-keys", "member", map[string]string{
		"provider": "openai", "api_key": "sk-test-1234567890",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "sk-test-1234567890")

	var key keys.APIKey
	decode(t, w, &key)

	w = f.do(t, http.MethodGet, "/api/v1/users/member/ai-keys", "member", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-test-1234567890")

	w = f.do(t, http.MethodGet, "/api/v1/users/member/ai-keys/openai/status", "member", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"provider":"openai","usable":true}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/v1/users/member/ai-keys/groq/status", "member", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"usable":false`)

	// Admin is below the super admin threshold for other users' keys.
	w = f.do(t, http.MethodGet, "/api/v1/users/member/ai-keys", "admin", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/users/member/ai-keys/"+key.ID, "member", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAddKeyRejectsUnknownProvider(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/users/member/ai-keys", "member", map[string]string{
		"provider": "cohere", "api_key": "k",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)
	f.docs.docs["d1"] = &documents.Document{ID: "d1", Title: "Plan", OwnerID: "member", OrgID: "A"}
	f.docs.docs["d2"] = &documents.Document{ID: "d2", Title: "Plan", OwnerID: "member", OrgID: "A"}
	f.docs.docs["d3"] = &documents.Document{ID: "d3", Title: "Other", OwnerID: "admin", OrgID: "A"}

	w := f.do(t, http.MethodDelete, "/api/v1/documents/d3", "member", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var denied struct {
		Rule string `json:"rule"`
	}
	decode(t, w, &denied)
	assert.NotEmpty(t, denied.Rule)

	w = f.do(t, http.MethodDelete, "/api/v1/documents/d1", "member", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res documents.DeleteResult
	decode(t, w, &res)
	assert.Len(t, res.DocumentIDs, 2)

	w = f.do(t, http.MethodDelete, "/api/v1/documents/missing", "member", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMemberApproval(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/orgs/A/pending-members", "sa", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pending@example.com")

	w = f.do(t, http.MethodPost, "/api/v1/members/pending/approve", "admin", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/members/pending/approve", "sa", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/v1/members/pending/reject", "sa", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Contains(t, f.audit.actions(), audit.ActionApproveMember)
}

func TestMemberRoleAndActive(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/v1/members/member/role", "sa", map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p users.Profile
	decode(t, w, &p)
	assert.Equal(t, rbac.RoleAdmin, p.Role)

	w = f.do(t, http.MethodPut, "/api/v1/members/sa/role", "sa", map[string]string{"role": "user"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPut, "/api/v1/members/member/role", "sa", map[string]string{"role": "emperor"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/v1/members/admin/active", "sa", map[string]bool{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The deactivated admin is locked out on the next request.
	w = f.do(t, http.MethodGet, "/api/v1/me", "admin", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateOrganization(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/orgs", "admin", map[string]string{"name": "Gamma"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/orgs", "god", map[string]string{"name": "Gamma"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var org orgs.Organization
	decode(t, w, &org)
	assert.NotEmpty(t, org.OrgCode)

	w = f.do(t, http.MethodGet, "/api/v1/orgs", "sa", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []*orgs.Organization
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].ID)

	w = f.do(t, http.MethodGet, "/api/v1/orgs/B", "sa", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateAndDeleteOrganization(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/v1/orgs/A", "admin", map[string]string{"name": "Acme Labs"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPut, "/api/v1/orgs/B", "sa", map[string]string{"name": "Taken Over"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPut, "/api/v1/orgs/A", "sa", map[string]string{"description": "Widgets"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var org orgs.Organization
	decode(t, w, &org)
	assert.Equal(t, "Acme", org.Name)
	assert.Equal(t, "Widgets", org.Description)
	assert.Equal(t, "ACME1234", org.OrgCode)

	w = f.do(t, http.MethodGet, "/api/v1/orgs/A/stats", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats orgs.Stats
	decode(t, w, &stats)
	assert.Equal(t, 4, stats.MemberCount)

	w = f.do(t, http.MethodGet, "/api/v1/orgs/B/stats", "admin", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/orgs/B", "sa", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/orgs/B", "god", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodGet, "/api/v1/orgs/B", "god", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Contains(t, f.audit.actions(), audit.ActionUpdate)
	assert.Contains(t, f.audit.actions(), audit.ActionDelete)
	assert.Contains(t, f.audit.actions(), audit.ActionAccessDenied)
}

func TestCreateAndListMembers(t *testing.T) {
	f := newFixture(t)
	body := map[string]string{
		"email": "staff@example.com", "password": "correct horse", "full_name": "Staff", "role": "admin", "org_id": "A",
	}

	w := f.do(t, http.MethodPost, "/api/v1/members", "admin", body)
	require.Equal(t, http.StatusForbidden, w.Code)
	var denied struct {
		Rule string `json:"rule"`
	}
	decode(t, w, &denied)
	assert.Equal(t, rbac.RuleGrantCeiling, denied.Rule)

	w = f.do(t, http.MethodPost, "/api/v1/members", "sa", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created users.Profile
	decode(t, w, &created)
	assert.Equal(t, rbac.RoleAdmin, created.Role)

	w = f.do(t, http.MethodPost, "/api/v1/members", "sa", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	body["email"], body["role"] = "x@example.com", "emperor"
	w = f.do(t, http.MethodPost, "/api/v1/members", "sa", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "staff@example.com", "password": "correct horse"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/v1/orgs/A/members", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []*users.Profile
	decode(t, w, &list)
	assert.Len(t, list, 5)

	w = f.do(t, http.MethodGet, "/api/v1/orgs/A/members", "other", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMoveMemberRespectsRank(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/v1/members/god/org", "sa", map[string]string{"org_id": "A"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(t, http.MethodPut, "/api/v1/members/sa/org", "sa", map[string]string{"org_id": ""})
	assert.Equal(t, http.StatusForbidden, w.Code)

	god, err := f.users.GetByID(context.Background(), "god")
	require.NoError(t, err)
	assert.Empty(t, god.OrgID)

	w = f.do(t, http.MethodPut, "/api/v1/members/member/org", "god", map[string]string{"org_id": "B"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAuditSearch(t *testing.T) {
	f := newFixture(t)
	f.audit.Log(context.Background(), &audit.Event{Action: audit.ActionLogin, OrgID: "A"})
	f.audit.Log(context.Background(), &audit.Event{Action: audit.ActionLogin, OrgID: "B"})

	w := f.do(t, http.MethodGet, "/api/v1/audit-logs", "member", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/audit-logs?org_id=B", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []*audit.Event
	decode(t, w, &events)
	for _, e := range events {
		assert.Equal(t, "A", e.OrgID)
	}

	w = f.do(t, http.MethodGet, "/api/v1/audit-logs?limit=zero", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRateLimited(t *testing.T) {
	f := newFixture(t)

	var last int
	for i := 0; i < 10; i++ {
		w := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email": "nobody@example.com", "password": "x",
		})
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
