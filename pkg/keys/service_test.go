package keys

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docvault/pkg/audit"
	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/secrets"
	"github.com/platinummonkey/docvault/pkg/users"
)

const testKeyHex = "8f1c2b3a4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8"

type captureAudit struct{ events []*audit.Event }

func (c *captureAudit) Log(ctx context.Context, e *audit.Event) error {
	c.events = append(c.events, e)
	return nil
}
func (c *captureAudit) Close() error { return nil }

func (c *captureAudit) last() *audit.Event {
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

var (
	owner      = rbac.Principal{ID: "u1", Role: rbac.RoleUser, OrgID: "o1"}
	peer       = rbac.Principal{ID: "u2", Role: rbac.RoleUser, OrgID: "o1"}
	orgAdmin   = rbac.Principal{ID: "a1", Role: rbac.RoleAdmin, OrgID: "o1"}
	superAdmin = rbac.Principal{ID: "s1", Role: rbac.RoleSuperAdmin, OrgID: "o1"}
	otherSuper = rbac.Principal{ID: "s2", Role: rbac.RoleSuperAdmin, OrgID: "o2"}
)

type fixture struct {
	svc     *Service
	store   *MemoryStore
	audit   *captureAudit
	metrics *observability.Metrics
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cipher, err := secrets.NewCipher(testKeyHex)
	require.NoError(t, err)

	profiles := users.NewMemoryStore()
	profiles.Put(&users.Profile{ID: "u1", Role: rbac.RoleUser, OrgID: "o1", IsActive: true})

	f := &fixture{
		store:   NewMemoryStore(),
		audit:   &captureAudit{},
		metrics: observability.NewTestMetrics(),
		logs:    &bytes.Buffer{},
	}
	f.svc = NewService(Config{
		Store:   f.store,
		Cipher:  cipher,
		Owners:  profiles,
		Audit:   f.audit,
		Metrics: f.metrics,
		Logger:  observability.NewLogger(observability.DebugLevel, f.logs),
	})
	return f
}

func TestService_AddAndResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key, err := f.svc.Add(ctx, owner, "u1", ProviderOpenAI, "sk-test-123", "")
	require.NoError(t, err)
	assert.Equal(t, "openai key", key.Label)
	assert.True(t, key.IsActive)

	raw, ok := f.store.Raw(key.ID)
	require.True(t, ok)
	assert.NotContains(t, raw.Secret.Ciphertext, "sk-test-123")
	assert.Len(t, raw.Secret.IV, 32)
	assert.Len(t, raw.Secret.AuthTag, 32)

	ev := f.audit.last()
	assert.Equal(t, audit.ActionCreate, ev.Action)
	assert.Equal(t, audit.ResourceTypeAPIKey, ev.ResourceType)
	assert.Equal(t, "openai", ev.Details["provider"])

	plaintext, err := f.svc.Resolve(ctx, owner, "u1", ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", plaintext)

	assert.NotContains(t, f.logs.String(), "sk-test-123", "secrets never reach the log")
}

func TestService_AddReplacesActiveKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Add(ctx, owner, "u1", ProviderGroq, "gsk-old", "personal")
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, owner, "u1", ProviderGroq, "gsk-new", "")
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, owner, "u1", ProviderAnthropic, "sk-ant", "")
	require.NoError(t, err)

	list, err := f.svc.List(ctx, owner, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ProviderAnthropic, list[0].Provider, "newest first")

	old, _ := f.store.Raw(first.ID)
	assert.False(t, old.IsActive)

	got, err := f.svc.Resolve(ctx, owner, "u1", ProviderGroq)
	require.NoError(t, err)
	assert.Equal(t, "gsk-new", got)
}

func TestService_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key, err := f.svc.Add(ctx, owner, "u1", ProviderOpenAI, "sk-1", "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   rbac.Principal
		allowed bool
	}{
		{"owner", owner, true},
		{"super admin same org", superAdmin, true},
		{"peer", peer, false},
		{"admin is not enough", orgAdmin, false},
		{"super admin other org", otherSuper, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.List(ctx, tt.actor, "u1")
			_, resolveErr := f.svc.Resolve(ctx, tt.actor, "u1", ProviderOpenAI)
			if tt.allowed {
				assert.NoError(t, err)
				assert.NoError(t, resolveErr)
				return
			}
			assert.ErrorIs(t, err, ErrForbidden)
			assert.ErrorIs(t, resolveErr, ErrForbidden)

			var fe *ForbiddenError
			require.True(t, errors.As(err, &fe))
			assert.NotEmpty(t, fe.Decision.Rule)
			assert.Equal(t, audit.ActionAccessDenied, f.audit.last().Action)
		})
	}

	err = f.svc.Remove(ctx, peer, "u1", key.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, ok := f.store.Raw(key.ID)
	assert.True(t, ok)
}

func TestService_MissingOwnerLooksForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   rbac.Principal
		ownerID string
		wantErr error
	}{
		{"peer asks for an unknown user", peer, "ghost", ErrForbidden},
		{"peer asks for an existing user", peer, "u1", ErrForbidden},
		{"admin asks for an unknown user", orgAdmin, "ghost", ErrForbidden},
		{"super admin asks for an unknown user", superAdmin, "ghost", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.List(ctx, tt.actor, tt.ownerID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var missing, existing *ForbiddenError
	_, err := f.svc.List(ctx, peer, "ghost")
	require.ErrorAs(t, err, &missing)
	_, err = f.svc.List(ctx, peer, "u1")
	require.ErrorAs(t, err, &existing)
	assert.Equal(t, existing.Decision, missing.Decision)
}

func TestService_Remove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key, err := f.svc.Add(ctx, owner, "u1", ProviderOpenAI, "sk-1", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(ctx, owner, "u1", key.ID))
	assert.Equal(t, audit.ActionDelete, f.audit.last().Action)
	assert.ErrorIs(t, f.svc.Remove(ctx, owner, "u1", key.ID), ErrNotFound)

	_, err = f.svc.Resolve(ctx, owner, "u1", ProviderOpenAI)
	assert.ErrorIs(t, err, ErrNoUsableKey)
}

func TestService_ResolveTamperedKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key, err := f.svc.Add(ctx, owner, "u1", ProviderOpenAI, "sk-test-123", "")
	require.NoError(t, err)

	f.store.Corrupt(key.ID, func(k *APIKey) {
		tag := []byte(k.Secret.AuthTag)
		if tag[0] == '0' {
			tag[0] = '1'
		} else {
			tag[0] = '0'
		}
		k.Secret.AuthTag = string(tag)
	})

	_, err = f.svc.Resolve(ctx, owner, "u1", ProviderOpenAI)
	assert.ErrorIs(t, err, ErrNoUsableKey)
	assert.False(t, secrets.IsTamper(err), "crypto errors are not surfaced")

	assert.Equal(t, audit.ActionKeyUnusable, f.audit.last().Action)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.KeysUnusableTotal.WithLabelValues("openai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CipherOperationsTotal.WithLabelValues("decrypt", observability.OutcomeFailed)))
	assert.Contains(t, f.logs.String(), `"tampered":true`)
}

func TestService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, owner, "u1", ProviderOpenAI, "   ", "")
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = f.svc.Add(ctx, owner, "u1", Provider("mistral"), "k", "")
	assert.ErrorIs(t, err, ErrInvalidProvider)

	_, err = f.svc.Add(ctx, owner, "ghost", ProviderOpenAI, "k", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	_, err = ParseProvider("cohere")
	assert.ErrorIs(t, err, ErrInvalidProvider)
}
