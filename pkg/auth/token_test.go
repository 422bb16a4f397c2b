package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/users"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestNewTokenIssuer_ShortSecret(t *testing.T) {
	_, err := NewTokenIssuer("short", time.Hour)
	assert.Error(t, err)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)
	profile := &users.Profile{ID: "u1", Role: rbac.RoleAdmin, OrgID: "o1"}

	token, expires, err := issuer.Issue(profile)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "o1", claims.OrgID)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := newTestIssuer(t)
	token, _, err := issuer.Issue(&users.Profile{ID: "u1", Role: rbac.RoleUser})
	require.NoError(t, err)

	other, err := NewTokenIssuer(strings.Repeat("x", 32), time.Hour)
	require.NoError(t, err)

	expired := newTestIssuer(t)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: tokenIssuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		issuer *TokenIssuer
		token  string
	}{
		{"wrong secret", other, token},
		{"expired", expired, token},
		{"alg none", issuer, unsigned},
		{"garbage", issuer, "not.a.jwt"},
		{"truncated signature", issuer, token[:len(token)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.issuer.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$12$"))
	assert.True(t, CheckPassword(hash, "correct horse battery"))
	assert.False(t, CheckPassword(hash, "wrong password"))
	assert.False(t, CheckPassword("not-a-hash", "anything"))
}
