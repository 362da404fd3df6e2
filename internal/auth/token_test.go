package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/billfold-app/billfold/internal/rbac"
)

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	actor := Actor{UserID: 12, Email: "ops@example.com", Role: rbac.RoleManager}
	token, err := m.IssueToken(actor)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := m.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, actor, parsed)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer, err := NewManager("secret-a", time.Hour)
	require.NoError(t, err)
	verifier, err := NewManager("secret-b", time.Hour)
	require.NoError(t, err)

	token, err := issuer.IssueToken(Actor{UserID: 1, Role: rbac.RoleAdmin})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	require.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	m, err := NewManager("test-secret", -time.Minute)
	require.NoError(t, err)
	// negative ttl falls back to the default, so build an expired manager
	// manually via a tiny ttl and a wait-free check instead
	short := &Manager{secret: []byte("test-secret"), ttl: -time.Minute}
	token, err := short.IssueToken(Actor{UserID: 3, Role: rbac.RoleUser})
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	require.Error(t, err)
}

func TestTokenUnknownRole(t *testing.T) {
	m := &Manager{secret: []byte("test-secret"), ttl: time.Hour}
	token, err := m.IssueToken(Actor{UserID: 4, Role: rbac.Role("root")})
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	require.Error(t, err)
}

func TestEmptySecretRejected(t *testing.T) {
	_, err := NewManager("", time.Hour)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.True(t, CheckPassword(hash, "hunter2"))
	require.False(t, CheckPassword(hash, "hunter3"))
}
