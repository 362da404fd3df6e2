package users

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/billfold-app/billfold/internal/rbac"
)

type memoryRepo struct {
	seq     int64
	byID    map[int64]*User
	byEmail map[string]*User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: make(map[int64]*User), byEmail: make(map[string]*User)}
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryRepo) Create(ctx context.Context, user User) (int64, error) {
	key := strings.ToLower(user.Email)
	if _, exists := m.byEmail[key]; exists {
		return 0, ErrDuplicateEmail
	}
	m.seq++
	user.ID = m.seq
	m.byID[user.ID] = &user
	m.byEmail[key] = &user
	return user.ID, nil
}

func (m *memoryRepo) List(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, *u)
	}
	return out, nil
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes the password", func(t *testing.T) {
		svc := NewService(newMemoryRepo())
		u, err := svc.Create(ctx, "jo@billfold.test", "Jo", "s3cret-pass", rbac.RoleManager)
		require.NoError(t, err)
		require.NotEqual(t, "s3cret-pass", u.PasswordHash)
		require.Equal(t, rbac.RoleManager, u.Role)
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		svc := NewService(newMemoryRepo())
		_, err := svc.Create(ctx, "jo@billfold.test", "Jo", "short", rbac.RoleUser)
		require.Error(t, err)
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		svc := NewService(newMemoryRepo())
		_, err := svc.Create(ctx, "jo@billfold.test", "Jo", "s3cret-pass", rbac.Role("superuser"))
		require.Error(t, err)
	})

	t.Run("rejects duplicate emails", func(t *testing.T) {
		svc := NewService(newMemoryRepo())
		_, err := svc.Create(ctx, "jo@billfold.test", "Jo", "s3cret-pass", rbac.RoleUser)
		require.NoError(t, err)
		_, err = svc.Create(ctx, "jo@billfold.test", "Joanne", "s3cret-pass", rbac.RoleUser)
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(ctx, "jo@billfold.test", "Jo", "s3cret-pass", rbac.RoleUser)
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		u, err := svc.Authenticate(ctx, "jo@billfold.test", "s3cret-pass")
		require.NoError(t, err)
		require.Equal(t, "jo@billfold.test", u.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "jo@billfold.test", "wrong-pass")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody@billfold.test", "s3cret-pass")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
