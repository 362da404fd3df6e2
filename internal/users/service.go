package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/billfold-app/billfold/internal/auth"
	"github.com/billfold-app/billfold/internal/rbac"
)

// ErrInvalidCredentials indicates a failed login.
var ErrInvalidCredentials = errors.New("users: invalid credentials")

// Service handles account management and authentication.
type Service struct {
	repo Repository
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate verifies email/password and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Create registers a new account with a hashed password.
func (s *Service) Create(ctx context.Context, email, name, password string, role rbac.Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("users: email required")
	}
	if len(password) < 8 {
		return nil, errors.New("users: password must be at least 8 characters")
	}
	if !rbac.Known(role) {
		return nil, fmt.Errorf("users: unknown role %q", role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.repo.Create(ctx, User{Email: email, Name: name, PasswordHash: hash, Role: role})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func roleFromString(role string) rbac.Role {
	r := rbac.Role(role)
	if rbac.Known(r) {
		return r
	}
	return rbac.RoleViewer
}
