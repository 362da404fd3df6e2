// Package auth issues and verifies JWT bearer tokens and resolves the
// acting user for each request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/billfold-app/billfold/internal/rbac"
)

// Actor is the authenticated identity attached to a request.
type Actor struct {
	UserID int64
	Email  string
	Role   rbac.Role
}

// Manager signs and parses HS256 tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager constructs a Manager. secret must be non-empty.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret must be provided")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

// IssueToken returns a signed token carrying the actor identity.
func (m *Manager) IssueToken(actor Actor) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", actor.UserID),
		"email": actor.Email,
		"role":  string(actor.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(m.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken validates the token string and returns the embedded actor.
func (m *Manager) ParseToken(tokenStr string) (Actor, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Actor{}, fmt.Errorf("auth: parse token: %w", err)
	}
	if !token.Valid {
		return Actor{}, errors.New("auth: invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, errors.New("auth: unexpected claims type")
	}
	sub, _ := claims["sub"].(string)
	var userID int64
	if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil || userID <= 0 {
		return Actor{}, errors.New("auth: token missing subject")
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if !rbac.Known(rbac.Role(role)) {
		return Actor{}, fmt.Errorf("auth: token carries unknown role %q", role)
	}
	return Actor{UserID: userID, Email: email, Role: rbac.Role(role)}, nil
}
