package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/billfold-app/billfold/internal/auth"
	"github.com/billfold-app/billfold/internal/rbac"
)

// ErrNotOwner indicates the actor neither owns the record nor is an admin.
var ErrNotOwner = errors.New("clients: record belongs to another user")

// Service handles client record business logic. A client may be mutated
// by its owning user or by an admin.
type Service struct {
	repo Repository
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new client owned by the actor.
func (s *Service) Create(ctx context.Context, req CreateClientRequest, actor auth.Actor) (*Client, error) {
	id, err := s.repo.Create(ctx, Client{
		OwnerID:         actor.UserID,
		Name:            req.Name,
		ContactName:     req.ContactName,
		Email:           req.Email,
		Phone:           req.Phone,
		TaxID:           req.TaxID,
		BillingAddress:  req.BillingAddress,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Get returns one client.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.repo.Get(ctx, id)
}

// List returns clients matching the filter.
func (s *Service) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	return s.repo.List(ctx, req)
}

// Update mutates a client after an ownership check.
func (s *Service) Update(ctx context.Context, id int64, req UpdateClientRequest, actor auth.Actor) (*Client, error) {
	if err := s.authorize(ctx, id, actor); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.ContactName != nil {
		updates["contact_name"] = *req.ContactName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.TaxID != nil {
		updates["tax_id"] = *req.TaxID
	}
	if req.BillingAddress != nil {
		updates["billing_address"] = *req.BillingAddress
	}
	if req.ShippingAddress != nil {
		updates["shipping_address"] = *req.ShippingAddress
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a client. Clients with quotes attached cannot be removed.
func (s *Service) Delete(ctx context.Context, id int64, actor auth.Actor) error {
	if err := s.authorize(ctx, id, actor); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) authorize(ctx context.Context, id int64, actor auth.Actor) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.OwnerID != actor.UserID && actor.Role != rbac.RoleAdmin {
		return ErrNotOwner
	}
	return nil
}
