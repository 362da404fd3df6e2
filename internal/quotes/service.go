package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billfold-app/billfold/internal/auth"
	"github.com/billfold-app/billfold/internal/clients"
	"github.com/billfold-app/billfold/internal/pricing"
	"github.com/billfold-app/billfold/internal/rbac"
	"github.com/billfold-app/billfold/internal/workflow"
)

var (
	// ErrNotEditable indicates the quote has left the DRAFT state.
	ErrNotEditable = errors.New("quotes: only draft quotes can be edited")
	// ErrNotOwner indicates the actor neither owns the quote nor is an admin.
	ErrNotOwner = errors.New("quotes: quote belongs to another user")
)

// Mailer queues outbound quote notifications. Implemented by the jobs
// client; nil disables notifications.
type Mailer interface {
	QuoteSent(ctx context.Context, to, number string) error
}

// Service handles quote business logic. Totals always come from the
// pricing engine; status moves always go through the workflow machine
// and leave an audit record in the same transaction.
type Service struct {
	repo       Repository
	clientRepo clients.Repository
	mailer     Mailer
}

// NewService builds a Service.
func NewService(repo Repository, clientRepo clients.Repository, mailer Mailer) *Service {
	return &Service{repo: repo, clientRepo: clientRepo, mailer: mailer}
}

// Create stores a new draft quote with computed totals.
func (s *Service) Create(ctx context.Context, req CreateQuoteRequest, actor auth.Actor) (*Quote, error) {
	if _, err := s.clientRepo.Get(ctx, req.ClientID); err != nil {
		return nil, fmt.Errorf("verify client: %w", err)
	}

	breakdown, items, err := s.price(req.Items, req.Discount, req.TaxRates, req.Shipping)
	if err != nil {
		return nil, err
	}

	number, err := s.repo.GenerateNumber(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate quote number: %w", err)
	}

	quote := Quote{
		Number:         number,
		ClientID:       req.ClientID,
		OwnerID:        actor.UserID,
		Status:         workflow.QuoteDraft,
		Currency:       req.Currency,
		DiscountKind:   discountKindFromString(req.Discount.Kind),
		DiscountValue:  req.Discount.Value,
		Subtotal:       breakdown.Subtotal,
		DiscountAmount: breakdown.DiscountAmount,
		TaxTotal:       breakdown.TaxTotal,
		Shipping:       breakdown.Shipping,
		Total:          breakdown.Total,
	}

	var quoteID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, quote)
		if err != nil {
			return fmt.Errorf("create quote: %w", err)
		}
		quoteID = id
		if err := insertLines(ctx, repo, id, items, breakdown); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, quoteID)
}

// UpdateItems replaces the items of a draft quote and recomputes totals.
func (s *Service) UpdateItems(ctx context.Context, id int64, req UpdateQuoteRequest, actor auth.Actor) (*Quote, error) {
	existing, err := s.authorize(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if existing.Status != workflow.QuoteDraft {
		return nil, ErrNotEditable
	}

	discount := DiscountReq{Kind: string(existing.DiscountKind), Value: existing.DiscountValue}
	if req.Discount != nil {
		discount = *req.Discount
	}
	taxRates := make([]TaxRateReq, 0, len(existing.Taxes))
	for _, t := range existing.Taxes {
		taxRates = append(taxRates, TaxRateReq{Name: t.Name, Percent: t.Percent})
	}
	if req.TaxRates != nil {
		taxRates = *req.TaxRates
	}

	breakdown, items, err := s.price(req.Items, discount, taxRates, req.Shipping)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.DiscountKind = discountKindFromString(discount.Kind)
	updated.DiscountValue = discount.Value
	updated.Subtotal = breakdown.Subtotal
	updated.DiscountAmount = breakdown.DiscountAmount
	updated.TaxTotal = breakdown.TaxTotal
	updated.Shipping = breakdown.Shipping
	updated.Total = breakdown.Total

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.DeleteItems(ctx, id); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if err := repo.DeleteTaxes(ctx, id); err != nil {
			return fmt.Errorf("delete taxes: %w", err)
		}
		if err := repo.UpdateTotals(ctx, updated); err != nil {
			return fmt.Errorf("update totals: %w", err)
		}
		return insertLines(ctx, repo, id, items, breakdown)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, id)
}

// Send moves a draft quote to SENT and queues the client notification.
func (s *Service) Send(ctx context.Context, id int64, actor auth.Actor) (*Quote, error) {
	quote, err := s.transition(ctx, id, workflow.QuoteSent, actor, true)
	if err != nil {
		return nil, err
	}
	s.notifySent(ctx, quote)
	return quote, nil
}

// notifySent is best effort: the transition has already committed, so a
// queue failure must not surface as a failed send.
func (s *Service) notifySent(ctx context.Context, quote *Quote) {
	if s.mailer == nil {
		return
	}
	client, err := s.clientRepo.Get(ctx, quote.ClientID)
	if err != nil || client.Email == "" {
		return
	}
	_ = s.mailer.QuoteSent(ctx, client.Email, quote.Number)
}

// Approve moves a sent quote to APPROVED.
func (s *Service) Approve(ctx context.Context, id int64, actor auth.Actor) (*Quote, error) {
	return s.transition(ctx, id, workflow.QuoteApproved, actor, false)
}

// Reject moves a sent quote to REJECTED. REJECTED is terminal.
func (s *Service) Reject(ctx context.Context, id int64, actor auth.Actor) (*Quote, error) {
	return s.transition(ctx, id, workflow.QuoteRejected, actor, false)
}

// Get returns one quote with its items and tax lines.
func (s *Service) Get(ctx context.Context, id int64) (*Quote, error) {
	return s.repo.Get(ctx, id)
}

// List returns quote headers matching the filter.
func (s *Service) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	return s.repo.List(ctx, req)
}

// Delete removes a draft quote together with its items.
func (s *Service) Delete(ctx context.Context, id int64, actor auth.Actor) error {
	existing, err := s.authorize(ctx, id, actor)
	if err != nil {
		return err
	}
	if existing.Status != workflow.QuoteDraft {
		return ErrNotEditable
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) transition(ctx context.Context, id int64, target workflow.State, actor auth.Actor, ownerOnly bool) (*Quote, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerOnly && existing.OwnerID != actor.UserID && actor.Role != rbac.RoleAdmin {
		return nil, ErrNotOwner
	}

	rec, err := workflow.Transition(workflow.EntityQuote, id, existing.Status, target, actor.UserID)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateStatus(ctx, id, existing.Status, target); err != nil {
			return err
		}
		return repo.AppendAudit(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, id)
}

func (s *Service) price(itemReqs []QuoteItemReq, discount DiscountReq, taxReqs []TaxRateReq, shipping decimal.Decimal) (pricing.Breakdown, []pricing.LineItem, error) {
	items := make([]pricing.LineItem, 0, len(itemReqs))
	for _, it := range itemReqs {
		items = append(items, pricing.LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	taxRates := make([]pricing.TaxRate, 0, len(taxReqs))
	for _, t := range taxReqs {
		taxRates = append(taxRates, pricing.TaxRate{Name: t.Name, Percent: t.Percent})
	}

	breakdown, err := pricing.Compute(items, pricing.Discount{
		Kind:  discountKindFromString(discount.Kind),
		Value: discount.Value,
	}, taxRates, shipping)
	if err != nil {
		return pricing.Breakdown{}, nil, err
	}
	return breakdown.Rounded(), items, nil
}

func insertLines(ctx context.Context, repo Repository, quoteID int64, items []pricing.LineItem, breakdown pricing.Breakdown) error {
	for i, item := range items {
		_, err := repo.InsertItem(ctx, QuoteItem{
			QuoteID:      quoteID,
			LineOrder:    i + 1,
			Description:  item.Description,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			LineSubtotal: pricing.LineSubtotal(item).Round(2),
		})
		if err != nil {
			return fmt.Errorf("insert quote item: %w", err)
		}
	}
	for _, tax := range breakdown.Taxes {
		_, err := repo.InsertTax(ctx, QuoteTax{
			QuoteID: quoteID,
			Name:    tax.Name,
			Percent: tax.Percent,
			Amount:  tax.Amount,
		})
		if err != nil {
			return fmt.Errorf("insert quote tax: %w", err)
		}
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, id int64, actor auth.Actor) (*Quote, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != actor.UserID && actor.Role != rbac.RoleAdmin {
		return nil, ErrNotOwner
	}
	return existing, nil
}
