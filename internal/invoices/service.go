package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billfold-app/billfold/internal/auth"
	"github.com/billfold-app/billfold/internal/quotes"
	"github.com/billfold-app/billfold/internal/workflow"
)

// ErrInvalidAmount indicates a non-positive payment amount.
var ErrInvalidAmount = errors.New("invoices: payment amount must be positive")

// Service handles invoice business logic: quote conversion and the
// payment lifecycle.
type Service struct {
	repo            Repository
	quoteRepo       quotes.Repository
	paymentTermDays int
}

// NewService builds a Service. paymentTermDays sets the due date offset
// applied at conversion time.
func NewService(repo Repository, quoteRepo quotes.Repository, paymentTermDays int) *Service {
	if paymentTermDays <= 0 {
		paymentTermDays = 30
	}
	return &Service{repo: repo, quoteRepo: quoteRepo, paymentTermDays: paymentTermDays}
}

// ConvertFromQuote turns an approved quote into an invoice. The quote's
// totals are frozen into the invoice, the quote moves to INVOICED, and
// both writes share one transaction. Under concurrent conversion of the
// same quote exactly one caller succeeds; the others get a
// ConversionError.
func (s *Service) ConvertFromQuote(ctx context.Context, quoteID int64, actor auth.Actor) (*Invoice, error) {
	quote, err := s.quoteRepo.Get(ctx, quoteID)
	if err != nil {
		if errors.Is(err, quotes.ErrNotFound) {
			return nil, &ConversionError{QuoteID: quoteID, Reason: "quote not found"}
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if quote.Status != workflow.QuoteApproved {
		return nil, &ConversionError{
			QuoteID: quoteID,
			Reason:  fmt.Sprintf("quote is %s, must be %s", quote.Status, workflow.QuoteApproved),
		}
	}
	if quote.InvoiceID != nil {
		return nil, &ConversionError{QuoteID: quoteID, Reason: "an invoice already references this quote"}
	}

	rec, err := workflow.Transition(workflow.EntityQuote, quoteID, quote.Status, workflow.QuoteInvoiced, actor.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	number, err := s.repo.GenerateNumber(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	invoice := Invoice{
		Number:         number,
		QuoteID:        quote.ID,
		ClientID:       quote.ClientID,
		Currency:       quote.Currency,
		Subtotal:       quote.Subtotal,
		DiscountAmount: quote.DiscountAmount,
		TaxTotal:       quote.TaxTotal,
		Shipping:       quote.Shipping,
		Total:          quote.Total,
		Status:         workflow.InvoicePending,
		IssuedAt:       now,
		DueAt:          now.AddDate(0, 0, s.paymentTermDays),
	}

	var invoiceID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, invoice)
		if err != nil {
			return err
		}
		invoiceID = id
		if err := repo.MarkQuoteInvoiced(ctx, quoteID, id); err != nil {
			return err
		}
		return repo.AppendAudit(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, ErrQuoteAlreadyInvoiced) {
			return nil, &ConversionError{QuoteID: quoteID, Reason: "an invoice already references this quote"}
		}
		return nil, err
	}

	return s.repo.Get(ctx, invoiceID)
}

// RecordPayment appends a payment and moves the payment status. The
// payment graph has no PENDING -> PAID edge; a payment that settles a
// pending invoice passes through PARTIAL, leaving both audit records.
func (s *Service) RecordPayment(ctx context.Context, invoiceID int64, req RecordPaymentRequest, actor auth.Actor) (*Invoice, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	invoice, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == workflow.InvoicePaid {
		return nil, &workflow.InvalidTransitionError{
			Entity: workflow.EntityInvoice,
			From:   workflow.InvoicePaid,
			To:     workflow.InvoicePartial,
		}
	}

	newPaid := invoice.AmountPaid.Add(req.Amount)
	target := workflow.InvoicePartial
	if newPaid.GreaterThanOrEqual(invoice.Total) {
		target = workflow.InvoicePaid
	}

	var steps []workflow.State
	switch {
	case target == invoice.Status:
		// Another partial payment on a partial invoice; no state change.
	case target == workflow.InvoicePaid && invoice.Status == workflow.InvoicePending:
		steps = []workflow.State{workflow.InvoicePartial, workflow.InvoicePaid}
	default:
		steps = []workflow.State{target}
	}

	records := make([]workflow.AuditRecord, 0, len(steps))
	from := invoice.Status
	for _, to := range steps {
		rec, err := workflow.Transition(workflow.EntityInvoice, invoiceID, from, to, actor.UserID)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		from = to
	}

	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.InsertPayment(ctx, Payment{
			InvoiceID: invoiceID,
			Amount:    req.Amount,
			Method:    req.Method,
			Note:      req.Note,
			PaidAt:    paidAt,
		}); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		final := invoice.Status
		if len(steps) > 0 {
			final = steps[len(steps)-1]
		}
		if err := repo.UpdatePayment(ctx, invoiceID, newPaid, invoice.Status, final); err != nil {
			return err
		}
		for _, rec := range records {
			if err := repo.AppendAudit(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, invoiceID)
}

// MarkOverdue flips every pending or partial invoice past its due date
// to OVERDUE. It is called by the scheduled scan; actorID zero marks the
// system. Returns the number of invoices moved.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.repo.ListDue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("list due invoices: %w", err)
	}

	moved := 0
	for _, inv := range due {
		rec, err := workflow.Transition(workflow.EntityInvoice, inv.ID, inv.Status, workflow.InvoiceOverdue, 0)
		if err != nil {
			return moved, err
		}
		err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
			if err := repo.UpdatePayment(ctx, inv.ID, inv.AmountPaid, inv.Status, workflow.InvoiceOverdue); err != nil {
				return err
			}
			return repo.AppendAudit(ctx, rec)
		})
		if err != nil {
			// A payment may have landed between the scan and this write;
			// skip the invoice and keep going.
			if errors.Is(err, ErrStatusConflict) {
				continue
			}
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// Get returns one invoice with its payments.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// GetByQuoteID returns the invoice generated from a quote, if any.
func (s *Service) GetByQuoteID(ctx context.Context, quoteID int64) (*Invoice, error) {
	return s.repo.GetByQuoteID(ctx, quoteID)
}

// List returns invoice headers matching the filter.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, req)
}
