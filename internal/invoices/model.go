package invoices

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billfold-app/billfold/internal/workflow"
)

// Invoice is an immutable financial record generated from an approved
// quote. The monetary fields are a frozen snapshot of the quote's totals
// at conversion time; later quote edits never touch them. Only the
// payment status and amount paid change afterwards.
type Invoice struct {
	ID             int64           `json:"id"`
	Number         string          `json:"number"`
	QuoteID        int64           `json:"quote_id"`
	ClientID       int64           `json:"client_id"`
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxTotal       decimal.Decimal `json:"tax_total"`
	Shipping       decimal.Decimal `json:"shipping"`
	Total          decimal.Decimal `json:"total"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	Status         workflow.State  `json:"status"`
	IssuedAt       time.Time       `json:"issued_at"`
	DueAt          time.Time       `json:"due_at"`
	Payments       []Payment       `json:"payments,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Payment is one recorded payment against an invoice. Payments are
// append-only.
type Payment struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Note      string          `json:"note,omitempty"`
	PaidAt    time.Time       `json:"paid_at"`
	CreatedAt time.Time       `json:"created_at"`
}

// ConversionError reports a violated precondition for invoice creation.
type ConversionError struct {
	QuoteID int64
	Reason  string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("invoices: cannot convert quote %d: %s", e.QuoteID, e.Reason)
}
