package quotes

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/billfold-app/billfold/internal/pricing"
	"github.com/billfold-app/billfold/internal/workflow"
)

// Quote is an editable commercial offer. Monetary columns hold the
// rounded two-decimal amounts produced by the pricing engine.
type Quote struct {
	ID             int64                `json:"id"`
	Number         string               `json:"number"`
	ClientID       int64                `json:"client_id"`
	OwnerID        int64                `json:"owner_id"`
	Status         workflow.State       `json:"status"`
	Currency       string               `json:"currency"`
	DiscountKind   pricing.DiscountKind `json:"discount_kind"`
	DiscountValue  decimal.Decimal      `json:"discount_value"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	TaxTotal       decimal.Decimal      `json:"tax_total"`
	Shipping       decimal.Decimal      `json:"shipping"`
	Total          decimal.Decimal      `json:"total"`
	InvoiceID      *int64               `json:"invoice_id,omitempty"`
	Items          []QuoteItem          `json:"items,omitempty"`
	Taxes          []QuoteTax           `json:"taxes,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// QuoteItem is one ordered line of a quote.
type QuoteItem struct {
	ID           int64           `json:"id"`
	QuoteID      int64           `json:"quote_id"`
	LineOrder    int             `json:"line_order"`
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
}

// QuoteTax is one named tax line computed for a quote.
type QuoteTax struct {
	ID      int64           `json:"id"`
	QuoteID int64           `json:"quote_id"`
	Name    string          `json:"name"`
	Percent decimal.Decimal `json:"percent"`
	Amount  decimal.Decimal `json:"amount"`
}
