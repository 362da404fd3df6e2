package quotes

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/billfold-app/billfold/internal/workflow"
)

// QuoteItemReq is one requested line. Numeric bounds are enforced by the
// pricing engine.
type QuoteItemReq struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// TaxRateReq names one tax rate to apply.
type TaxRateReq struct {
	Name    string          `json:"name" validate:"required,max=60"`
	Percent decimal.Decimal `json:"percent"`
}

// DiscountReq is the header discount specification.
type DiscountReq struct {
	Kind  string          `json:"kind" validate:"omitempty,oneof=NONE FLAT PERCENT"`
	Value decimal.Decimal `json:"value"`
}

// CreateQuoteRequest creates a new draft quote.
type CreateQuoteRequest struct {
	ClientID int64           `json:"client_id" validate:"required,gt=0"`
	Currency string          `json:"currency" validate:"required,len=3"`
	Discount DiscountReq     `json:"discount"`
	TaxRates []TaxRateReq    `json:"tax_rates" validate:"dive"`
	Shipping decimal.Decimal `json:"shipping"`
	Items    []QuoteItemReq  `json:"items" validate:"required,min=1,dive"`
}

// UpdateQuoteRequest replaces the line items and pricing inputs of a
// draft quote. Totals are recomputed on every item mutation.
type UpdateQuoteRequest struct {
	Discount *DiscountReq    `json:"discount,omitempty"`
	TaxRates *[]TaxRateReq   `json:"tax_rates,omitempty" validate:"omitempty,dive"`
	Shipping decimal.Decimal `json:"shipping"`
	Items    []QuoteItemReq  `json:"items" validate:"required,min=1,dive"`
}

// ListQuotesRequest filters the quote list.
type ListQuotesRequest struct {
	ClientID *int64          `json:"client_id,omitempty"`
	OwnerID  *int64          `json:"owner_id,omitempty"`
	Status   *workflow.State `json:"status,omitempty"`
	DateFrom *time.Time      `json:"date_from,omitempty"`
	DateTo   *time.Time      `json:"date_to,omitempty"`
	Limit    int             `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int             `json:"offset" validate:"gte=0"`
}
