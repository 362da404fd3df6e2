package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/billfold-app/billfold/internal/workflow"
)

// RecordPaymentRequest registers a payment against an invoice.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"required,oneof=transfer card cash check"`
	Note   string          `json:"note" validate:"max=500"`
	PaidAt *time.Time      `json:"paid_at,omitempty"`
}

// ListInvoicesRequest filters the invoice list.
type ListInvoicesRequest struct {
	ClientID *int64          `json:"client_id,omitempty"`
	Status   *workflow.State `json:"status,omitempty"`
	DueFrom  *time.Time      `json:"due_from,omitempty"`
	DueTo    *time.Time      `json:"due_to,omitempty"`
	Limit    int             `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int             `json:"offset" validate:"gte=0"`
}
