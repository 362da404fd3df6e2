package report

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/billfold-app/billfold/internal/invoices"
	"github.com/billfold-app/billfold/internal/workflow"
)

type countingRenderer struct {
	calls int
	out   []byte
}

func (r *countingRenderer) Invoice(ctx context.Context, inv *invoices.Invoice) ([]byte, error) {
	r.calls++
	return r.out, nil
}

func TestCachedRenderer(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	inner := &countingRenderer{out: []byte("%PDF-stub")}
	cached := NewCachedRenderer(inner, client, time.Hour)

	inv := &invoices.Invoice{
		ID:         11,
		Number:     "INV-2608-0001",
		Status:     workflow.InvoicePending,
		Total:      decimal.RequireFromString("2292"),
		AmountPaid: decimal.Zero,
	}

	first, err := cached.Invoice(ctx, inv)
	require.NoError(t, err)
	require.Equal(t, inner.out, first)
	require.Equal(t, 1, inner.calls)

	second, err := cached.Invoice(ctx, inv)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls, "second request must come from the cache")

	// A recorded payment changes the key, forcing a re-render.
	inv.Status = workflow.InvoicePartial
	inv.AmountPaid = decimal.RequireFromString("1000")
	_, err = cached.Invoice(ctx, inv)
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}
