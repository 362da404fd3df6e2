package invoices

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/billfold-app/billfold/internal/auth"
	"github.com/billfold-app/billfold/internal/quotes"
	"github.com/billfold-app/billfold/internal/workflow"
)

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	seq      int64
	paySeq   int64
	invoices map[int64]*Invoice
	byQuote  map[int64]int64
	quotes   *fakeQuoteRepo
	audits   []workflow.AuditRecord
}

func newFakeInvoiceRepo(q *fakeQuoteRepo) *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[int64]*Invoice),
		byQuote:  make(map[int64]int64),
		quotes:   q,
	}
}

func (f *fakeInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	return fn(ctx, f)
}

func (f *fakeInvoiceRepo) Get(ctx context.Context, id int64) (*Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoiceRepo) GetByQuoteID(ctx context.Context, quoteID int64) (*Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byQuote[quoteID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f.invoices[id]
	return &cp, nil
}

func (f *fakeInvoiceRepo) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Invoice, 0, len(f.invoices))
	for _, inv := range f.invoices {
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (f *fakeInvoiceRepo) ListDue(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Invoice
	for _, inv := range f.invoices {
		open := inv.Status == workflow.InvoicePending || inv.Status == workflow.InvoicePartial
		if open && inv.DueAt.Before(asOf) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvoiceRepo) Create(ctx context.Context, inv Invoice) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byQuote[inv.QuoteID]; exists {
		return 0, ErrQuoteAlreadyInvoiced
	}
	f.seq++
	inv.ID = f.seq
	f.invoices[inv.ID] = &inv
	f.byQuote[inv.QuoteID] = inv.ID
	return inv.ID, nil
}

func (f *fakeInvoiceRepo) MarkQuoteInvoiced(ctx context.Context, quoteID, invoiceID int64) error {
	f.quotes.mu.Lock()
	defer f.quotes.mu.Unlock()
	q, ok := f.quotes.items[quoteID]
	if !ok {
		return quotes.ErrNotFound
	}
	if q.Status != workflow.QuoteApproved || q.InvoiceID != nil {
		return ErrQuoteAlreadyInvoiced
	}
	q.Status = workflow.QuoteInvoiced
	q.InvoiceID = &invoiceID
	return nil
}

func (f *fakeInvoiceRepo) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[payment.InvoiceID]
	if !ok {
		return 0, ErrNotFound
	}
	f.paySeq++
	payment.ID = f.paySeq
	inv.Payments = append(inv.Payments, payment)
	return payment.ID, nil
}

func (f *fakeInvoiceRepo) UpdatePayment(ctx context.Context, id int64, amountPaid decimal.Decimal, from, to workflow.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return ErrNotFound
	}
	if inv.Status != from {
		return ErrStatusConflict
	}
	inv.AmountPaid = amountPaid
	inv.Status = to
	return nil
}

func (f *fakeInvoiceRepo) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return "INV-TEST-" + date.Format("0405.000000000"), nil
}

func (f *fakeInvoiceRepo) AppendAudit(ctx context.Context, rec workflow.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, rec)
	return nil
}

type fakeQuoteRepo struct {
	mu    sync.Mutex
	items map[int64]*quotes.Quote
}

func newFakeQuoteRepo(qs ...*quotes.Quote) *fakeQuoteRepo {
	f := &fakeQuoteRepo{items: make(map[int64]*quotes.Quote)}
	for _, q := range qs {
		f.items[q.ID] = q
	}
	return f
}

func (f *fakeQuoteRepo) Get(ctx context.Context, id int64) (*quotes.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.items[id]
	if !ok {
		return nil, quotes.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

// The invoice service only reads quotes; the rest of the interface is
// inert here.
func (f *fakeQuoteRepo) WithTx(ctx context.Context, fn func(context.Context, quotes.Repository) error) error {
	return fn(ctx, f)
}
func (f *fakeQuoteRepo) List(ctx context.Context, req quotes.ListQuotesRequest) ([]quotes.Quote, int, error) {
	return nil, 0, nil
}
func (f *fakeQuoteRepo) Create(ctx context.Context, q quotes.Quote) (int64, error)   { return 0, nil }
func (f *fakeQuoteRepo) InsertItem(ctx context.Context, i quotes.QuoteItem) (int64, error) {
	return 0, nil
}
func (f *fakeQuoteRepo) InsertTax(ctx context.Context, t quotes.QuoteTax) (int64, error) {
	return 0, nil
}
func (f *fakeQuoteRepo) DeleteItems(ctx context.Context, quoteID int64) error { return nil }
func (f *fakeQuoteRepo) DeleteTaxes(ctx context.Context, quoteID int64) error { return nil }
func (f *fakeQuoteRepo) UpdateTotals(ctx context.Context, q quotes.Quote) error {
	return nil
}
func (f *fakeQuoteRepo) UpdateStatus(ctx context.Context, id int64, from, to workflow.State) error {
	return nil
}
func (f *fakeQuoteRepo) Delete(ctx context.Context, id int64) error { return nil }
func (f *fakeQuoteRepo) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	return "", nil
}
func (f *fakeQuoteRepo) AppendAudit(ctx context.Context, rec workflow.AuditRecord) error {
	return nil
}

func approvedQuote(id int64) *quotes.Quote {
	return &quotes.Quote{
		ID:             id,
		Number:         "Q-2608-0001",
		ClientID:       7,
		OwnerID:        3,
		Status:         workflow.QuoteApproved,
		Currency:       "EUR",
		Subtotal:       decimal.RequireFromString("2000"),
		DiscountAmount: decimal.RequireFromString("100"),
		TaxTotal:       decimal.RequireFromString("342"),
		Shipping:       decimal.RequireFromString("50"),
		Total:          decimal.RequireFromString("2292"),
	}
}

func TestConvertFromQuote(t *testing.T) {
	ctx := context.Background()
	actor := auth.Actor{UserID: 3, Role: "manager"}

	t.Run("freezes totals and flips status", func(t *testing.T) {
		quoteRepo := newFakeQuoteRepo(approvedQuote(1))
		repo := newFakeInvoiceRepo(quoteRepo)
		svc := NewService(repo, quoteRepo, 30)

		inv, err := svc.ConvertFromQuote(ctx, 1, actor)
		require.NoError(t, err)
		require.Equal(t, workflow.InvoicePending, inv.Status)
		require.Equal(t, int64(1), inv.QuoteID)
		require.True(t, inv.Total.Equal(decimal.RequireFromString("2292")))
		require.True(t, inv.AmountPaid.IsZero())
		require.WithinDuration(t, time.Now().AddDate(0, 0, 30), inv.DueAt, time.Minute)

		q, err := quoteRepo.Get(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, workflow.QuoteInvoiced, q.Status)
		require.NotNil(t, q.InvoiceID)
		require.Equal(t, inv.ID, *q.InvoiceID)

		require.Len(t, repo.audits, 1)
		require.Equal(t, workflow.QuoteApproved, repo.audits[0].From)
		require.Equal(t, workflow.QuoteInvoiced, repo.audits[0].To)
		require.Equal(t, actor.UserID, repo.audits[0].ActorID)
	})

	t.Run("rejects quotes that are not approved", func(t *testing.T) {
		for _, status := range []workflow.State{workflow.QuoteDraft, workflow.QuoteSent, workflow.QuoteRejected} {
			q := approvedQuote(1)
			q.Status = status
			quoteRepo := newFakeQuoteRepo(q)
			repo := newFakeInvoiceRepo(quoteRepo)
			svc := NewService(repo, quoteRepo, 30)

			_, err := svc.ConvertFromQuote(ctx, 1, actor)
			var cerr *ConversionError
			require.ErrorAs(t, err, &cerr)
			require.Equal(t, int64(1), cerr.QuoteID)
		}
	})

	t.Run("rejects a second conversion", func(t *testing.T) {
		quoteRepo := newFakeQuoteRepo(approvedQuote(1))
		repo := newFakeInvoiceRepo(quoteRepo)
		svc := NewService(repo, quoteRepo, 30)

		_, err := svc.ConvertFromQuote(ctx, 1, actor)
		require.NoError(t, err)

		_, err = svc.ConvertFromQuote(ctx, 1, actor)
		var cerr *ConversionError
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("missing quote", func(t *testing.T) {
		quoteRepo := newFakeQuoteRepo()
		repo := newFakeInvoiceRepo(quoteRepo)
		svc := NewService(repo, quoteRepo, 30)

		_, err := svc.ConvertFromQuote(ctx, 42, actor)
		var cerr *ConversionError
		require.ErrorAs(t, err, &cerr)
	})
}

func TestConvertFromQuoteConcurrent(t *testing.T) {
	ctx := context.Background()
	quoteRepo := newFakeQuoteRepo(approvedQuote(1))
	repo := newFakeInvoiceRepo(quoteRepo)
	svc := NewService(repo, quoteRepo, 30)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(actorID int64) {
			defer wg.Done()
			_, err := svc.ConvertFromQuote(ctx, 1, auth.Actor{UserID: actorID, Role: "manager"})
			errs <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var cerr *ConversionError
		require.ErrorAs(t, err, &cerr)
	}
	require.Equal(t, 1, succeeded)

	q, err := quoteRepo.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, workflow.QuoteInvoiced, q.Status)
}

func newPendingInvoice(t *testing.T, repo *fakeInvoiceRepo, quoteRepo *fakeQuoteRepo, svc *Service) *Invoice {
	t.Helper()
	inv, err := svc.ConvertFromQuote(context.Background(), 1, auth.Actor{UserID: 3, Role: "manager"})
	require.NoError(t, err)
	repo.audits = nil
	return inv
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()
	actor := auth.Actor{UserID: 5, Role: "manager"}

	setup := func(t *testing.T) (*fakeInvoiceRepo, *Service, *Invoice) {
		quoteRepo := newFakeQuoteRepo(approvedQuote(1))
		repo := newFakeInvoiceRepo(quoteRepo)
		svc := NewService(repo, quoteRepo, 30)
		inv := newPendingInvoice(t, repo, quoteRepo, svc)
		return repo, svc, inv
	}

	t.Run("partial payment moves pending to partial", func(t *testing.T) {
		repo, svc, inv := setup(t)
		got, err := svc.RecordPayment(ctx, inv.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("1000"),
			Method: "transfer",
		}, actor)
		require.NoError(t, err)
		require.Equal(t, workflow.InvoicePartial, got.Status)
		require.True(t, got.AmountPaid.Equal(decimal.RequireFromString("1000")))
		require.Len(t, got.Payments, 1)

		require.Len(t, repo.audits, 1)
		require.Equal(t, workflow.InvoicePending, repo.audits[0].From)
		require.Equal(t, workflow.InvoicePartial, repo.audits[0].To)
	})

	t.Run("full payment on pending steps through partial", func(t *testing.T) {
		repo, svc, inv := setup(t)
		got, err := svc.RecordPayment(ctx, inv.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("2292"),
			Method: "transfer",
		}, actor)
		require.NoError(t, err)
		require.Equal(t, workflow.InvoicePaid, got.Status)

		require.Len(t, repo.audits, 2)
		require.Equal(t, workflow.InvoicePending, repo.audits[0].From)
		require.Equal(t, workflow.InvoicePartial, repo.audits[0].To)
		require.Equal(t, workflow.InvoicePartial, repo.audits[1].From)
		require.Equal(t, workflow.InvoicePaid, repo.audits[1].To)
	})

	t.Run("second partial payment keeps status", func(t *testing.T) {
		repo, svc, inv := setup(t)
		_, err := svc.RecordPayment(ctx, inv.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("500"),
			Method: "card",
		}, actor)
		require.NoError(t, err)

		got, err := svc.RecordPayment(ctx, inv.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("500"),
			Method: "card",
		}, actor)
		require.NoError(t, err)
		require.Equal(t, workflow.InvoicePartial, got.Status)
		require.True(t, got.AmountPaid.Equal(decimal.RequireFromString("1000")))
		require.Len(t, got.Payments, 2)
		require.Len(t, repo.audits, 1)
	})

	t.Run("overpayment settles the invoice", func(t *testing.T) {
		_, svc, inv := setup(t)
		got, err := svc.RecordPayment(ctx, inv.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("3000"),
			Method: "transfer",
		}, actor)
		require.NoError(t, err)
		require.Equal(t, workflow.InvoicePaid, got.Status)
	})

	t.Run("payment on a paid invoice fails", func(t *testing.T) {
		_, svc, inv := setup(t)
		_, err := svc.RecordPayment(ctx, inv.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("2292"),
			Method: "transfer",
		}, actor)
		require.NoError(t, err)

		_, err = svc.RecordPayment(ctx, inv.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("1"),
			Method: "cash",
		}, actor)
		var terr *workflow.InvalidTransitionError
		require.ErrorAs(t, err, &terr)
		require.Equal(t, workflow.InvoicePaid, terr.From)
	})

	t.Run("settling an overdue invoice", func(t *testing.T) {
		repo, svc, inv := setup(t)
		repo.mu.Lock()
		repo.invoices[inv.ID].DueAt = time.Now().Add(-time.Hour)
		repo.mu.Unlock()
		_, err := svc.MarkOverdue(ctx, time.Now())
		require.NoError(t, err)
		repo.audits = nil

		got, err := svc.RecordPayment(ctx, inv.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("2292"),
			Method: "transfer",
		}, actor)
		require.NoError(t, err)
		require.Equal(t, workflow.InvoicePaid, got.Status)
		require.Len(t, repo.audits, 1)
		require.Equal(t, workflow.InvoiceOverdue, repo.audits[0].From)
		require.Equal(t, workflow.InvoicePaid, repo.audits[0].To)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, svc, inv := setup(t)
		_, err := svc.RecordPayment(ctx, inv.ID, RecordPaymentRequest{
			Amount: decimal.Zero,
			Method: "cash",
		}, actor)
		require.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestMarkOverdue(t *testing.T) {
	ctx := context.Background()
	quoteRepo := newFakeQuoteRepo(approvedQuote(1))
	repo := newFakeInvoiceRepo(quoteRepo)
	svc := NewService(repo, quoteRepo, 30)
	inv := newPendingInvoice(t, repo, quoteRepo, svc)

	repo.mu.Lock()
	repo.invoices[inv.ID].DueAt = time.Now().Add(-24 * time.Hour)
	repo.mu.Unlock()

	moved, err := svc.MarkOverdue(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, moved)

	got, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, workflow.InvoiceOverdue, got.Status)

	require.Len(t, repo.audits, 1)
	require.Equal(t, int64(0), repo.audits[0].ActorID)

	// Second scan finds nothing open past due.
	moved, err = svc.MarkOverdue(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, 0, moved)
}
