package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/billfold-app/billfold/internal/audit"
	"github.com/billfold-app/billfold/internal/platform/db"
	"github.com/billfold-app/billfold/internal/workflow"
)

var (
	// ErrNotFound indicates the invoice does not exist.
	ErrNotFound = errors.New("invoices: not found")
	// ErrQuoteAlreadyInvoiced indicates another invoice already
	// references the quote.
	ErrQuoteAlreadyInvoiced = errors.New("invoices: quote already invoiced")
	// ErrStatusConflict indicates a concurrent status change.
	ErrStatusConflict = errors.New("invoices: status changed concurrently")
)

// Repository provides PostgreSQL backed persistence for invoices. The
// conversion transaction also touches the quotes table so that the quote
// status flip and the invoice insert commit or roll back together.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetByQuoteID(ctx context.Context, quoteID int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	ListDue(ctx context.Context, asOf time.Time) ([]Invoice, error)
	Create(ctx context.Context, inv Invoice) (int64, error)
	MarkQuoteInvoiced(ctx context.Context, quoteID, invoiceID int64) error
	InsertPayment(ctx context.Context, payment Payment) (int64, error)
	UpdatePayment(ctx context.Context, id int64, amountPaid decimal.Decimal, from, to workflow.State) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
	AppendAudit(ctx context.Context, rec workflow.AuditRecord) error
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const invoiceColumns = `id, number, quote_id, client_id, currency, subtotal, discount_amount, tax_total, shipping, total, amount_paid, status, issued_at, due_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}

	payRows, err := r.db.Query(ctx, `SELECT id, invoice_id, amount, method, note, paid_at, created_at
FROM payments WHERE invoice_id=$1 ORDER BY paid_at, id`, id)
	if err != nil {
		return nil, err
	}
	defer payRows.Close()
	for payRows.Next() {
		var p Payment
		if err := payRows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Note, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		inv.Payments = append(inv.Payments, p)
	}
	if err := payRows.Err(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) GetByQuoteID(ctx context.Context, quoteID int64) (*Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE quote_id=$1`, quoteID)
	return scanInvoice(row)
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	where := "TRUE"
	args := []any{}
	argPos := 1

	if req.ClientID != nil {
		where += fmt.Sprintf(" AND client_id = $%d", argPos)
		args = append(args, *req.ClientID)
		argPos++
	}
	if req.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.DueFrom != nil {
		where += fmt.Sprintf(" AND due_at >= $%d", argPos)
		args = append(args, *req.DueFrom)
		argPos++
	}
	if req.DueTo != nil {
		where += fmt.Sprintf(" AND due_at <= $%d", argPos)
		args = append(args, *req.DueTo)
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) ListDue(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE status IN ($1, $2) AND due_at < $3 ORDER BY due_at`,
		string(workflow.InvoicePending), string(workflow.InvoicePartial), asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO invoices (number, quote_id, client_id, currency, subtotal, discount_amount, tax_total, shipping, total, amount_paid, status, issued_at, due_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW()) RETURNING id`,
		inv.Number, inv.QuoteID, inv.ClientID, inv.Currency, inv.Subtotal, inv.DiscountAmount,
		inv.TaxTotal, inv.Shipping, inv.Total, inv.AmountPaid, string(inv.Status),
		inv.IssuedAt, inv.DueAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrQuoteAlreadyInvoiced
		}
		return 0, err
	}
	return id, nil
}

// MarkQuoteInvoiced flips the source quote to INVOICED and links the
// invoice. The guard on status and invoice_id makes the second of two
// concurrent conversions fail.
func (r *repository) MarkQuoteInvoiced(ctx context.Context, quoteID, invoiceID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotes SET status=$1, invoice_id=$2, updated_at=NOW()
WHERE id=$3 AND status=$4 AND invoice_id IS NULL`,
		string(workflow.QuoteInvoiced), invoiceID, quoteID, string(workflow.QuoteApproved))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuoteAlreadyInvoiced
	}
	return nil
}

func (r *repository) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO payments (invoice_id, amount, method, note, paid_at, created_at)
VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`,
		payment.InvoiceID, payment.Amount, payment.Method, payment.Note, payment.PaidAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdatePayment(ctx context.Context, id int64, amountPaid decimal.Decimal, from, to workflow.State) error {
	tag, err := r.db.Exec(ctx, `UPDATE invoices SET amount_paid=$1, status=$2, updated_at=NOW() WHERE id=$3 AND status=$4`,
		amountPaid, string(to), id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	// INV-{YY}{MM}-{SEQ}
	var seq int64
	period := date.Format("200601")
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "INV", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%s-%04d", date.Format("0601"), seq), nil
}

func (r *repository) AppendAudit(ctx context.Context, rec workflow.AuditRecord) error {
	return audit.Append(ctx, r.db, rec)
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var status string
	err := row.Scan(&inv.ID, &inv.Number, &inv.QuoteID, &inv.ClientID, &inv.Currency,
		&inv.Subtotal, &inv.DiscountAmount, &inv.TaxTotal, &inv.Shipping, &inv.Total,
		&inv.AmountPaid, &status, &inv.IssuedAt, &inv.DueAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	inv.Status = workflow.State(status)
	return &inv, nil
}
