package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billfold-app/billfold/internal/audit"
	"github.com/billfold-app/billfold/internal/platform/db"
	"github.com/billfold-app/billfold/internal/pricing"
	"github.com/billfold-app/billfold/internal/workflow"
)

var (
	// ErrNotFound indicates the quote does not exist.
	ErrNotFound = errors.New("quotes: not found")
	// ErrStatusConflict indicates a concurrent request changed the status
	// between read and write.
	ErrStatusConflict = errors.New("quotes: status changed concurrently")
)

// Repository provides PostgreSQL backed persistence for quotes.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quote, error)
	List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error)
	Create(ctx context.Context, quote Quote) (int64, error)
	InsertItem(ctx context.Context, item QuoteItem) (int64, error)
	InsertTax(ctx context.Context, tax QuoteTax) (int64, error)
	DeleteItems(ctx context.Context, quoteID int64) error
	DeleteTaxes(ctx context.Context, quoteID int64) error
	UpdateTotals(ctx context.Context, quote Quote) error
	UpdateStatus(ctx context.Context, id int64, from, to workflow.State) error
	Delete(ctx context.Context, id int64) error
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

const quoteColumns = `id, number, client_id, owner_id, status, currency, discount_kind, discount_value, subtotal, discount_amount, tax_total, shipping, total, invoice_id, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Quote, error) {
	row := r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1`, id)
	q, err := scanQuote(row)
	if err != nil {
		return nil, err
	}

	itemRows, err := r.db.Query(ctx, `SELECT id, quote_id, line_order, description, quantity, unit_price, line_subtotal
FROM quote_items WHERE quote_id=$1 ORDER BY line_order, id`, id)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it QuoteItem
		if err := itemRows.Scan(&it.ID, &it.QuoteID, &it.LineOrder, &it.Description, &it.Quantity, &it.UnitPrice, &it.LineSubtotal); err != nil {
			return nil, err
		}
		q.Items = append(q.Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	taxRows, err := r.db.Query(ctx, `SELECT id, quote_id, name, percent, amount
FROM quote_taxes WHERE quote_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer taxRows.Close()
	for taxRows.Next() {
		var tx QuoteTax
		if err := taxRows.Scan(&tx.ID, &tx.QuoteID, &tx.Name, &tx.Percent, &tx.Amount); err != nil {
			return nil, err
		}
		q.Taxes = append(q.Taxes, tx)
	}
	if err := taxRows.Err(); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	where := "TRUE"
	args := []any{}
	argPos := 1

	if req.ClientID != nil {
		where += fmt.Sprintf(" AND client_id = $%d", argPos)
		args = append(args, *req.ClientID)
		argPos++
	}
	if req.OwnerID != nil {
		where += fmt.Sprintf(" AND owner_id = $%d", argPos)
		args = append(args, *req.OwnerID)
		argPos++
	}
	if req.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.DateFrom != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		where += fmt.Sprintf(" AND created_at <= $%d", argPos)
		args = append(args, *req.DateTo)
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM quotes WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM quotes WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		quoteColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) Create(ctx context.Context, quote Quote) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO quotes (number, client_id, owner_id, status, currency, discount_kind, discount_value, subtotal, discount_amount, tax_total, shipping, total, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()) RETURNING id`,
		quote.Number, quote.ClientID, quote.OwnerID, string(quote.Status), quote.Currency,
		string(quote.DiscountKind), quote.DiscountValue, quote.Subtotal, quote.DiscountAmount,
		quote.TaxTotal, quote.Shipping, quote.Total).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) InsertItem(ctx context.Context, item QuoteItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO quote_items (quote_id, line_order, description, quantity, unit_price, line_subtotal)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		item.QuoteID, item.LineOrder, item.Description, item.Quantity, item.UnitPrice, item.LineSubtotal).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) InsertTax(ctx context.Context, tax QuoteTax) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO quote_taxes (quote_id, name, percent, amount)
VALUES ($1, $2, $3, $4) RETURNING id`,
		tax.QuoteID, tax.Name, tax.Percent, tax.Amount).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) DeleteItems(ctx context.Context, quoteID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM quote_items WHERE quote_id=$1`, quoteID)
	return err
}

func (r *repository) DeleteTaxes(ctx context.Context, quoteID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM quote_taxes WHERE quote_id=$1`, quoteID)
	return err
}

func (r *repository) UpdateTotals(ctx context.Context, quote Quote) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotes SET discount_kind=$1, discount_value=$2, subtotal=$3, discount_amount=$4, tax_total=$5, shipping=$6, total=$7, updated_at=NOW() WHERE id=$8`,
		string(quote.DiscountKind), quote.DiscountValue, quote.Subtotal, quote.DiscountAmount,
		quote.TaxTotal, quote.Shipping, quote.Total, quote.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves the quote from one status to another. The WHERE
// clause on the current status makes concurrent movers lose cleanly.
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to workflow.State) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotes SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`,
		string(to), id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quotes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	// Q-{YY}{MM}-{SEQ}
	var seq int64
	period := date.Format("200601")
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "Q", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Q-%s-%04d", date.Format("0601"), seq), nil
}

func (r *repository) AppendAudit(ctx context.Context, rec workflow.AuditRecord) error {
	return audit.Append(ctx, r.db, rec)
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	var status, discountKind string
	var invoiceID *int64
	err := row.Scan(&q.ID, &q.Number, &q.ClientID, &q.OwnerID, &status, &q.Currency,
		&discountKind, &q.DiscountValue, &q.Subtotal, &q.DiscountAmount, &q.TaxTotal,
		&q.Shipping, &q.Total, &invoiceID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	q.Status = workflow.State(status)
	q.DiscountKind = discountKindFromString(discountKind)
	q.InvoiceID = invoiceID
	return &q, nil
}

func discountKindFromString(kind string) pricing.DiscountKind {
	switch pricing.DiscountKind(kind) {
	case pricing.DiscountFlat:
		return pricing.DiscountFlat
	case pricing.DiscountPercent:
		return pricing.DiscountPercent
	default:
		return pricing.DiscountNone
	}
}
