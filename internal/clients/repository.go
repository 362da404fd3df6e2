package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the client does not exist.
	ErrNotFound = errors.New("clients: not found")
	// ErrHasQuotes indicates the client still has quotes attached.
	ErrHasQuotes = errors.New("clients: quotes still reference this client")
)

// Repository provides PostgreSQL backed persistence for clients.
type Repository interface {
	Get(ctx context.Context, id int64) (*Client, error)
	List(ctx context.Context, req ListClientsRequest) ([]Client, int, error)
	Create(ctx context.Context, client Client) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const clientColumns = `id, owner_id, name, contact_name, email, phone, tax_id, billing_address, shipping_address, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id=$1`, id)
	var c Client
	if err := scanClient(row, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	where := "TRUE"
	args := []any{}
	argPos := 1

	if req.OwnerID != nil {
		where += fmt.Sprintf(" AND owner_id = $%d", argPos)
		args = append(args, *req.OwnerID)
		argPos++
	}
	if req.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR contact_name ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+req.Search+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM clients WHERE %s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		clientColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		if err := scanClient(rows, &c); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) Create(ctx context.Context, client Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO clients (owner_id, name, contact_name, email, phone, tax_id, billing_address, shipping_address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		client.OwnerID, client.Name, client.ContactName, client.Email, client.Phone,
		client.TaxID, client.BillingAddress, client.ShippingAddress).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	set := ""
	args := []any{}
	argPos := 1
	for _, col := range []string{"name", "contact_name", "email", "phone", "tax_id", "billing_address", "shipping_address"} {
		val, ok := updates[col]
		if !ok {
			continue
		}
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, argPos)
		args = append(args, val)
		argPos++
	}
	if set == "" {
		return nil
	}
	set += ", updated_at = NOW()"
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE clients SET %s WHERE id = $%d`, set, argPos), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id=$1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrHasQuotes
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClient(row pgx.Row, c *Client) error {
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.ContactName, &c.Email, &c.Phone,
		&c.TaxID, &c.BillingAddress, &c.ShippingAddress, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
