// Package audit persists the append-only transition history of quotes and
// invoices. Rows in audit_logs are inserted inside the same transaction as
// the state change they describe and are never updated or deleted.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billfold-app/billfold/internal/workflow"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Append inserts one audit record. Callers pass the transaction that also
// carries the state change so both commit or roll back together. An
// ActorID of zero marks a system-initiated transition (scheduled jobs).
func Append(ctx context.Context, db DBTX, rec workflow.AuditRecord) error {
	if rec.Entity == "" || rec.EntityID == 0 {
		return errors.New("audit: record requires entity and entity id")
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := db.Exec(ctx, `INSERT INTO audit_logs (id, entity, entity_id, actor_id, from_state, to_state, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, string(rec.Entity), rec.EntityID, rec.ActorID, string(rec.From), string(rec.To), at)
	return err
}

// Reader lists transition history.
type Reader struct {
	pool *pgxpool.Pool
}

// NewReader returns a Reader over the given pool.
func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

// List returns the records for one entity in chronological order.
func (r *Reader) List(ctx context.Context, entity workflow.EntityType, entityID int64) ([]workflow.AuditRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, entity, entity_id, actor_id, from_state, to_state, occurred_at
FROM audit_logs WHERE entity=$1 AND entity_id=$2 ORDER BY occurred_at ASC, id ASC`, string(entity), entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []workflow.AuditRecord
	for rows.Next() {
		var rec workflow.AuditRecord
		var entity, from, to string
		if err := rows.Scan(&rec.ID, &entity, &rec.EntityID, &rec.ActorID, &from, &to, &rec.At); err != nil {
			return nil, err
		}
		rec.Entity = workflow.EntityType(entity)
		rec.From = workflow.State(from)
		rec.To = workflow.State(to)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
