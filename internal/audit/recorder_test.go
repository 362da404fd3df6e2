package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/billfold-app/billfold/internal/workflow"
)

type captureDB struct {
	sql  string
	args []any
}

func (c *captureDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.sql = sql
	c.args = args
	return pgconn.CommandTag{}, nil
}

func TestAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects record without entity", func(t *testing.T) {
		db := &captureDB{}
		err := Append(ctx, db, workflow.AuditRecord{})
		require.Error(t, err)
		require.Empty(t, db.sql)
	})

	t.Run("binds the record timestamp", func(t *testing.T) {
		db := &captureDB{}
		at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
		rec := workflow.AuditRecord{
			ID:       uuid.New(),
			Entity:   workflow.EntityQuote,
			EntityID: 42,
			ActorID:  3,
			From:     workflow.QuoteDraft,
			To:       workflow.QuoteSent,
			At:       at,
		}
		require.NoError(t, Append(ctx, db, rec))
		require.Len(t, db.args, 7)
		require.Equal(t, at, db.args[6])
	})

	t.Run("zero timestamp becomes insertion time", func(t *testing.T) {
		db := &captureDB{}
		rec := workflow.AuditRecord{
			ID:       uuid.New(),
			Entity:   workflow.EntityInvoice,
			EntityID: 7,
			From:     workflow.InvoicePending,
			To:       workflow.InvoiceOverdue,
		}
		before := time.Now().UTC()
		require.NoError(t, Append(ctx, db, rec))
		require.Len(t, db.args, 7)
		bound, ok := db.args[6].(time.Time)
		require.True(t, ok)
		require.False(t, bound.IsZero())
		require.False(t, bound.Before(before))
	})
}
