package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/billfold-app/billfold/internal/invoices"
)

// TaskTypeOverdueScan flips invoices past their due date to OVERDUE.
const TaskTypeOverdueScan = "invoice:overdue-scan"

// OverdueScanPayload carries scheduling metadata.
type OverdueScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewOverdueScanTask constructs an Asynq task for the overdue scan.
func NewOverdueScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(OverdueScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOverdueScan, body, asynq.Queue(QueueDefault)), nil
}

// OverdueScanner runs the scheduled overdue scan against the invoice
// service. Status changes it makes are recorded with the system actor.
type OverdueScanner struct {
	Invoices *invoices.Service
	Logger   *slog.Logger
}

// Handle processes TaskTypeOverdueScan tasks.
func (s *OverdueScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.ScheduledFor
	if asOf.IsZero() {
		asOf = time.Now()
	}

	moved, err := s.Invoices.MarkOverdue(ctx, asOf)
	if err != nil {
		s.Logger.Error("overdue scan", slog.Any("error", err))
		return err
	}
	s.Logger.Info("overdue scan complete",
		slog.Time("as_of", asOf),
		slog.Int("marked_overdue", moved))
	return nil
}
