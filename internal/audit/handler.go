package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/billfold-app/billfold/internal/platform/httpx"
	"github.com/billfold-app/billfold/internal/rbac"
	"github.com/billfold-app/billfold/internal/workflow"
)

// Handler serves the transition timeline of an entity.
type Handler struct {
	logger *slog.Logger
	reader *Reader
	rbac   rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, reader *Reader, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, reader: reader, rbac: rbac}
}

// MountRoutes attaches audit routes to the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionAuditView))
		r.Get("/audit/{entity}/{id}", h.Timeline)
	})
}

type timelineEntry struct {
	ID         string `json:"id"`
	ActorID    int64  `json:"actor_id"`
	FromState  string `json:"from_state"`
	ToState    string `json:"to_state"`
	OccurredAt string `json:"occurred_at"`
}

func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	entity := workflow.EntityType(chi.URLParam(r, "entity"))
	if entity != workflow.EntityQuote && entity != workflow.EntityInvoice {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown entity type")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entity id")
		return
	}

	records, err := h.reader.List(r.Context(), entity, id)
	if err != nil {
		h.logger.Error("list audit records", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	entries := make([]timelineEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, timelineEntry{
			ID:         rec.ID.String(),
			ActorID:    rec.ActorID,
			FromState:  string(rec.From),
			ToState:    string(rec.To),
			OccurredAt: rec.At.Format(time.RFC3339),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
