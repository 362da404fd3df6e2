package quotes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/billfold-app/billfold/internal/auth"
	"github.com/billfold-app/billfold/internal/platform/httpx"
	"github.com/billfold-app/billfold/internal/pricing"
	"github.com/billfold-app/billfold/internal/rbac"
	"github.com/billfold-app/billfold/internal/workflow"
)

// Handler exposes the quote routes.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
	}
}

// MountRoutes attaches quote routes to the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionQuoteView))
		r.Get("/quotes", h.List)
		r.Get("/quotes/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionQuoteCreate))
		r.Post("/quotes", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionQuoteEdit))
		r.Put("/quotes/{id}/items", h.UpdateItems)
		r.Delete("/quotes/{id}", h.Delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionQuoteSend))
		r.Post("/quotes/{id}/send", h.Send)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionQuoteApprove))
		r.Post("/quotes/{id}/approve", h.Approve)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionQuoteReject))
		r.Post("/quotes/{id}/reject", h.Reject)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListQuotesRequest{}
	query := r.URL.Query()
	if v := query.Get("client_id"); v != "" {
		clientID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid client_id")
			return
		}
		req.ClientID = &clientID
	}
	if v := query.Get("owner_id"); v != "" {
		ownerID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner_id")
			return
		}
		req.OwnerID = &ownerID
	}
	if v := query.Get("status"); v != "" {
		status := workflow.State(v)
		req.Status = &status
	}
	if v := query.Get("date_from"); v != "" {
		if from, err := time.Parse("2006-01-02", v); err == nil {
			req.DateFrom = &from
		}
	}
	if v := query.Get("date_to"); v != "" {
		if to, err := time.Parse("2006-01-02", v); err == nil {
			req.DateTo = &to
		}
	}
	req.Limit, _ = strconv.Atoi(query.Get("limit"))
	req.Offset, _ = strconv.Atoi(query.Get("offset"))
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list quotes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quotes": list, "total": total})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	quote, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req CreateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	quote, err := h.service.Create(r.Context(), req, actor)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req UpdateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	quote, err := h.service.UpdateItems(r.Context(), id, req, actor)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.service.Send)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.service.Approve)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.service.Reject)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, actor); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) doTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, auth.Actor) (*Quote, error)) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	quote, err := fn(r.Context(), id, actor)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid quote id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verr *pricing.ValidationError
	var terr *workflow.InvalidTransitionError
	switch {
	case errors.As(err, &verr):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verr.Error())
	case errors.As(err, &terr):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", terr.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "quote not found")
	case errors.Is(err, ErrNotEditable):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNotOwner):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrStatusConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("quote request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
