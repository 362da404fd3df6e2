package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/billfold-app/billfold/internal/auth"
	"github.com/billfold-app/billfold/internal/platform/httpx"
	"github.com/billfold-app/billfold/internal/rbac"
	"github.com/billfold-app/billfold/internal/workflow"
)

// PDFRenderer produces a printable document for an invoice.
type PDFRenderer interface {
	Invoice(ctx context.Context, inv *Invoice) ([]byte, error)
}

// Handler exposes the invoice routes.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
	pdf      PDFRenderer
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, pdf PDFRenderer) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
		pdf:      pdf,
	}
}

// MountRoutes attaches invoice routes to the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionInvoiceView))
		r.Get("/invoices", h.List)
		r.Get("/invoices/{id}", h.Show)
		r.Get("/invoices/{id}/pdf", h.PDF)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionInvoiceConvert))
		r.Post("/quotes/{id}/convert", h.Convert)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionInvoicePayment))
		r.Post("/invoices/{id}/payments", h.RecordPayment)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListInvoicesRequest{}
	query := r.URL.Query()
	if v := query.Get("client_id"); v != "" {
		clientID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid client_id")
			return
		}
		req.ClientID = &clientID
	}
	if v := query.Get("status"); v != "" {
		status := workflow.State(v)
		req.Status = &status
	}
	if v := query.Get("due_from"); v != "" {
		if from, err := time.Parse("2006-01-02", v); err == nil {
			req.DueFrom = &from
		}
	}
	if v := query.Get("due_to"); v != "" {
		if to, err := time.Parse("2006-01-02", v); err == nil {
			req.DueTo = &to
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
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": list, "total": total})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	invoice, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	quoteID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	invoice, err := h.service.ConvertFromQuote(r.Context(), quoteID, actor)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	invoice, err := h.service.RecordPayment(r.Context(), id, req, actor)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	invoice, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	doc, err := h.pdf.Invoice(r.Context(), invoice)
	if err != nil {
		h.logger.Error("render invoice pdf", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", invoice.Number+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var cerr *ConversionError
	var terr *workflow.InvalidTransitionError
	switch {
	case errors.As(err, &cerr):
		httpx.Problem(w, http.StatusConflict, "Conversion Failed", cerr.Error())
	case errors.As(err, &terr):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", terr.Error())
	case errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invoice not found")
	case errors.Is(err, ErrQuoteAlreadyInvoiced), errors.Is(err, ErrStatusConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("invoice request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
