package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/billfold-app/billfold/internal/audit"
	"github.com/billfold-app/billfold/internal/auth"
	"github.com/billfold-app/billfold/internal/clients"
	"github.com/billfold-app/billfold/internal/invoices"
	"github.com/billfold-app/billfold/internal/quotes"
	"github.com/billfold-app/billfold/internal/users"
	"github.com/billfold-app/billfold/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Tokens         *auth.Manager
	UsersHandler   *users.Handler
	ClientHandler  *clients.Handler
	QuoteHandler   *quotes.Handler
	InvoiceHandler *invoices.Handler
	AuditHandler   *audit.Handler
	JobsHandler    *jobs.Handler
}

// NewRouter constructs the chi.Router with Billfold defaults. Everything
// under /api/v1 except the login endpoint requires a bearer token.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		params.UsersHandler.MountPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(params.Tokens, params.Logger))
			params.UsersHandler.MountRoutes(r)
			params.ClientHandler.MountRoutes(r)
			params.QuoteHandler.MountRoutes(r)
			params.InvoiceHandler.MountRoutes(r)
			params.AuditHandler.MountRoutes(r)
			if params.JobsHandler != nil {
				r.Route("/jobs", params.JobsHandler.MountRoutes)
			}
		})
	})

	return r
}
