package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/billfold-app/billfold/internal/rbac"
)

type contextKey struct{}

var actorKey contextKey

// ContextWithActor returns ctx carrying the actor.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor stored by Middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// ActorFromRequest is a convenience wrapper for rbac wiring.
func ActorFromRequest(r *http.Request) (Actor, bool) {
	return ActorFromContext(r.Context())
}

// ResolveRole adapts ActorFromRequest for the capability middleware.
func ResolveRole(r *http.Request) (rbac.Role, bool) {
	actor, ok := ActorFromRequest(r)
	return actor.Role, ok
}

// Middleware authenticates the Bearer token and stores the actor in the
// request context. Requests without a valid token are rejected.
func Middleware(manager *Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			actor, err := manager.ParseToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				if logger != nil {
					logger.Debug("reject bearer token", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}
