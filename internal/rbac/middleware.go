package rbac

import (
	"log/slog"
	"net/http"
)

// Middleware wires capability checks into HTTP handlers. Resolve is
// injected at wiring time and extracts the authenticated role from the
// request context.
type Middleware struct {
	Logger  *slog.Logger
	Resolve func(r *http.Request) (Role, bool)
}

// Require ensures the current user may perform every listed action.
func (m Middleware) Require(actions ...Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(actions) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			role, ok := m.Resolve(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			for _, action := range actions {
				if !Allowed(role, action) {
					if m.Logger != nil {
						m.Logger.Warn("capability denied",
							slog.String("role", string(role)),
							slog.String("action", string(action)))
					}
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
