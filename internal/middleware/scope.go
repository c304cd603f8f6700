package middleware

import (
	"net/http"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/model"
)

// RequireScope rejects callers whose credential lacks scope with 403.
// Requests that reach it unauthenticated get 401. Mount it after Auth.
func RequireScope(scope string) func(http.Handler) http.Handler {
	forbidden := "you do not have permission to perform this action; required scope: " + scope

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := auth.AuthFromContext(r.Context())
			switch {
			case caller == nil:
				writeError(w, http.StatusUnauthorized, MsgUnauthorized)
			case !caller.HasScope(scope):
				writeError(w, http.StatusForbidden, forbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireRead guards list, retrieve and insight routes.
func RequireRead() func(http.Handler) http.Handler { return RequireScope(model.ScopeRead) }

// RequireWrite guards expense mutations.
func RequireWrite() func(http.Handler) http.Handler { return RequireScope(model.ScopeWrite) }

// RequireAdmin guards API key management.
func RequireAdmin() func(http.Handler) http.Handler { return RequireScope(model.ScopeAdmin) }
