package middleware

import (
	"net/http"

	"storefront/backend/internal/platform/httpx"
	"storefront/backend/internal/rbac"
)

// RequirePermission returns middleware that rejects requests whose role lacks permission with 403.
// Must run after Auth; requests without a role are evaluated as anonyme.
func RequirePermission(checker rbac.Checker, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := GetRole(r.Context())
			if !checker.Allowed(r.Context(), role, permission) {
				httpx.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
