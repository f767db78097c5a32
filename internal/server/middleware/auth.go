package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"storefront/backend/internal/platform/httpx"
	"storefront/backend/internal/security"
	sessiondomain "storefront/backend/internal/session/domain"
)

const bearerPrefix = "bearer "

// TokenValidator validates access tokens. Satisfied by *security.TokenProvider.
type TokenValidator interface {
	ValidateAccess(token string) (*security.AccessClaims, error)
}

// SessionGuard is the part of the session manager the auth middleware needs.
type SessionGuard interface {
	IsSessionValid(ctx context.Context) (bool, error)
	CurrentUser(ctx context.Context) (*sessiondomain.UserRef, error)
	Touch(ctx context.Context) error
}

// Auth returns middleware that requires a valid Bearer access token and a live session belonging to
// the token's user. A request that passes counts as activity and touches the session.
func Auth(tokens TokenValidator, sessions SessionGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r.Header.Get("Authorization"))
			if token == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			claims, err := tokens.ValidateAccess(token)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			ctx := r.Context()
			valid, err := sessions.IsSessionValid(ctx)
			if err != nil {
				httpx.WriteErr(w, err)
				return
			}
			if !valid {
				httpx.WriteError(w, http.StatusUnauthorized, "session_expired")
				return
			}
			user, err := sessions.CurrentUser(ctx)
			if err != nil {
				httpx.WriteErr(w, err)
				return
			}
			if user == nil || user.ID != claims.UserID() {
				httpx.WriteError(w, http.StatusUnauthorized, "session_mismatch")
				return
			}
			if err := sessions.Touch(ctx); err != nil {
				log.Printf("auth: touch session: %v", err)
			}
			role := claims.Role
			if user.Role != "" {
				role = user.Role
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, claims.UserID(), claims.DeviceID, role)))
		})
	}
}

// extractBearer returns the Bearer token from an Authorization header, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
