package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storefront/backend/internal/audit"
)

// ClientIP stores the client address (x-forwarded-for, x-real-ip, then the peer) for audit entries.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(audit.WithClientIP(r.Context(), clientIP(r))))
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if s := strings.TrimSpace(strings.Split(forwarded, ",")[0]); s != "" {
			return s
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

type routeAuditMetadata struct {
	Route  string `json:"route"`
	Status int    `json:"status"`
}

// Audit returns middleware that records an audit log entry after each authenticated write request.
// skip holds "METHOD pattern" keys of routes whose service already audits them. Reads are not audited.
// Best-effort: the logger swallows failures.
func Audit(logger audit.AuditLogger, skip map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if logger == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
				return
			}
			userID, ok := GetUserID(r.Context())
			if !ok {
				return
			}
			pattern := routePattern(r)
			if skip[r.Method+" "+pattern] {
				return
			}
			ar := audit.ParseRoute(r.Method, pattern)
			meta, _ := json.Marshal(routeAuditMetadata{Route: pattern, Status: ww.Status()})
			logger.LogEvent(r.Context(), userID, ar.Action, ar.Resource, string(meta))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
