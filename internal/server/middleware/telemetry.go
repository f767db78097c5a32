package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"storefront/backend/internal/audit"
	"storefront/backend/internal/telemetry"
	"storefront/backend/internal/telemetry/domain"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Route      string `json:"route"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry returns middleware that emits an http_request event after each request. It runs outside
// Auth, so events carry no user.
// Best-effort: failures are logged by EmitAsync and do not fail the request. If emitter is nil, the
// middleware no-ops. skip holds route patterns not to emit (e.g. /healthz).
func Telemetry(emitter telemetry.EventEmitter, skip map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			pattern := routePattern(r)
			if emitter == nil || skip[pattern] {
				return
			}
			meta, _ := json.Marshal(httpRequestMetadata{
				Method:     r.Method,
				Route:      pattern,
				StatusCode: ww.Status(),
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   audit.ClientIP(r.Context()),
			})
			telemetry.EmitAsync(emitter, &domain.Event{
				EventType: domain.EventHTTPRequest,
				Source:    "http_middleware",
				Metadata:  meta,
				CreatedAt: time.Now().UTC(),
			})
		})
	}
}
