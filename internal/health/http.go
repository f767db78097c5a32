package health

import (
	"net/http"

	"storefront/backend/internal/platform/httpx"
)

// LiveHandler always answers 200 while the process serves HTTP.
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyHandler runs the checks; 503 when any fails.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if !report.Ready {
			status = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, status, report)
	}
}
