// Package handler exposes the session state of this installation over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/backend/internal/platform/httpx"
	"storefront/backend/internal/session/domain"
	"storefront/backend/internal/session/service"
)

type Handler struct {
	sessions *service.Manager
}

func NewHandler(sessions *service.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// Routes mounts /session. Reading the state is public so clients can decide whether to show the login
// screen; recording activity goes through guards.
func (h *Handler) Routes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.state)
		r.Get("/device", h.device)
		r.With(guards...).Post("/activity", h.activity)
	})
}

type stateResponse struct {
	Valid        bool            `json:"valid"`
	User         *domain.UserRef `json:"user"`
	DeviceID     string          `json:"deviceId,omitempty"`
	LastActivity int64           `json:"lastActivity,omitempty"`
	ExpiresInMs  int64           `json:"expiresInMs"`
	TimeoutMs    int64           `json:"timeoutMs"`
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	valid, err := h.sessions.IsSessionValid(ctx)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	resp := stateResponse{Valid: valid, TimeoutMs: h.sessions.Timeout().Milliseconds()}
	rec, err := h.sessions.Get(ctx)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	if rec != nil {
		resp.DeviceID = rec.DeviceID
		resp.LastActivity = rec.LastActivity
		if valid {
			resp.User = rec.User
		}
	}
	if valid {
		left, err := h.sessions.TimeUntilExpiry(ctx)
		if err != nil {
			httpx.WriteErr(w, err)
			return
		}
		resp.ExpiresInMs = left.Milliseconds()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) device(w http.ResponseWriter, r *http.Request) {
	info, err := h.sessions.DeviceInfo(r.Context())
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Touch(r.Context()); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
