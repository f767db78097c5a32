// Package handler serves stored telemetry events over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront/backend/internal/platform/httpx"
	"storefront/backend/internal/telemetry/domain"
	"storefront/backend/internal/telemetry/repository"
)

type Handler struct {
	repo repository.Repository
}

func NewHandler(repo repository.Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes mounts /telemetry behind guards.
func (h *Handler) Routes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.With(guards...).Get("/telemetry/devices/{deviceId}/events", h.listByDevice)
}

// eventResponse renders Metadata as raw JSON rather than base64.
type eventResponse struct {
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	UserID    string          `json:"userId,omitempty"`
	DeviceID  string          `json:"deviceId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// listByDevice takes ?limit=&offset=.
func (h *Handler) listByDevice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseInt32(q.Get("limit"), 50)
	if err != nil || limit <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_limit")
		return
	}
	offset, err := parseInt32(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_offset")
		return
	}
	events, err := h.repo.ListByDevice(r.Context(), chi.URLParam(r, "deviceId"), limit, offset)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toResponse(e))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func toResponse(e *domain.Event) eventResponse {
	resp := eventResponse{
		EventType: e.EventType,
		Source:    e.Source,
		UserID:    e.UserID,
		DeviceID:  e.DeviceID,
		CreatedAt: e.CreatedAt,
	}
	if json.Valid(e.Metadata) {
		resp.Metadata = e.Metadata
	}
	return resp
}

func parseInt32(v string, def int32) (int32, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}
