// Package handler exposes user administration over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"storefront/backend/internal/platform/errs"
	"storefront/backend/internal/platform/httpx"
	"storefront/backend/internal/user/domain"
	"storefront/backend/internal/user/repository"
)

// Handler serves /users. Every route runs behind the guards passed to Routes.
type Handler struct {
	repo  repository.Repository
	clock clockwork.Clock
}

// NewHandler returns a user Handler. clock may be nil; then the real clock is used.
func NewHandler(repo repository.Repository, clock clockwork.Clock) *Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handler{repo: repo, clock: clock}
}

func (h *Handler) Routes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.With(guards...).Route("/users", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}/role", h.setRole)
		r.Put("/{id}/status", h.setStatus)
		r.Delete("/{id}", h.delete)
	})
}

// list takes ?limit=&offset=.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt32(r, "limit", 50)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_limit")
		return
	}
	offset, err := queryInt32(r, "offset", 0)
	if err != nil || offset < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_offset")
		return
	}
	users, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	u, err := h.load(r)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

type roleRequest struct {
	Role domain.Role `json:"role"`
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	h.mutate(w, r, func(u *domain.User) { u.Role = req.Role })
}

type statusRequest struct {
	Status domain.UserStatus `json:"status"`
}

// setStatus approves or rejects an account.
func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	h.mutate(w, r, func(u *domain.User) { u.Status = req.Status })
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, apply func(*domain.User)) {
	u, err := h.load(r)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	apply(u)
	if err := u.Validate(); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	u.UpdatedAt = h.clock.Now().UTC()
	if err := h.repo.Update(r.Context(), u); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) load(r *http.Request) (*domain.User, error) {
	u, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.ErrNotFound
	}
	return u, nil
}

func queryInt32(r *http.Request, name string, def int32) (int32, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}
