// Package handler exposes registration, login and the logged-in user's profile over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/backend/internal/identity/service"
	"storefront/backend/internal/platform/httpx"
	"storefront/backend/internal/server/middleware"
	userdomain "storefront/backend/internal/user/domain"
)

// Handler serves /auth.
type Handler struct {
	svc *service.AuthService
}

func NewHandler(svc *service.AuthService) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts /auth on r. register and login are public; the rest run behind auth.
func (h *Handler) Routes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)

		a := r.With(auth)
		a.Post("/logout", h.logout)
		a.Get("/me", h.me)
		a.Patch("/profile", h.updateProfile)
	})
}

type registerRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Phone    string          `json:"phone,omitempty"`
	Role     userdomain.Role `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// register accepts self-registration as user or gestionnaire_de_stock. Admin accounts are seeded.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Role != "" && req.Role != userdomain.RoleUser && req.Role != userdomain.RoleStockManager {
		httpx.WriteError(w, http.StatusForbidden, "role_not_allowed")
		return
	}
	res, err := h.svc.Register(r.Context(), service.RegisterInput{
		Name: req.Name, Email: req.Email, Password: req.Password, Phone: req.Phone, Role: req.Role,
	})
	if err != nil {
		writeAuthErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context()); err != nil {
		writeAuthErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	u, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		writeAuthErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	var patch service.ProfilePatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), userID, patch)
	if err != nil {
		writeAuthErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func writeAuthErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, service.ErrAccountRejected):
		httpx.WriteError(w, http.StatusForbidden, "account_rejected")
	case errors.Is(err, service.ErrNotLoggedIn):
		httpx.WriteError(w, http.StatusUnauthorized, "not_logged_in")
	default:
		httpx.WriteErr(w, err)
	}
}
