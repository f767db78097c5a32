// Package handler exposes the currency table over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storefront/backend/internal/currency/domain"
	"storefront/backend/internal/currency/service"
	"storefront/backend/internal/platform/httpx"
	"storefront/backend/internal/server/middleware"
)

// Handler serves /currencies. Reads are public; writes run behind the guards passed to Routes.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the currency routes on r. guards wrap every write route (auth and permission checks).
func (h *Handler) Routes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.Route("/currencies", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/base", h.base)
		r.Get("/convert", h.convert)
		r.Get("/{id}", h.get)

		w := r.With(guards...)
		w.Post("/", h.add)
		w.Patch("/{id}", h.update)
		w.Put("/{id}/base", h.setBase)
		w.Delete("/{id}", h.delete)
	})
}

type addRequest struct {
	Code     string  `json:"code"`
	Symbol   string  `json:"symbol"`
	Rate     float64 `json:"rate"`
	IsBase   bool    `json:"isBase"`
	IsActive *bool   `json:"isActive,omitempty"`
}

type convertResponse struct {
	Amount    float64 `json:"amount"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Result    float64 `json:"result"`
	Formatted string  `json:"formatted,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	if list == nil {
		list = []*domain.Currency{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) base(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetBase(r.Context())
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

// convert takes ?amount=&from=&to=.
func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	from, to := domain.NormalizeCode(q.Get("from")), domain.NormalizeCode(q.Get("to"))
	result, err := h.svc.Convert(r.Context(), amount, from, to)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	resp := convertResponse{Amount: amount, From: from, To: to, Result: result}
	base, err := h.svc.GetBase(r.Context())
	if err == nil && base != nil {
		if inBase, err := h.svc.Convert(r.Context(), amount, from, base.Code); err == nil {
			resp.Formatted, _ = h.svc.Format(r.Context(), inBase, to)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	actor, _ := middleware.GetUserID(r.Context())
	c, err := h.svc.Add(r.Context(), actor, domain.Currency{
		Code: req.Code, Symbol: req.Symbol, Rate: req.Rate, IsBase: req.IsBase, IsActive: active,
	})
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var patch domain.Patch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	actor, _ := middleware.GetUserID(r.Context())
	c, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "id"), patch)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) setBase(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUserID(r.Context())
	c, err := h.svc.SetBase(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
