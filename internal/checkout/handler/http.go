// Package handler exposes checkout records over HTTP. Every route acts on the authenticated user.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/backend/internal/checkout/domain"
	"storefront/backend/internal/checkout/service"
	"storefront/backend/internal/platform/httpx"
	"storefront/backend/internal/server/middleware"
)

// Handler serves addresses, payment methods and delivery methods.
type Handler struct {
	svc *service.Service
}

// NewHandler returns a checkout HTTP handler backed by svc.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the checkout routes on r. Callers wrap r with the auth middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/addresses", func(r chi.Router) {
		r.Get("/", h.listAddresses)
		r.Post("/", h.addAddress)
		r.Get("/default", h.defaultAddress)
		r.Get("/{id}", h.getAddress)
		r.Patch("/{id}", h.updateAddress)
		r.Delete("/{id}", h.deleteAddress)
		r.Put("/{id}/default", h.setDefaultAddress)
	})
	r.Route("/payment-methods", func(r chi.Router) {
		r.Get("/", h.listPaymentMethods)
		r.Post("/", h.addPaymentMethod)
		r.Get("/default", h.defaultPaymentMethod)
		r.Get("/{id}", h.getPaymentMethod)
		r.Patch("/{id}", h.updatePaymentMethod)
		r.Delete("/{id}", h.deletePaymentMethod)
		r.Put("/{id}/default", h.setDefaultPaymentMethod)
	})
	r.Get("/delivery-methods", h.listDeliveryMethods)
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated")
	}
	return id, ok
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListAddresses(r.Context(), uid)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	if list == nil {
		list = []*domain.Address{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) addAddress(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var in domain.Address
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	a, err := h.svc.AddAddress(r.Context(), uid, in)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, a)
}

// defaultAddress takes ?type=shipping|billing|both, defaulting to shipping. Absent default is JSON null.
func (h *Handler) defaultAddress(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	t := domain.AddressType(r.URL.Query().Get("type"))
	if t == "" {
		t = domain.AddressShipping
	}
	a, err := h.svc.DefaultAddress(r.Context(), uid, t)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) getAddress(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	a, err := h.svc.GetAddress(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var patch domain.AddressPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	a, err := h.svc.UpdateAddress(r.Context(), uid, chi.URLParam(r, "id"), patch)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	a, err := h.svc.SetDefaultAddress(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAddress(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListPaymentMethods(r.Context(), uid)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	if list == nil {
		list = []*domain.PaymentMethod{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) addPaymentMethod(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var in domain.PaymentMethod
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	p, err := h.svc.AddPaymentMethod(r.Context(), uid, in)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) defaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.DefaultPaymentMethod(r.Context(), uid)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) getPaymentMethod(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetPaymentMethod(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) updatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var patch domain.PaymentMethodPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	p, err := h.svc.UpdatePaymentMethod(r.Context(), uid, chi.URLParam(r, "id"), patch)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) setDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.SetDefaultPaymentMethod(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) deletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePaymentMethod(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listDeliveryMethods(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.svc.DeliveryMethods())
}
