// Package handler exposes the cart, checkout and order fulfilment over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/backend/internal/order/domain"
	"storefront/backend/internal/order/service"
	"storefront/backend/internal/platform/httpx"
	"storefront/backend/internal/rbac"
	"storefront/backend/internal/server/middleware"
)

// Require returns the middleware that admits only roles holding permission.
type Require func(permission string) func(http.Handler) http.Handler

// Handler serves /cart and /orders. Every route needs a signed-in user.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the cart and order routes on r behind authed.
func (h *Handler) Routes(r chi.Router, authed func(http.Handler) http.Handler, require Require) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(authed, require(rbac.AddToCart))
		r.Get("/", h.cart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addItem)
		r.Put("/items/{productId}", h.setItem)
		r.Delete("/items/{productId}", h.removeItem)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Use(authed)
		r.With(require(rbac.Checkout)).Post("/", h.place)

		mine := r.With(require(rbac.ViewMyOrders))
		mine.Get("/", h.listMine)
		mine.Get("/{id}", h.getMine)
		mine.Post("/{id}/cancel", h.cancel)
		r.With(require(rbac.TrackOrder)).Get("/{id}/tracking", h.track)

		staff := r.With(require(rbac.ManageOrders))
		staff.Get("/all", h.listAll)
		staff.Put("/{id}/status", h.updateStatus)
	})
}

type itemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type statusRequest struct {
	Status         domain.Status        `json:"status"`
	TrackingNumber string               `json:"trackingNumber,omitempty"`
	PaymentStatus  domain.PaymentStatus `json:"paymentStatus,omitempty"`
}

// userID is set by the auth middleware on every route here.
func userID(r *http.Request) string {
	id, _ := middleware.GetUserID(r.Context())
	return id
}

func (h *Handler) cart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Cart(r.Context(), userID(r))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCart(r.Context(), userID(r)); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	c, err := h.svc.AddToCart(r.Context(), userID(r), req.ProductID, req.Quantity)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) setItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	c, err := h.svc.SetCartQuantity(r.Context(), userID(r), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.SetCartQuantity(r.Context(), userID(r), chi.URLParam(r, "productId"), 0)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) place(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceOrderInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	o, err := h.svc.PlaceOrder(r.Context(), userID(r), req)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMine(r.Context(), userID(r))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	if list == nil {
		list = []*domain.Order{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) getMine(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetMine(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.CancelMine(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) track(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Track(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

// listAll takes an optional ?status=.
func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAll(r.Context(), domain.Status(r.URL.Query().Get("status")))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	if list == nil {
		list = []*domain.Order{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	o, err := h.svc.UpdateStatus(r.Context(), userID(r), chi.URLParam(r, "id"), domain.StatusChange{
		Status: req.Status, TrackingNumber: req.TrackingNumber, PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}
