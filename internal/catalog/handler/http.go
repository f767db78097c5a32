// Package handler exposes the product catalogue and stock management over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront/backend/internal/catalog/domain"
	"storefront/backend/internal/catalog/service"
	"storefront/backend/internal/platform/httpx"
	"storefront/backend/internal/rbac"
	"storefront/backend/internal/server/middleware"
)

// Require returns the middleware that admits only roles holding permission.
type Require func(permission string) func(http.Handler) http.Handler

// Handler serves /products and /inventory.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the catalogue on r. Browsing needs no sign-in and is checked against the caller's
// role, anonyme when absent. Management routes run behind authed first.
func (h *Handler) Routes(r chi.Router, authed func(http.Handler) http.Handler, require Require) {
	r.Route("/products", func(r chi.Router) {
		r.With(require(rbac.ViewCatalog)).Get("/", h.list)
		r.With(require(rbac.ViewProductDetails)).Get("/{id}", h.get)

		w := r.With(authed, require(rbac.ManageProducts))
		w.Post("/", h.create)
		w.Patch("/{id}", h.update)
		w.Delete("/{id}", h.delete)
	})
	r.Route("/inventory", func(r chi.Router) {
		r.Use(authed, require(rbac.ManageStock))
		r.Get("/", h.inventory)
		r.Get("/logs", h.logs)
		r.Post("/{id}/adjustments", h.adjust)
	})
}

type productRequest struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	UnitPrice     float64    `json:"unitPrice"`
	Currency      string     `json:"currency"`
	StockQuantity int        `json:"stockQuantity"`
	CategoryID    string     `json:"categoryId"`
	ImageURIs     []string   `json:"imageUris"`
	AvailableDate *time.Time `json:"availableDate,omitempty"`
	IsActive      *bool      `json:"isActive,omitempty"`
}

type adjustRequest struct {
	Change int    `json:"change"`
	Reason string `json:"reason"`
}

// stockItem is a product as the stock view lists it.
type stockItem struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	StockQuantity int               `json:"stockQuantity"`
	Level         domain.StockLevel `json:"level"`
	IsActive      bool              `json:"isActive"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListVisible(r.Context())
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	if list == nil {
		list = []*domain.Product{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetVisible(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p, err := h.svc.Create(r.Context(), domain.Product{
		Name: req.Name, Description: req.Description, Price: req.Price, UnitPrice: req.UnitPrice,
		Currency: req.Currency, StockQuantity: req.StockQuantity, CategoryID: req.CategoryID,
		ImageURIs: req.ImageURIs, AvailableDate: req.AvailableDate, IsActive: active,
	})
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProductPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	p, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) inventory(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.ListAll(r.Context())
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	out := make([]stockItem, 0, len(all))
	for _, p := range all {
		out = append(out, stockItem{
			ID: p.ID, Name: p.Name, StockQuantity: p.StockQuantity, Level: domain.LevelOf(p.StockQuantity), IsActive: p.IsActive,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// logs takes an optional ?productId=.
func (h *Handler) logs(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListLogs(r.Context(), r.URL.Query().Get("productId"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	if list == nil {
		list = []*domain.InventoryLog{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	actor, _ := middleware.GetUserID(r.Context())
	p, err := h.svc.AdjustStock(r.Context(), actor, chi.URLParam(r, "id"), req.Change, req.Reason)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}
