// Package handler exposes the installation's display preferences over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/backend/internal/platform/httpx"
	"storefront/backend/internal/preferences/domain"
	"storefront/backend/internal/preferences/service"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/preferences", func(r chi.Router) {
		r.Get("/menu", h.menu)
		r.Put("/menu", h.saveMenu)
		r.Post("/menu/toggle", h.toggleItem)
		r.Put("/menu/order", h.reorder)
		r.Get("/theme", h.theme)
		r.Put("/theme", h.setTheme)
		r.Post("/theme/toggle", h.toggleTheme)
		r.Get("/colors", h.colors)
		r.Put("/colors/{slot}", h.setColor)
		r.Get("/language", h.language)
		r.Put("/language", h.setLanguage)
	})
}

type keyRequest struct {
	Key string `json:"key"`
}

type orderRequest struct {
	Order []string `json:"order"`
}

type themeBody struct {
	Mode domain.ThemeMode `json:"mode"`
}

type colorRequest struct {
	Color string `json:"color"`
}

type languageBody struct {
	Language string `json:"language"`
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.svc.Menu(r.Context())
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, menu)
}

func (h *Handler) saveMenu(w http.ResponseWriter, r *http.Request) {
	var menu domain.Menu
	if err := httpx.DecodeJSON(r, &menu); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if menu.HiddenItems == nil {
		menu.HiddenItems = []string{}
	}
	if menu.CustomOrder == nil {
		menu.CustomOrder = []string{}
	}
	if err := h.svc.SaveMenu(r.Context(), menu); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, menu)
}

func (h *Handler) toggleItem(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	hidden, err := h.svc.ToggleItem(r.Context(), req.Key)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]string{"hiddenItems": hidden})
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := h.svc.Reorder(r.Context(), req.Order); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	h.menu(w, r)
}

func (h *Handler) theme(w http.ResponseWriter, r *http.Request) {
	mode, err := h.svc.Theme(r.Context())
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, themeBody{Mode: mode})
}

func (h *Handler) setTheme(w http.ResponseWriter, r *http.Request) {
	var req themeBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := h.svc.SetTheme(r.Context(), req.Mode); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) toggleTheme(w http.ResponseWriter, r *http.Request) {
	mode, err := h.svc.ToggleTheme(r.Context())
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, themeBody{Mode: mode})
}

func (h *Handler) colors(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Colors(r.Context())
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) setColor(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	c, err := h.svc.SetColor(r.Context(), chi.URLParam(r, "slot"), req.Color)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) language(w http.ResponseWriter, r *http.Request) {
	lang, err := h.svc.Language(r.Context())
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, languageBody{Language: lang})
}

func (h *Handler) setLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := h.svc.SetLanguage(r.Context(), req.Language); err != nil {
		httpx.WriteErr(w, err)
		return
	}
	h.language(w, r)
}
