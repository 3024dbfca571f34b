package handlers

import (
	"net/http"

	"github.com/hairizuan-noorazman/perplexiplay/dashboard"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
)

// DashboardHandler renders the dashboard.
type DashboardHandler struct {
	page
	loader *dashboard.Loader
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(loader *dashboard.Loader, renderer *Renderer, cookies *Cookies, log logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		page:   page{renderer: renderer, cookies: cookies, logger: log},
		loader: loader,
	}
}

// Show loads both lists and renders once both have settled.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	view := h.loader.Load(r.Context())

	var flashes []Flash
	if view.Error != "" {
		flashes = append(flashes, errorFlash(view.Error))
	}
	h.render(w, r, http.StatusOK, "dashboard.html", "Dashboard", view, flashes...)
}
