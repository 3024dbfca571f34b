package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hairizuan-noorazman/perplexiplay/apiclient"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
)

// page is embedded by every screen handler.
type page struct {
	renderer *Renderer
	cookies  *Cookies
	logger   logger.Logger
}

// render renders a page, prepending the pending cookie flash to the
// flashes raised by the current request.
func (p *page) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data interface{}, flashes ...Flash) {
	all := append(p.cookies.PopFlash(w, r), flashes...)
	if err := p.renderer.Render(w, r, status, name, title, data, all); err != nil {
		p.logger.Error(r.Context(), "failed to render page", map[string]interface{}{
			"template": name,
			"error":    err.Error(),
		})
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ErrorPage is the data of the error template.
type ErrorPage struct {
	Status  int
	Message string
}

func (p *page) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	p.render(w, r, status, "error.html", http.StatusText(status), ErrorPage{Status: status, Message: message})
}

// redirect stores a flash and sends the browser to target with 303 See Other.
// The redirect still happens when the flash cannot be stored.
func (p *page) redirect(w http.ResponseWriter, r *http.Request, target string, flash *Flash) {
	if flash != nil {
		if err := p.cookies.AddFlash(w, *flash); err != nil {
			p.logger.Error(r.Context(), "failed to set flash cookie", map[string]interface{}{
				"target": target,
				"error":  err.Error(),
			})
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func successFlash(msg string) *Flash {
	return &Flash{Type: FlashSuccess, Message: msg}
}

func errorFlash(msg string) Flash {
	return Flash{Type: FlashError, Message: msg}
}

// backendMessage returns the backend detail of err, or fallback.
func backendMessage(err error, fallback string) string {
	if detail := apiclient.Detail(err); detail != "" {
		return detail
	}
	return fallback
}

// parseID parses a positive integer ID from the request path parameters.
func parseID(r *http.Request, paramName string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[paramName], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// localPath accepts only same-origin absolute paths.
func localPath(raw string) (string, bool) {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "", false
	}
	return u.RequestURI(), true
}

// backURL is the "Cancel" target: the posted "back" field, else the
// same-origin Referer path, else fallback. The current page never counts.
func backURL(r *http.Request, fallback string) string {
	if back, ok := localPath(r.FormValue("back")); ok {
		return back
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host && ref.Path != r.URL.Path {
		if back, ok := localPath(ref.RequestURI()); ok {
			return back
		}
	}
	return fallback
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
