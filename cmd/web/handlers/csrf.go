package handlers

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// MsgFormExpired is shown when a form is posted without a valid token.
const MsgFormExpired = "This form has expired. Reload the page and try again."

const (
	csrfCookieName = "csrf"
	csrfFieldName  = "csrf_token"
)

// csrfProtection guards every unsafe method with a form token tied to a
// signed cookie. Over plain HTTP requests are marked as such so only the
// token is checked, not the TLS Referer rule.
func csrfProtection(key []byte, secure bool, failure http.Handler) func(http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.CookieName(csrfCookieName),
		csrf.FieldName(csrfFieldName),
		csrf.ErrorHandler(failure),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if secure {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// csrfFailure renders the rejection of a forged or stale form.
func (p *page) csrfFailure(w http.ResponseWriter, r *http.Request) {
	reason := "unknown"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	p.logger.Warn(r.Context(), "csrf check failed", map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"reason": reason,
	})
	p.renderError(w, r, http.StatusForbidden, MsgFormExpired)
}
