package handlers

import (
	"errors"
	"net/http"

	"github.com/hairizuan-noorazman/perplexiplay/auth"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
	"github.com/hairizuan-noorazman/perplexiplay/session"
)

// MsgRegistered is shown after a successful sign-up.
const MsgRegistered = "Account created. Welcome!"

// AuthHandler handles sign-up, login and logout.
type AuthHandler struct {
	page
	auth *auth.Service
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(svc *auth.Service, renderer *Renderer, cookies *Cookies, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		page: page{renderer: renderer, cookies: cookies, logger: log},
		auth: svc,
	}
}

// LoginPage is the data of the login template.
type LoginPage struct {
	Email  string
	Errors map[string]string
}

// RegisterPage is the data of the registration template.
type RegisterPage struct {
	Username string
	Email    string
	Errors   map[string]string
}

// LoginForm renders the login page. Signed-in users go straight to the dashboard.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if sess, _ := session.FromContext(r.Context()); sess.IsAuthenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", "Sign in", LoginPage{})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form data")
		return
	}

	creds := auth.Credentials{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	sess, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		data := LoginPage{Email: creds.Email}
		status := http.StatusUnauthorized
		var cerr *auth.CredentialsError
		if errors.As(err, &cerr) {
			data.Errors = cerr.Fields
			status = http.StatusUnprocessableEntity
		} else {
			h.logger.Warn(r.Context(), "login failed", map[string]interface{}{
				"email": creds.Email,
				"error": err.Error(),
			})
		}
		h.render(w, r, status, "login.html", "Sign in", data, errorFlash(auth.Message(err)))
		return
	}

	if err := h.cookies.SetSession(w, sess); err != nil {
		h.logger.Error(r.Context(), "failed to set session cookie", map[string]interface{}{
			"error": err.Error(),
		})
		h.renderError(w, r, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.logger.Info(r.Context(), "user logged in", map[string]interface{}{
		"user_id": sess.UserID,
	})
	h.redirect(w, r, "/dashboard", nil)
}

// RegisterForm renders the sign-up page. Signed-in users go straight to the dashboard.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if sess, _ := session.FromContext(r.Context()); sess.IsAuthenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "register.html", "Create account", RegisterPage{})
}

// Register handles the sign-up form and signs the new user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form data")
		return
	}

	reg := auth.Registration{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	sess, err := h.auth.Register(r.Context(), reg)
	if err != nil {
		data := RegisterPage{Username: reg.Username, Email: reg.Email}
		var cerr *auth.CredentialsError
		switch {
		case errors.As(err, &cerr):
			data.Errors = cerr.Fields
			h.render(w, r, http.StatusUnprocessableEntity, "register.html", "Create account", data, errorFlash(auth.RegisterMessage(err)))
		case errors.Is(err, auth.ErrRegistrationRejected):
			h.render(w, r, http.StatusBadRequest, "register.html", "Create account", data, errorFlash(auth.RegisterMessage(err)))
		default:
			h.logger.Error(r.Context(), "registration failed", map[string]interface{}{
				"email": reg.Email,
				"error": err.Error(),
			})
			h.render(w, r, http.StatusBadGateway, "register.html", "Create account", data, errorFlash(auth.RegisterMessage(err)))
		}
		return
	}

	if err := h.cookies.SetSession(w, sess); err != nil {
		h.logger.Error(r.Context(), "failed to set session cookie", map[string]interface{}{
			"error": err.Error(),
		})
		h.renderError(w, r, http.StatusInternalServerError, "Failed to create session")
		return
	}
	h.redirect(w, r, "/dashboard", successFlash(MsgRegistered))
}

// Logout tears down the session. On failure the user stays signed in and
// goes back to the dashboard.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	if err := h.auth.Logout(r.Context(), sess); err != nil {
		h.logger.Error(r.Context(), "logout failed", map[string]interface{}{
			"error": err.Error(),
		})
		flash := errorFlash(auth.MsgLogoutFailed)
		h.redirect(w, r, "/dashboard", &flash)
		return
	}

	h.cookies.ClearSession(w)
	h.redirect(w, r, "/login", successFlash(auth.MsgLoggedOut))
}
