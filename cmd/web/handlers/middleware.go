package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/perplexiplay/apiclient"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
	"github.com/hairizuan-noorazman/perplexiplay/session"
)

// TokenRefresher renews the access token of a session.
type TokenRefresher interface {
	Refresh(ctx context.Context, sess *session.Session) error
}

// SessionMiddleware resolves the session cookie into the request context.
type SessionMiddleware struct {
	sessions      *session.Manager
	refresher     TokenRefresher
	refreshWindow time.Duration
	cookies       *Cookies
	logger        logger.Logger
}

// NewSessionMiddleware creates a new session middleware. Access tokens that
// expire within refreshWindow are renewed before the request is served.
func NewSessionMiddleware(sessions *session.Manager, refresher TokenRefresher, refreshWindow time.Duration, cookies *Cookies, log logger.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		sessions:      sessions,
		refresher:     refresher,
		refreshWindow: refreshWindow,
		cookies:       cookies,
		logger:        log,
	}
}

// Load attaches the live session, if any, to the request context together
// with its bearer token for backend calls. Requests without a session pass
// through unchanged; a stale cookie is cleared.
func (m *SessionMiddleware) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := m.cookies.SessionID(r)
		if err != nil {
			if !errors.Is(err, http.ErrNoCookie) {
				m.logger.Warn(r.Context(), "invalid session cookie", map[string]interface{}{
					"error": err.Error(),
				})
				m.cookies.ClearSession(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.sessions.Get(r.Context(), sessionID)
		if err != nil {
			m.logger.Warn(r.Context(), "invalid or expired session", map[string]interface{}{
				"error":      err.Error(),
				"session_id": sessionID.String(),
			})
			m.cookies.ClearSession(w)
			next.ServeHTTP(w, r)
			return
		}

		if !m.refresh(w, r, sess) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := session.NewContext(r.Context(), sess)
		ctx = apiclient.WithToken(ctx, sess.AccessToken)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// refresh renews the access token when it is about to expire. It reports
// whether the session is still usable; a session whose token already
// expired and could not be renewed is torn down.
func (m *SessionMiddleware) refresh(w http.ResponseWriter, r *http.Request, sess *session.Session) bool {
	if m.refresher == nil || !sess.NeedsRefresh(m.refreshWindow) {
		return true
	}

	err := m.refresher.Refresh(r.Context(), sess)
	if err == nil {
		return true
	}

	exp, _ := sess.AccessTokenExpiry()
	m.logger.Warn(r.Context(), "access token refresh failed", map[string]interface{}{
		"session_id": sess.ID.String(),
		"expires_at": exp,
		"error":      err.Error(),
	})
	if time.Now().Before(exp) {
		return true
	}

	if err := m.sessions.Clear(r.Context(), sess.ID); err != nil {
		m.logger.Error(r.Context(), "failed to clear session", map[string]interface{}{
			"session_id": sess.ID.String(),
			"error":      err.Error(),
		})
	}
	m.cookies.ClearSession(w)
	return false
}

// Require redirects to the login page unless the request carries an
// authenticated session. Nothing downstream runs in that case.
func (m *SessionMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())
		if !sess.IsAuthenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger tags each request with an ID and logs its outcome.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)
			r = r.WithContext(logger.WithRequestID(r.Context(), requestID))

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.Info(r.Context(), "request completed", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

// Recovery turns a handler panic into a 500 response.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error(r.Context(), "panic recovered", map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					})
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
