package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/hairizuan-noorazman/perplexiplay/session"
)

// Flash types.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot notification shown as a toast.
type Flash struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// CookieConfig holds the signing keys and names of the web cookies.
type CookieConfig struct {
	SessionName string
	FlashName   string
	HashKey     []byte
	BlockKey    []byte
	Secure      bool
}

// Cookies signs the session-ID and flash cookies.
type Cookies struct {
	codec       *securecookie.SecureCookie
	sessionName string
	flashName   string
	secure      bool
}

// NewCookies creates the cookie codec. An empty block key leaves cookie
// values signed but not encrypted.
func NewCookies(cfg CookieConfig) *Cookies {
	var block []byte
	if len(cfg.BlockKey) > 0 {
		block = cfg.BlockKey
	}
	codec := securecookie.New(cfg.HashKey, block)
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &Cookies{
		codec:       codec,
		sessionName: cfg.SessionName,
		flashName:   cfg.FlashName,
		secure:      cfg.Secure,
	}
}

// SetSession sets the session cookie; it expires with the session.
func (c *Cookies) SetSession(w http.ResponseWriter, sess *session.Session) error {
	encoded, err := c.codec.Encode(c.sessionName, sess.ID.String())
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.sessionName,
		Value:    encoded,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SessionID reads the session ID from the request cookie.
func (c *Cookies) SessionID(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(c.sessionName)
	if err != nil {
		return uuid.Nil, err
	}
	var raw string
	if err := c.codec.Decode(c.sessionName, cookie.Value, &raw); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(raw)
}

// ClearSession clears the session cookie.
func (c *Cookies) ClearSession(w http.ResponseWriter) {
	c.clear(w, c.sessionName)
}

// AddFlash stores a flash for the next rendered page.
func (c *Cookies) AddFlash(w http.ResponseWriter, f Flash) error {
	encoded, err := c.codec.Encode(c.flashName, f)
	if err != nil {
		return fmt.Errorf("encode flash: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.flashName,
		Value:    encoded,
		Path:     "/",
		Expires:  time.Now().Add(5 * time.Minute),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// PopFlash returns the pending flash, if any, and clears it.
func (c *Cookies) PopFlash(w http.ResponseWriter, r *http.Request) []Flash {
	cookie, err := r.Cookie(c.flashName)
	if err != nil {
		return nil
	}
	c.clear(w, c.flashName)

	var f Flash
	if err := c.codec.Decode(c.flashName, cookie.Value, &f); err != nil || f.Message == "" {
		return nil
	}
	return []Flash{f}
}

func (c *Cookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
