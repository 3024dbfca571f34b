package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session has expired.
	ErrSessionExpired = errors.New("session expired")
)

// User is the identity the backend returned at login.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session is the authenticated state of one browser. It is created at login,
// read by every screen through the request context, and removed at logout.
type Session struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID       int64     `gorm:"not null;index:idx_sessions_user_id"`
	Username     string    `gorm:"type:varchar(255);not null"`
	Email        string    `gorm:"type:varchar(255);not null"`
	AccessToken  string    `gorm:"type:text;not null"`
	RefreshToken string    `gorm:"type:text"`
	CreatedAt    time.Time
	ExpiresAt    time.Time `gorm:"not null;index:idx_sessions_expires_at"`
}

// User returns the identity held by the session.
func (s *Session) User() User {
	return User{ID: s.UserID, Username: s.Username, Email: s.Email}
}

// IsExpired checks if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// AccessTokenExpiry returns the exp claim of the access token, if it has one.
func (s *Session) AccessTokenExpiry() (time.Time, bool) {
	return tokenExpiry(s.AccessToken)
}

// NeedsRefresh reports whether the access token expires within window and
// the session holds a refresh token to renew it with.
func (s *Session) NeedsRefresh(window time.Duration) bool {
	if s == nil || s.RefreshToken == "" {
		return false
	}
	exp, ok := s.AccessTokenExpiry()
	return ok && time.Until(exp) < window
}

// IsAuthenticated reports whether s is a live session. A nil session is not authenticated.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.AccessToken != "" && !s.IsExpired()
}

// Store persists sessions.
type Store interface {
	// Set stores or replaces a session.
	Set(ctx context.Context, session *Session) error

	// Get retrieves a live session by ID.
	Get(ctx context.Context, id uuid.UUID) (*Session, error)

	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// Cleanup removes expired sessions and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)
}

// MemoryStore is an in-memory session store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Set stores a copy of the session in the store.
func (s *MemoryStore) Set(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	s.sessions[session.ID] = &stored
	return nil
}

// Get retrieves a session from the store.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		return nil, ErrSessionExpired
	}

	// Callers get their own copy.
	out := *session
	return &out, nil
}

// Delete removes a session from the store.
func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Cleanup removes expired sessions from the store.
func (s *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed, nil
}

type contextKey struct{}

// NewContext returns a context carrying the given session.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
