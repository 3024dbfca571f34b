package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
)

// Tokens are the credentials the backend issued at login.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Manager manages user sessions with automatic cleanup.
type Manager struct {
	store    Store
	duration time.Duration
	logger   logger.Logger
	stopCh   chan struct{}
}

// NewManager creates a new session manager with the given duration.
func NewManager(store Store, duration time.Duration, log logger.Logger) *Manager {
	return &Manager{
		store:    store,
		duration: duration,
		logger:   log,
		stopCh:   make(chan struct{}),
	}
}

// Create creates a new session for the given user. The session never
// outlives the token that keeps it alive: the refresh token when there is
// one, else the access token.
func (m *Manager) Create(ctx context.Context, user User, tokens Tokens) (*Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(m.duration)
	bound := tokens.AccessToken
	if tokens.RefreshToken != "" {
		bound = tokens.RefreshToken
	}
	if exp, ok := tokenExpiry(bound); ok && exp.Before(expiresAt) {
		expiresAt = exp
	}

	session := &Session{
		ID:           sessionID,
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
	}

	if err := m.store.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	m.logger.Info(ctx, "session created", map[string]interface{}{
		"session_id": sessionID.String(),
		"user_id":    user.ID,
		"expires_at": expiresAt,
	})

	return session, nil
}

// Get retrieves a session by ID.
func (m *Manager) Get(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	return m.store.Get(ctx, sessionID)
}

// UpdateAccessToken stores a renewed access token on the session.
func (m *Manager) UpdateAccessToken(ctx context.Context, sess *Session, accessToken string) error {
	sess.AccessToken = accessToken
	if err := m.store.Set(ctx, sess); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	m.logger.Debug(ctx, "access token refreshed", map[string]interface{}{
		"session_id": sess.ID.String(),
	})
	return nil
}

// Clear tears down a session.
func (m *Manager) Clear(ctx context.Context, sessionID uuid.UUID) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.logger.Info(ctx, "session deleted", map[string]interface{}{
		"session_id": sessionID.String(),
	})
	return nil
}

// StartCleanup starts a background goroutine that periodically cleans up expired sessions.
func (m *Manager) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				m.cleanup()
			case <-m.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

func (m *Manager) cleanup() {
	ctx := context.Background()
	removed, err := m.store.Cleanup(ctx)
	if err != nil {
		m.logger.Warn(ctx, "session cleanup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if removed > 0 {
		m.logger.Info(ctx, "cleaned up expired sessions", map[string]interface{}{
			"removed_count": removed,
		})
	}
}

// StopCleanup stops the cleanup goroutine.
func (m *Manager) StopCleanup() {
	close(m.stopCh)
}

func generateSessionID() (uuid.UUID, error) {
	return uuid.NewRandom()
}
