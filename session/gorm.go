package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
	"gorm.io/gorm"
)

// GormStore implements the Store interface on a SQL database through GORM.
// It lets sessions survive restarts and be shared by several web replicas.
type GormStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewGormStore creates a new database-backed session store.
func NewGormStore(db *gorm.DB, log logger.Logger) *GormStore {
	return &GormStore{
		db:     db,
		logger: log,
	}
}

// Set inserts or replaces a session row.
func (s *GormStore) Set(ctx context.Context, session *Session) error {
	if err := s.db.WithContext(ctx).Save(session).Error; err != nil {
		s.logger.Error(ctx, "failed to save session", map[string]interface{}{
			"error":      err.Error(),
			"session_id": session.ID.String(),
		})
		return err
	}
	return nil
}

// Get retrieves a session by ID.
func (s *GormStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	var session Session
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error(ctx, "failed to get session", map[string]interface{}{
			"error":      err.Error(),
			"session_id": id.String(),
		})
		return nil, err
	}

	if session.IsExpired() {
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// Delete removes a session row.
func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Session{}).Error; err != nil {
		s.logger.Error(ctx, "failed to delete session", map[string]interface{}{
			"error":      err.Error(),
			"session_id": id.String(),
		})
		return err
	}
	return nil
}

// Cleanup removes expired session rows.
func (s *GormStore) Cleanup(ctx context.Context) (int, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&Session{})

	if result.Error != nil {
		s.logger.Error(ctx, "failed to clean up sessions", map[string]interface{}{
			"error": result.Error.Error(),
		})
		return 0, result.Error
	}

	return int(result.RowsAffected), nil
}
