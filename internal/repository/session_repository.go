package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spmukhedkar/user-role-system-server/internal/model"
)

// SessionRepository stores the per-user list of issued tokens.
type SessionRepository interface {
	Add(ctx context.Context, session *model.Session) error
	Revoke(ctx context.Context, userID uuid.UUID, token string) error
	IsActive(ctx context.Context, userID uuid.UUID, token string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	gormStore
}

// NewSessionRepository builds a GORM-backed repository.
func NewSessionRepository(db *gorm.DB, timeout time.Duration) SessionRepository {
	return &sessionRepository{gormStore{db: db, timeout: timeout}}
}

// Add appends a session with a single INSERT, so concurrent signins for one user never overwrite each other.
func (r *sessionRepository) Add(ctx context.Context, session *model.Session) error {
	tx, cancel := r.conn(ctx)
	defer cancel()

	return persistence("add session", tx.Create(session).Error)
}

// Revoke deletes the exact token. Deleting a token that is not present is not an error.
func (r *sessionRepository) Revoke(ctx context.Context, userID uuid.UUID, token string) error {
	tx, cancel := r.conn(ctx)
	defer cancel()

	err := tx.Where("user_id = ? AND token = ?", userID, token).Delete(&model.Session{}).Error
	return persistence("revoke session", err)
}

func (r *sessionRepository) IsActive(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	tx, cancel := r.conn(ctx)
	defer cancel()

	var n int64
	err := tx.Model(&model.Session{}).Where("user_id = ? AND token = ?", userID, token).Count(&n).Error
	if err != nil {
		return false, persistence("check session", err)
	}
	return n > 0, nil
}

// ListByUser returns the user's sessions, most recent last.
func (r *sessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	tx, cancel := r.conn(ctx)
	defer cancel()

	var sessions []model.Session
	err := tx.Where("user_id = ?", userID).Order("issued_at, id").Find(&sessions).Error
	if err != nil {
		return nil, persistence("list sessions", err)
	}
	return sessions, nil
}

// PurgeExpired removes sessions whose token can no longer verify anyway.
func (r *sessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tx, cancel := r.conn(ctx)
	defer cancel()

	res := tx.Where("expires_at <= ?", now).Delete(&model.Session{})
	if res.Error != nil {
		return 0, persistence("purge sessions", res.Error)
	}
	return res.RowsAffected, nil
}
