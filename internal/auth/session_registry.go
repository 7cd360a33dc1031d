package auth

import (
	"context"

	"github.com/spmukhedkar/user-role-system-server/internal/model"
	"github.com/spmukhedkar/user-role-system-server/internal/repository"
)

// SessionRegistry is the per-user list of tokens that still authenticate.
// Signing a token is not enough to use it; it must also be registered here.
type SessionRegistry struct {
	sessions repository.SessionRepository
}

// NewSessionRegistry creates a registry over the given session storage.
func NewSessionRegistry(sessions repository.SessionRepository) *SessionRegistry {
	return &SessionRegistry{sessions: sessions}
}

// AddSession appends token to the user's sessions.
func (r *SessionRegistry) AddSession(ctx context.Context, user *model.User, token string, info TokenInfo) error {
	return r.sessions.Add(ctx, &model.Session{
		UserID:    user.ID,
		Token:     token,
		IssuedAt:  info.IssuedAt,
		ExpiresAt: info.ExpiresAt,
	})
}

// RevokeSession removes exactly token from the user's sessions. Unknown tokens are ignored.
func (r *SessionRegistry) RevokeSession(ctx context.Context, user *model.User, token string) error {
	return r.sessions.Revoke(ctx, user.ID, token)
}

// IsActive reports whether token is still in the user's sessions.
func (r *SessionRegistry) IsActive(ctx context.Context, user *model.User, token string) (bool, error) {
	return r.sessions.IsActive(ctx, user.ID, token)
}
