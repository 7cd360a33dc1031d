package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	apperrors "github.com/spmukhedkar/user-role-system-server/internal/errors"
	"github.com/spmukhedkar/user-role-system-server/internal/model"
)

// DefaultAdminRole is the reserved role name that grants admin operations.
const DefaultAdminRole = "admin"

// Principal is the authenticated caller of a request.
type Principal struct {
	Token   string
	Session TokenInfo
	User    *model.User
}

// Stage inspects or enriches a principal. A non-nil error stops the pipeline.
type Stage func(ctx context.Context, p *Principal) (*Principal, error)

// Pipeline runs stages left to right and stops at the first error.
func Pipeline(stages ...Stage) Stage {
	return func(ctx context.Context, p *Principal) (*Principal, error) {
		var err error
		for _, stage := range stages {
			if p, err = stage(ctx, p); err != nil {
				return nil, err
			}
		}
		return p, nil
	}
}

// TokenVerifier checks signature and expiry.
type TokenVerifier interface {
	Verify(token string) (*TokenInfo, error)
}

// UserFinder loads the current user record.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// SessionChecker reports whether a token is still registered for its user.
type SessionChecker interface {
	IsActive(ctx context.Context, user *model.User, token string) (bool, error)
}

// Gate holds the two request stages. Neither stage writes to storage.
type Gate struct {
	tokens    TokenVerifier
	users     UserFinder
	sessions  SessionChecker
	adminRole string
}

// NewGate builds a gate. An empty adminRole falls back to DefaultAdminRole.
func NewGate(tokens TokenVerifier, users UserFinder, sessions SessionChecker, adminRole string) *Gate {
	if adminRole == "" {
		adminRole = DefaultAdminRole
	}
	return &Gate{tokens: tokens, users: users, sessions: sessions, adminRole: adminRole}
}

// AdminRole returns the role name RequireAdmin checks for.
func (g *Gate) AdminRole() string { return g.adminRole }

// Authenticate resolves p.Token to a user whose session list still holds it.
// The user is read from storage on every call.
func (g *Gate) Authenticate(ctx context.Context, p *Principal) (*Principal, error) {
	if p == nil || p.Token == "" {
		return nil, apperrors.ErrMissingToken
	}

	info, err := g.tokens.Verify(p.Token)
	if err != nil {
		return nil, err
	}

	user, err := g.users.FindByID(ctx, info.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken.WithErr(err)
		}
		return nil, err
	}

	active, err := g.sessions.IsActive(ctx, user, p.Token)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperrors.ErrSessionRevoked
	}

	return &Principal{Token: p.Token, Session: *info, User: user}, nil
}

// RequireAdmin passes only principals whose role is the admin role.
// The authorize flag plays no part in this decision.
func (g *Gate) RequireAdmin(_ context.Context, p *Principal) (*Principal, error) {
	if p == nil || p.User == nil {
		return nil, apperrors.ErrMissingToken
	}
	if !p.User.HasRole(g.adminRole) {
		return nil, apperrors.ErrForbidden
	}
	return p, nil
}

// User returns the stage that authenticates a request.
func (g *Gate) User() Stage {
	return g.Authenticate
}

// Admin returns the stage chain for privileged operations.
func (g *Gate) Admin() Stage {
	return Pipeline(g.Authenticate, g.RequireAdmin)
}
