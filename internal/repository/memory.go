package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/spmukhedkar/user-role-system-server/internal/errors"
	"github.com/spmukhedkar/user-role-system-server/internal/model"
)

var errDuplicateSession = errors.New("duplicate session token")

// MemoryStore keeps users, roles and sessions in process memory.
// It enforces the same uniqueness rules as the MySQL schema and is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[uuid.UUID]model.User
	names    map[string]uuid.UUID
	roles    map[uuid.UUID]model.Role
	roleName map[string]uuid.UUID
	sessions map[uuid.UUID][]model.Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		users:    make(map[uuid.UUID]model.User),
		names:    make(map[string]uuid.UUID),
		roles:    make(map[uuid.UUID]model.Role),
		roleName: make(map[string]uuid.UUID),
		sessions: make(map[uuid.UUID][]model.Session),
	}
}

// Users returns the store as a UserRepository.
func (m *MemoryStore) Users() UserRepository { return memoryUsers{m} }

// Roles returns the store as a RoleRepository.
func (m *MemoryStore) Roles() RoleRepository { return memoryRoles{m} }

// Sessions returns the store as a SessionRepository.
func (m *MemoryStore) Sessions() SessionRepository { return memorySessions{m} }

type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *model.User) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.names[user.UserName]; taken {
		return apperrors.ErrUserNameTaken
	}
	if user.RoleID != nil {
		if _, ok := m.roles[*user.RoleID]; !ok {
			return apperrors.ErrUnknownRole
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := m.now()
	user.CreatedAt, user.UpdatedAt = now, now

	stored := *user
	stored.Role, stored.Sessions = nil, nil
	m.users[user.ID] = stored
	m.names[user.UserName] = user.ID
	return nil
}

func (r memoryUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	u, ok := r.m.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return r.m.withRole(u), nil
}

func (r memoryUsers) FindByUserName(ctx context.Context, userName string) (*model.User, error) {
	r.m.mu.RLock()
	id, ok := r.m.names[userName]
	r.m.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}

func (r memoryUsers) ListByAuthorize(_ context.Context, filter model.AuthFilter) ([]model.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	users := make([]model.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		if filter.Matches(u.Authorize) {
			users = append(users, *r.m.withRole(u))
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID.String() < users[j].ID.String()
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r memoryUsers) UpdateAuthorize(_ context.Context, id uuid.UUID, authorize bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	u, ok := r.m.users[id]
	if !ok {
		return nil
	}
	u.Authorize = authorize
	u.UpdatedAt = r.m.now()
	r.m.users[id] = u
	return nil
}

func (r memoryUsers) AssignRole(_ context.Context, id uuid.UUID, roleID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.roles[roleID]; !ok {
		return apperrors.ErrUnknownRole
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil
	}
	u.RoleID = &roleID
	u.UpdatedAt = r.m.now()
	r.m.users[id] = u
	return nil
}

// withRole copies u and attaches its role. Callers hold the lock.
func (m *MemoryStore) withRole(u model.User) *model.User {
	if u.RoleID != nil {
		roleID := *u.RoleID
		u.RoleID = &roleID
		if role, ok := m.roles[roleID]; ok {
			u.Role = &role
		}
	}
	return &u
}

type memoryRoles struct{ m *MemoryStore }

func (r memoryRoles) Create(_ context.Context, role *model.Role) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.roleName[role.Name]; taken {
		return apperrors.ErrRoleNameTaken
	}
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	now := m.now()
	role.CreatedAt, role.UpdatedAt = now, now
	m.roles[role.ID] = *role
	m.roleName[role.Name] = role.ID
	return nil
}

func (r memoryRoles) FindByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	role, ok := r.m.roles[id]
	if !ok {
		return nil, apperrors.ErrRoleNotFound
	}
	return &role, nil
}

func (r memoryRoles) FindByName(ctx context.Context, name string) (*model.Role, error) {
	r.m.mu.RLock()
	id, ok := r.m.roleName[name]
	r.m.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrRoleNotFound
	}
	return r.FindByID(ctx, id)
}

func (r memoryRoles) List(_ context.Context) ([]model.Role, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	roles := make([]model.Role, 0, len(r.m.roles))
	for _, role := range r.m.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].CreatedAt.Equal(roles[j].CreatedAt) {
			return roles[i].ID.String() < roles[j].ID.String()
		}
		return roles[i].CreatedAt.Before(roles[j].CreatedAt)
	})
	return roles, nil
}

type memorySessions struct{ m *MemoryStore }

func (r memorySessions) Add(_ context.Context, session *model.Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, s := range r.m.sessions[session.UserID] {
		if s.Token == session.Token {
			return apperrors.Persistence("add session", errDuplicateSession)
		}
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	r.m.sessions[session.UserID] = append(r.m.sessions[session.UserID], *session)
	return nil
}

func (r memorySessions) Revoke(_ context.Context, userID uuid.UUID, token string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.removeSessions(userID, func(s model.Session) bool { return s.Token == token })
	return nil
}

func (r memorySessions) IsActive(_ context.Context, userID uuid.UUID, token string) (bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for _, s := range r.m.sessions[userID] {
		if s.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func (r memorySessions) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Session, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	return append([]model.Session(nil), r.m.sessions[userID]...), nil
}

func (r memorySessions) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	return int64(len(r.m.removeExpired(now))), nil
}

// removeSessions drops the user's sessions matching drop and returns them. Callers hold the lock.
func (m *MemoryStore) removeSessions(userID uuid.UUID, drop func(model.Session) bool) []model.Session {
	current := m.sessions[userID]
	kept := make([]model.Session, 0, len(current))
	var removed []model.Session
	for _, s := range current {
		if drop(s) {
			removed = append(removed, s)
			continue
		}
		kept = append(kept, s)
	}
	m.sessions[userID] = kept
	return removed
}

// removeExpired drops every session expiring at or before now. Callers hold the lock.
func (m *MemoryStore) removeExpired(now time.Time) []model.Session {
	var removed []model.Session
	for userID := range m.sessions {
		removed = append(removed, m.removeSessions(userID, func(s model.Session) bool {
			return !s.ExpiresAt.After(now)
		})...)
	}
	return removed
}

// restoreSessions puts back sessions removed earlier, keeping issue order. Callers hold the lock.
func (m *MemoryStore) restoreSessions(sessions []model.Session) {
	touched := make(map[uuid.UUID]bool)
	for _, s := range sessions {
		dup := false
		for _, cur := range m.sessions[s.UserID] {
			if cur.Token == s.Token {
				dup = true
				break
			}
		}
		if !dup {
			m.sessions[s.UserID] = append(m.sessions[s.UserID], s)
			touched[s.UserID] = true
		}
	}
	for userID := range touched {
		list := m.sessions[userID]
		sort.SliceStable(list, func(i, j int) bool { return list[i].IssuedAt.Before(list[j].IssuedAt) })
	}
}
