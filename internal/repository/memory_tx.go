package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spmukhedkar/user-role-system-server/internal/model"
)

// WithTransaction runs fn against the store and undoes its writes if fn fails.
// Writes by other callers made in the meantime are left alone.
func (m *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	log := &undoLog{}
	err := fn(ctx, Tx{
		Users:    memoryTxUsers{memoryUsers{m}, log},
		Sessions: memoryTxSessions{memorySessions{m}, log},
	})
	if err != nil {
		m.mu.Lock()
		log.rollback()
		m.mu.Unlock()
	}
	return err
}

// undoLog collects compensating actions. They run in reverse order with the store lock held.
type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

func (l *undoLog) push(step func()) {
	l.mu.Lock()
	l.steps = append(l.steps, step)
	l.mu.Unlock()
}

func (l *undoLog) rollback() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.steps) - 1; i >= 0; i-- {
		l.steps[i]()
	}
	l.steps = nil
}

type memoryTxUsers struct {
	memoryUsers
	log *undoLog
}

func (r memoryTxUsers) Create(ctx context.Context, user *model.User) error {
	if err := r.memoryUsers.Create(ctx, user); err != nil {
		return err
	}
	m, id, name := r.m, user.ID, user.UserName
	r.log.push(func() {
		delete(m.users, id)
		delete(m.names, name)
		delete(m.sessions, id)
	})
	return nil
}

func (r memoryTxUsers) UpdateAuthorize(ctx context.Context, id uuid.UUID, authorize bool) error {
	r.remember(id)
	return r.memoryUsers.UpdateAuthorize(ctx, id, authorize)
}

func (r memoryTxUsers) AssignRole(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error {
	r.remember(id)
	return r.memoryUsers.AssignRole(ctx, id, roleID)
}

// remember records the current row of id so rollback can restore it.
func (r memoryTxUsers) remember(id uuid.UUID) {
	m := r.m
	m.mu.RLock()
	prev, ok := m.users[id]
	m.mu.RUnlock()
	if !ok {
		return
	}
	r.log.push(func() {
		if _, still := m.users[id]; still {
			m.users[id] = prev
		}
	})
}

type memoryTxSessions struct {
	memorySessions
	log *undoLog
}

func (r memoryTxSessions) Add(ctx context.Context, session *model.Session) error {
	if err := r.memorySessions.Add(ctx, session); err != nil {
		return err
	}
	m, userID, token := r.m, session.UserID, session.Token
	r.log.push(func() {
		m.removeSessions(userID, func(s model.Session) bool { return s.Token == token })
	})
	return nil
}

func (r memoryTxSessions) Revoke(_ context.Context, userID uuid.UUID, token string) error {
	m := r.m
	m.mu.Lock()
	removed := m.removeSessions(userID, func(s model.Session) bool { return s.Token == token })
	m.mu.Unlock()
	r.log.push(func() { m.restoreSessions(removed) })
	return nil
}

func (r memoryTxSessions) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m := r.m
	m.mu.Lock()
	removed := m.removeExpired(now)
	m.mu.Unlock()
	r.log.push(func() { m.restoreSessions(removed) })
	return int64(len(removed)), nil
}
