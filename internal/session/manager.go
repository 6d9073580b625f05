package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Manager serializes access to each user's session. Events of different
// users never wait on each other.
type Manager struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	ch   chan struct{}
	refs int
}

func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
		locks: make(map[int64]*userLock),
	}
}

// WithSession loads (or creates) the user's session, runs fn while holding
// the user's lock, and saves the result even when fn fails so that partial
// transitions such as a reset are not lost.
func (m *Manager) WithSession(ctx context.Context, userID int64, fn func(*Session) error) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(userID)

	s, err := m.store.Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		slog.Debug("creating session", "user_id", userID)
		s = New(userID)
	}

	fnErr := fn(s)
	s.UpdatedAt = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		return errors.Join(fnErr, fmt.Errorf("save session: %w", err))
	}
	return fnErr
}

func (m *Manager) lock(ctx context.Context, userID int64) error {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{ch: make(chan struct{}, 1)}
		m.locks[userID] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		m.dropRef(userID, l)
		return ctx.Err()
	}
}

func (m *Manager) unlock(userID int64) {
	m.mu.Lock()
	l := m.locks[userID]
	m.mu.Unlock()
	<-l.ch
	m.dropRef(userID, l)
}

func (m *Manager) dropRef(userID int64, l *userLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, userID)
	}
}

func (m *Manager) activeLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
