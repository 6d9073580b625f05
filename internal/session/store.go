package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

const snapshotVersion = 1

// Store persists session snapshots keyed by user id. Load returns nil, nil
// when no snapshot exists.
type Store interface {
	Load(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID int64) error
}

type snapshot struct {
	Version int      `json:"version"`
	Session *Session `json:"session"`
}

func EncodeSnapshot(s *Session) ([]byte, error) {
	return json.Marshal(snapshot{Version: snapshotVersion, Session: s})
}

func DecodeSnapshot(data []byte) (*Session, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}
	if snap.Version != snapshotVersion || snap.Session == nil {
		return nil, fmt.Errorf("decode session snapshot: unsupported version %d", snap.Version)
	}
	return snap.Session, nil
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

func (m *MemoryStore) Load(_ context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = *s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}
