package session

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps sessions in memory. Loads and saves copy the session so
// callers never share state with the store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	saves    int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Load returns a copy of the stored session, or an empty one.
func (m *MemoryStore) Load(ctx context.Context, key string) (*Session, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[key]; ok {
		return s.Clone(), nil
	}
	return NewSession(), nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(ctx context.Context, key string, s *Session) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s == nil {
		s = NewSession()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[key] = s.Clone()
	m.saves++
	return nil
}

// Delete forgets the session.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}

// List returns the stored keys, sorted.
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Saves returns how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
