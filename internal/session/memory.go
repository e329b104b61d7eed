package session

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps session state in process memory. Values are copied on
// the way in and out so callers never share backing arrays.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID, key string) ([]byte, bool, error) {
	if sessionID == "" {
		return nil, false, fmt.Errorf("sessionID is empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.sessions[sessionID][key]
	if !ok {
		return nil, false, nil
	}
	return clone(value), true, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID, key string, value []byte) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[sessionID]
	if !ok {
		data = make(map[string][]byte)
		s.sessions[sessionID] = data
	}
	data[key] = clone(value)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID, key string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(data, key)
	if len(data) == 0 {
		delete(s.sessions, sessionID)
	}
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Len is the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
