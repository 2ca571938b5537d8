package session

import (
	"context"
	"sync"

	"shopify-auth-layer/internal/domain"
	"shopify-auth-layer/internal/ports"
)

// MemoryStore implements SessionStore in process memory. Useful for local
// development and tests; sessions don't survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.AppSession
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.AppSession),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.AppSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ports.ErrSessionNotFound
	}
	copied := *sess
	return &copied, nil
}

func (s *MemoryStore) Put(_ context.Context, id string, session *domain.AppSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[id] = &copied
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}
