package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory map. It is the default
// store for single-process deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Save persists a session, inserting or replacing by id.
func (s *MemoryStore) Save(_ context.Context, sess *Session) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess.Clone()
	return true, nil
}

// FindByID retrieves a session by id. Returns nil, nil if no record exists.
func (s *MemoryStore) FindByID(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil //nolint:nilnil // Store contract specifies nil,nil for not-found
	}
	return sess.Clone(), nil
}

// FindActiveByUser returns the user's currently usable sessions.
func (s *MemoryStore) FindActiveByUser(_ context.Context, userID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	result := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.IsActive(now) {
			result = append(result, sess.Clone())
		}
	}
	return result, nil
}

// UpdateAccess sets the last-accessed time.
func (s *MemoryStore) UpdateAccess(_ context.Context, id string, t time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	sess.LastAccessedAt = t
	return true, nil
}

// UpdateExpiry sets the absolute expiry time.
func (s *MemoryStore) UpdateExpiry(_ context.Context, id string, t time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	sess.ExpiresAt = t
	return true, nil
}

// Revoke marks the session revoked. Only an active record is updated.
func (s *MemoryStore) Revoke(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Status == StatusRevoked {
		return false, nil
	}
	sess.Status = StatusRevoked
	return true, nil
}

// CleanupExpired purges sessions that are expired, revoked, or past expiry.
func (s *MemoryStore) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, sess := range s.sessions {
		if sess.Status == StatusExpired || sess.Status == StatusRevoked || !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Close implements Store; the memory store holds no external resources.
func (s *MemoryStore) Close() error {
	return nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
