package connection

import (
	"context"
	"sync"
	"time"
)

// Store persists connections under exploration.
type Store interface {
	// Save stores or replaces a connection.
	Save(ctx context.Context, conn *Connection) error

	// FindByID returns the connection or nil if not found.
	FindByID(ctx context.Context, id string) (*Connection, error)

	// FindByUser returns all connections owned by a user.
	FindByUser(ctx context.Context, userID string) ([]*Connection, error)

	// Delete removes a connection. Returns false if it did not exist.
	Delete(ctx context.Context, id string) (bool, error)
}

// MemoryStore is an in-memory Store for single-process deployments and
// tests.
type MemoryStore struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewMemoryStore creates an empty in-memory connection store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conns: make(map[string]*Connection)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Save(_ context.Context, conn *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *conn
	s.conns[conn.ID] = &cp
	return nil
}

//nolint:nilnil // nil,nil signals not-found by contract
func (s *MemoryStore) FindByID(_ context.Context, id string) (*Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.conns[id]
	if !ok {
		return nil, nil
	}
	cp := *conn
	return &cp, nil
}

func (s *MemoryStore) FindByUser(_ context.Context, userID string) ([]*Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Connection
	for _, conn := range s.conns {
		if conn.Descriptor.UserID == userID {
			cp := *conn
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[id]; !ok {
		return false, nil
	}
	delete(s.conns, id)
	return true, nil
}

// Touch updates a connection's last-used time if it exists.
func (s *MemoryStore) Touch(id string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conn, ok := s.conns[id]; ok {
		conn.LastUsedAt = t
	}
}
