package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a connection id is unknown.
var ErrNotFound = errors.New("connection not found")

// Manager owns the exploration lifecycle for database connections:
// validate the descriptor, probe reachability, and track the live
// connection until exploration stops.
type Manager struct {
	store  Store
	prober Prober
}

// NewManager creates a manager over the given store and prober.
func NewManager(store Store, prober Prober) *Manager {
	return &Manager{store: store, prober: prober}
}

// StartExploration validates and probes the descriptor, then registers
// the connection under a new id.
func (m *Manager) StartExploration(ctx context.Context, desc Descriptor) (*Connection, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection descriptor: %w", err)
	}

	if err := m.prober.Probe(ctx, desc); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	now := time.Now()
	conn := &Connection{
		ID:         uuid.NewString(),
		Descriptor: desc,
		Active:     true,
		CreatedAt:  now,
		LastUsedAt: now,
	}

	if err := m.store.Save(ctx, conn); err != nil {
		return nil, fmt.Errorf("storing connection: %w", err)
	}

	slog.Info("exploration started",
		"connection_id", conn.ID,
		"database_type", desc.Kind,
		"host", desc.Host,
		"database", desc.Database)

	return conn, nil
}

// StopExploration removes a connection from the active set.
func (m *Manager) StopExploration(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("connection id is required")
	}

	removed, err := m.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("removing connection: %w", err)
	}
	if !removed {
		return ErrNotFound
	}

	slog.Info("exploration stopped", "connection_id", id)
	return nil
}

// Get returns a connection by id.
func (m *Manager) Get(ctx context.Context, id string) (*Connection, error) {
	conn, err := m.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("looking up connection: %w", err)
	}
	if conn == nil {
		return nil, ErrNotFound
	}
	return conn, nil
}

// ListByUser returns all connections owned by a user.
func (m *Manager) ListByUser(ctx context.Context, userID string) ([]*Connection, error) {
	return m.store.FindByUser(ctx, userID)
}
