// Package session provides the session lifecycle manager for the core
// services node. It defines the Store contract for session persistence and
// the Manager that owns creation, validation, extension, revocation, and the
// periodic cleanup sweep. All mutation to a session's logical state funnels
// through the Manager, so stores never arbitrate concurrent writers for the
// same id.
package session

import (
	"context"
	"time"
)

// Status is the lifecycle status of a session, stored as its token string.
type Status string

// Session statuses. Revoked is terminal.
const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusRevoked   Status = "revoked"
	StatusSuspended Status = "suspended"
)

// Session is a time-bounded authorization record tied to one user and one
// client context.
type Session struct {
	// ID is the opaque unique session identifier, generated at creation
	// and immutable.
	ID string

	// UserID identifies the session owner.
	UserID string

	// Username is the owner's display name.
	Username string

	// CreatedAt is when the session was established.
	CreatedAt time.Time

	// LastAccessedAt is the most recent validation or extension time.
	LastAccessedAt time.Time

	// ExpiresAt is the absolute expiry time.
	ExpiresAt time.Time

	// UserAgent and RemoteAddr capture the client context.
	UserAgent  string
	RemoteAddr string

	// Status is the lifecycle status token.
	Status Status

	// RefreshToken rotates on extension.
	RefreshToken string
}

// IsActive reports whether the session is usable: status Active and current
// time before expiry. Any other condition makes it rejected on validation.
func (s *Session) IsActive(now time.Time) bool {
	return s.Status == StatusActive && now.Before(s.ExpiresAt)
}

// Clone returns a copy so callers never share the store's record.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}

// Store is the session persistence contract. Methods that write return an
// applied flag alongside the error: a non-nil error means the store could
// not be reached, applied=false means the store rejected the write (e.g. no
// matching active record). The Manager maps the two onto distinct failure
// kinds.
type Store interface {
	// Save persists a session, inserting or replacing by id.
	Save(ctx context.Context, s *Session) (bool, error)

	// FindByID retrieves a session by id. Returns nil, nil if no record
	// exists, regardless of status.
	FindByID(ctx context.Context, id string) (*Session, error)

	// FindActiveByUser returns the user's sessions that currently pass the
	// active check.
	FindActiveByUser(ctx context.Context, userID string) ([]*Session, error)

	// UpdateAccess sets the last-accessed time.
	UpdateAccess(ctx context.Context, id string, t time.Time) (bool, error)

	// UpdateExpiry sets the absolute expiry time.
	UpdateExpiry(ctx context.Context, id string, t time.Time) (bool, error)

	// Revoke marks the session revoked. applied=false when no active
	// record was updated.
	Revoke(ctx context.Context, id string) (bool, error)

	// CleanupExpired purges sessions that are Expired/Revoked or past
	// their expiry and returns the number removed.
	CleanupExpired(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}
