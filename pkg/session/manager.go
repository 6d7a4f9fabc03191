package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTTL is the absolute expiry window for new sessions.
	DefaultTTL = 24 * time.Hour

	// DefaultCleanupInterval paces the periodic expiration sweep.
	DefaultCleanupInterval = 15 * time.Minute

	// refreshTokenBytes sizes the fallback random refresh token.
	refreshTokenBytes = 32
)

// TokenSource mints refresh tokens for sessions. The core node wires a JWT
// minter here; the default generates opaque random tokens.
type TokenSource interface {
	Mint(userID, sessionID string, expiresAt time.Time) (string, error)
}

type randomTokenSource struct{}

func (randomTokenSource) Mint(_, _ string, _ time.Time) (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CreateRequest carries the fields for a new session.
type CreateRequest struct {
	UserID     string
	Username   string
	UserAgent  string
	RemoteAddr string
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithTTL overrides the default expiry window.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.ttl = ttl }
}

// WithTokenSource overrides refresh token minting.
func WithTokenSource(ts TokenSource) ManagerOption {
	return func(m *Manager) { m.tokens = ts }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// Manager owns the session lifecycle rules. Operations on different session
// ids run concurrently; operations on the same id are serialized by a keyed
// lock, making the Manager the single writer per id ahead of the store.
type Manager struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	tokens TokenSource

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a session manager over the given store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		tokens: randomTokenSource{},
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create allocates a new active session with expiry now + the default
// window, persists it, and returns it.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	if req.UserID == "" || req.Username == "" {
		return nil, fmt.Errorf("%w: userId and username are required", ErrInvalidRequest)
	}

	now := m.now()
	sess := &Session{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		Username:       req.Username,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(m.ttl),
		UserAgent:      req.UserAgent,
		RemoteAddr:     req.RemoteAddr,
		Status:         StatusActive,
	}

	token, err := m.tokens.Mint(sess.UserID, sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("minting refresh token: %w", err)
	}
	sess.RefreshToken = token

	applied, err := m.store.Save(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !applied {
		return nil, ErrPersistFailed
	}

	slog.Debug("session created", "session_id", sess.ID, "user_id", sess.UserID)
	return sess, nil
}

// Validate checks that the session exists and is usable, refreshes its
// last-accessed time, and returns it.
func (m *Manager) Validate(ctx context.Context, id string) (*Session, error) {
	unlock := m.lock(id)
	defer unlock()

	sess, err := m.fetchUsable(ctx, id)
	if err != nil {
		return nil, err
	}

	now := m.now()
	sess.LastAccessedAt = now
	if applied, err := m.store.UpdateAccess(ctx, id, now); err != nil || !applied {
		// The session is still valid; a missed touch only skews idle
		// accounting, so it is logged rather than surfaced.
		slog.Warn("session access update not applied", "session_id", id, "error", err)
	}
	return sess, nil
}

// Extend moves the expiry to now + hours, rotates the refresh token, and
// refreshes last-accessed time.
func (m *Manager) Extend(ctx context.Context, id string, hours int) (*Session, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("%w: extension hours must be positive", ErrInvalidRequest)
	}

	unlock := m.lock(id)
	defer unlock()

	sess, err := m.fetchUsable(ctx, id)
	if err != nil {
		return nil, err
	}

	now := m.now()
	expiry := now.Add(time.Duration(hours) * time.Hour)

	applied, err := m.store.UpdateExpiry(ctx, id, expiry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !applied {
		return nil, ErrUpdateFailed
	}

	sess.ExpiresAt = expiry
	sess.LastAccessedAt = now
	if applied, err := m.store.UpdateAccess(ctx, id, now); err != nil || !applied {
		slog.Warn("session access update not applied", "session_id", id, "error", err)
	}

	// Token rotation rides on the extension; a failed rotation keeps the
	// previous token valid until the next extension.
	if token, err := m.tokens.Mint(sess.UserID, sess.ID, expiry); err == nil {
		sess.RefreshToken = token
		if applied, err := m.store.Save(ctx, sess); err != nil || !applied {
			slog.Warn("refresh token rotation not persisted", "session_id", id, "error", err)
		}
	}

	return sess, nil
}

// Revoke marks the session revoked. Revocation is terminal: a revoked
// session can never become active again.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	unlock := m.lock(id)
	defer unlock()

	applied, err := m.store.Revoke(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !applied {
		return ErrAlreadyRevoked
	}

	slog.Debug("session revoked", "session_id", id)
	return nil
}

// ListActive returns the user's sessions that currently pass the validation
// check. An empty result is not an error.
func (m *Manager) ListActive(ctx context.Context, userID string) ([]*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}

	sessions, err := m.store.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := m.now()
	active := make([]*Session, 0, len(sessions))
	for _, s := range sessions {
		if s.IsActive(now) {
			active = append(active, s)
		}
	}
	return active, nil
}

// Cleanup purges sessions that are expired, revoked, or past their expiry
// and returns the number removed. Failures are reported to the caller; the
// scheduled sweep logs them and retries on the next cycle.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	removed, err := m.store.CleanupExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if removed > 0 {
		slog.Info("expired sessions removed", "count", removed)
	}
	return removed, nil
}

// StartCleanup launches the periodic cleanup sweep. The period is measured
// from startup and is independent of request traffic. The sweep stops when
// Close is called; no further ticks are delivered after shutdown begins.
func (m *Manager) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Cleanup(ctx); err != nil {
					slog.Warn("session cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the cleanup sweep and waits for it to exit. It is safe to
// call Close even if StartCleanup was never called.
func (m *Manager) Close() error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
	return nil
}

// fetchUsable loads a session and rejects it unless it passes the active
// check. Callers hold the per-id lock.
func (m *Manager) fetchUsable(ctx context.Context, id string) (*Session, error) {
	sess, err := m.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	if sess.Status == StatusRevoked {
		return nil, ErrAlreadyRevoked
	}
	if !sess.IsActive(m.now()) {
		return nil, ErrExpired
	}
	return sess, nil
}

// lock serializes operations on one session id.
func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}
