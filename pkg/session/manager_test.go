package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreateReq = CreateRequest{
	UserID:     "u1",
	Username:   "alice",
	UserAgent:  "x",
	RemoteAddr: "1.2.3.4",
}

// failingStore simulates an unreachable store.
type failingStore struct {
	MemoryStore
}

func (*failingStore) Save(_ context.Context, _ *Session) (bool, error) {
	return false, errors.New("connection refused")
}

func (*failingStore) FindByID(_ context.Context, _ string) (*Session, error) {
	return nil, errors.New("connection refused")
}

func (*failingStore) FindActiveByUser(_ context.Context, _ string) ([]*Session, error) {
	return nil, errors.New("connection refused")
}

func (*failingStore) CleanupExpired(_ context.Context) (int, error) {
	return 0, errors.New("connection refused")
}

// rejectingStore simulates a reachable store that rejects writes.
type rejectingStore struct {
	MemoryStore
}

func (*rejectingStore) Save(_ context.Context, _ *Session) (bool, error) {
	return false, nil
}

func TestManager_Create(t *testing.T) {
	m := NewManager(NewMemoryStore())

	sess, err := m.Create(context.Background(), testCreateReq)
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, StatusActive, sess.Status)
	assert.NotEmpty(t, sess.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), sess.ExpiresAt, time.Minute)
}

func TestManager_CreateInvalidRequest(t *testing.T) {
	m := NewManager(NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"missing user id", CreateRequest{Username: "alice"}},
		{"missing username", CreateRequest{UserID: "u1"}},
		{"empty request", CreateRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(ctx, tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestManager_CreateStoreUnavailable(t *testing.T) {
	m := NewManager(&failingStore{})

	_, err := m.Create(context.Background(), testCreateReq)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestManager_CreatePersistRejected(t *testing.T) {
	m := NewManager(&rejectingStore{})

	_, err := m.Create(context.Background(), testCreateReq)
	assert.ErrorIs(t, err, ErrPersistFailed)
}

func TestManager_ValidateRefreshesAccess(t *testing.T) {
	m := NewManager(NewMemoryStore())
	ctx := context.Background()

	sess, err := m.Create(ctx, testCreateReq)
	require.NoError(t, err)
	created := sess.LastAccessedAt

	time.Sleep(10 * time.Millisecond)
	got, err := m.Validate(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.LastAccessedAt.After(created), "Validate must refresh last-accessed time")
}

func TestManager_ValidateNotFound(t *testing.T) {
	m := NewManager(NewMemoryStore())

	_, err := m.Validate(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_ValidateExpired(t *testing.T) {
	// A session created 25 hours ago with the default 24h window.
	store := NewMemoryStore()
	past := time.Now().Add(-25 * time.Hour)
	creator := NewManager(store, WithClock(func() time.Time { return past }))

	sess, err := creator.Create(context.Background(), testCreateReq)
	require.NoError(t, err)

	m := NewManager(store)
	_, err = m.Validate(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestManager_ExtendMovesExpiry(t *testing.T) {
	// A session about to expire in 1 hour, extended by 2.
	store := NewMemoryStore()
	m := NewManager(store, WithTTL(time.Hour))
	ctx := context.Background()

	sess, err := m.Create(ctx, testCreateReq)
	require.NoError(t, err)
	previousToken := sess.RefreshToken

	got, err := m.Extend(ctx, sess.ID, 2)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), got.ExpiresAt, time.Minute)
	assert.NotEqual(t, previousToken, got.RefreshToken, "Extend must rotate the refresh token")

	validated, err := m.Validate(ctx, sess.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, got.ExpiresAt, validated.ExpiresAt, time.Second)
}

func TestManager_ExtendInvalidHours(t *testing.T) {
	m := NewManager(NewMemoryStore())
	ctx := context.Background()

	sess, err := m.Create(ctx, testCreateReq)
	require.NoError(t, err)

	_, err = m.Extend(ctx, sess.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = m.Extend(ctx, sess.ID, -3)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestManager_RevokeIsTerminal(t *testing.T) {
	m := NewManager(NewMemoryStore())
	ctx := context.Background()

	sess, err := m.Create(ctx, testCreateReq)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, sess.ID))

	_, err = m.Validate(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrAlreadyRevoked)

	_, err = m.Extend(ctx, sess.ID, 2)
	assert.ErrorIs(t, err, ErrAlreadyRevoked)

	assert.ErrorIs(t, m.Revoke(ctx, sess.ID), ErrAlreadyRevoked)
}

func TestManager_RevokeNotFound(t *testing.T) {
	m := NewManager(NewMemoryStore())

	err := m.Revoke(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrAlreadyRevoked)
}

func TestManager_ListActive(t *testing.T) {
	m := NewManager(NewMemoryStore())
	ctx := context.Background()

	first, err := m.Create(ctx, testCreateReq)
	require.NoError(t, err)
	_, err = m.Create(ctx, testCreateReq)
	require.NoError(t, err)
	other := testCreateReq
	other.UserID = "u2"
	_, err = m.Create(ctx, other)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, first.ID))

	sessions, err := m.ListActive(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestManager_ListActiveEmptyIsNotAnError(t *testing.T) {
	m := NewManager(NewMemoryStore())

	sessions, err := m.ListActive(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = NewManager(&failingStore{}).ListActive(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrStoreUnavailable, "a store error is reported distinctly from an empty result")
}

func TestManager_CleanupIdempotent(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store)
	ctx := context.Background()

	sess, err := m.Create(ctx, testCreateReq)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, sess.ID))

	removed, err := m.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// With no new expirations, the second sweep removes nothing.
	removed, err = m.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestManager_CleanupSweepLifecycle(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, WithTTL(-time.Second))
	ctx := context.Background()

	_, err := m.Create(ctx, testCreateReq)
	require.NoError(t, err)

	m.StartCleanup(20 * time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, m.Close())

	sessions, err := store.FindActiveByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestManager_CleanupFailureDoesNotStopSweep(t *testing.T) {
	m := NewManager(&failingStore{})

	m.StartCleanup(10 * time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, m.Close(), "a failed sweep must not crash the manager")
}

func TestManager_CloseWithoutStart(t *testing.T) {
	m := NewManager(NewMemoryStore())
	assert.NoError(t, m.Close())
}

func TestManager_ConcurrentDistinctSessions(t *testing.T) {
	m := NewManager(NewMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := m.Create(ctx, testCreateReq)
			if err != nil {
				t.Error(err)
				return
			}
			for range 20 {
				if _, err := m.Validate(ctx, sess.ID); err != nil {
					t.Error(err)
					return
				}
			}
			if _, err := m.Extend(ctx, sess.ID, 1); err != nil {
				t.Error(err)
			}
			if err := m.Revoke(ctx, sess.ID); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}
