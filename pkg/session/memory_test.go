package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	memTestTTL        = 5 * time.Minute
	memTestGoroutines = 10
	memTestIterations = 100
	memTestSess1      = "sess-1"
)

func newTestSession(id string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		UserID:         "user-" + id,
		Username:       "alice",
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(ttl),
		UserAgent:      "test-agent",
		RemoteAddr:     "1.2.3.4",
		Status:         StatusActive,
	}
}

func TestMemoryStore_SaveAndFind(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	applied, err := store.Save(ctx, newTestSession(memTestSess1, memTestTTL))
	require.NoError(t, err)
	require.True(t, applied)

	got, err := store.FindByID(ctx, memTestSess1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, memTestSess1, got.ID)
	assert.Equal(t, "user-sess-1", got.UserID)
	assert.Equal(t, StatusActive, got.Status)
}

func TestMemoryStore_FindNotFound(t *testing.T) {
	store := NewMemoryStore()

	got, err := store.FindByID(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_FindReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Save(ctx, newTestSession(memTestSess1, memTestTTL))
	require.NoError(t, err)

	first, err := store.FindByID(ctx, memTestSess1)
	require.NoError(t, err)
	first.Status = StatusSuspended

	second, err := store.FindByID(ctx, memTestSess1)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, second.Status, "callers must not share the store's record")
}

func TestMemoryStore_FindActiveByUser(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	active := newTestSession("a", memTestTTL)
	expired := newTestSession("b", -time.Second)
	expired.UserID = active.UserID
	revoked := newTestSession("c", memTestTTL)
	revoked.UserID = active.UserID
	revoked.Status = StatusRevoked
	other := newTestSession("d", memTestTTL)

	for _, s := range []*Session{active, expired, revoked, other} {
		_, err := store.Save(ctx, s)
		require.NoError(t, err)
	}

	got, err := store.FindActiveByUser(ctx, active.UserID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestMemoryStore_UpdateAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Save(ctx, newTestSession(memTestSess1, memTestTTL))
	require.NoError(t, err)

	touch := time.Now().Add(time.Minute)
	applied, err := store.UpdateAccess(ctx, memTestSess1, touch)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := store.FindByID(ctx, memTestSess1)
	require.NoError(t, err)
	assert.WithinDuration(t, touch, got.LastAccessedAt, time.Millisecond)

	applied, err = store.UpdateAccess(ctx, "nonexistent", touch)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestMemoryStore_UpdateExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Save(ctx, newTestSession(memTestSess1, memTestTTL))
	require.NoError(t, err)

	expiry := time.Now().Add(48 * time.Hour)
	applied, err := store.UpdateExpiry(ctx, memTestSess1, expiry)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := store.FindByID(ctx, memTestSess1)
	require.NoError(t, err)
	assert.WithinDuration(t, expiry, got.ExpiresAt, time.Millisecond)
}

func TestMemoryStore_Revoke(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Save(ctx, newTestSession(memTestSess1, memTestTTL))
	require.NoError(t, err)

	applied, err := store.Revoke(ctx, memTestSess1)
	require.NoError(t, err)
	assert.True(t, applied)

	// A second revoke finds no active record.
	applied, err = store.Revoke(ctx, memTestSess1)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = store.Revoke(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Save(ctx, newTestSession("active", memTestTTL))
	require.NoError(t, err)
	_, err = store.Save(ctx, newTestSession("expired", -time.Second))
	require.NoError(t, err)

	revoked := newTestSession("revoked", memTestTTL)
	revoked.Status = StatusRevoked
	_, err = store.Save(ctx, revoked)
	require.NoError(t, err)

	removed, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	got, err := store.FindByID(ctx, "active")
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = store.FindByID(ctx, "expired")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_ConcurrentAccess(_ *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range memTestGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range memTestIterations {
				_, _ = store.Save(ctx, newTestSession("sess-concurrent", memTestTTL))
				_, _ = store.FindByID(ctx, "sess-concurrent")
				_, _ = store.UpdateAccess(ctx, "sess-concurrent", time.Now())
				_, _ = store.FindActiveByUser(ctx, "user-sess-concurrent")
				_, _ = store.CleanupExpired(ctx)
			}
		}()
	}
	wg.Wait()
}
