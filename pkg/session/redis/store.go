// Package redis provides Redis storage for sessions. Records are stored as
// JSON values keyed by session id, with a per-user set serving as a
// secondary index for active-session listings.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/querygate/querygate/pkg/session"
)

const (
	sessionKeyPrefix = "qg:session:"
	userKeyPrefix    = "qg:user-sessions:"

	// retainAfterExpiry keeps terminal records around long enough for the
	// cleanup sweep to count them before Redis evicts the key on its own.
	retainAfterExpiry = 24 * time.Hour
)

// Store implements session.Store using Redis.
type Store struct {
	client *redis.Client
}

// New creates a Redis session store over an existing client. The client is
// owned by the caller.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func userKey(userID string) string {
	return userKeyPrefix + userID
}

// Save persists a session, inserting or replacing by id.
func (s *Store) Save(ctx context.Context, sess *session.Session) (bool, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return false, fmt.Errorf("marshaling session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), data, 0)
	pipe.ExpireAt(ctx, sessionKey(sess.ID), sess.ExpiresAt.Add(retainAfterExpiry))
	pipe.SAdd(ctx, userKey(sess.UserID), sess.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("writing session: %w", err)
	}
	return true, nil
}

// FindByID retrieves a session by id. Returns nil, nil if no record exists.
func (s *Store) FindByID(ctx context.Context, id string) (*session.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil //nolint:nilnil // Store contract specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	return &sess, nil
}

// FindActiveByUser returns the user's currently usable sessions via the
// per-user index.
func (s *Store) FindActiveByUser(ctx context.Context, userID string) ([]*session.Session, error) {
	ids, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading user session index: %w", err)
	}

	now := time.Now()
	sessions := make([]*session.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			// Evicted by Redis; drop the stale index entry.
			s.client.SRem(ctx, userKey(userID), id)
			continue
		}
		if sess.IsActive(now) {
			sessions = append(sessions, sess)
		}
	}
	return sessions, nil
}

// UpdateAccess sets the last-accessed time.
func (s *Store) UpdateAccess(ctx context.Context, id string, t time.Time) (bool, error) {
	return s.mutate(ctx, id, func(sess *session.Session) {
		sess.LastAccessedAt = t
	})
}

// UpdateExpiry sets the absolute expiry time.
func (s *Store) UpdateExpiry(ctx context.Context, id string, t time.Time) (bool, error) {
	return s.mutate(ctx, id, func(sess *session.Session) {
		sess.ExpiresAt = t
	})
}

// Revoke marks the session revoked; only an active record is updated.
func (s *Store) Revoke(ctx context.Context, id string) (bool, error) {
	sess, err := s.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if sess == nil || sess.Status == session.StatusRevoked {
		return false, nil
	}

	sess.Status = session.StatusRevoked
	return s.Save(ctx, sess)
}

// CleanupExpired scans the session keyspace and purges records that are
// expired, revoked, or past their expiry.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	now := time.Now()
	removed := 0

	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("reading session during cleanup: %w", err)
		}

		var sess session.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		if sess.Status == session.StatusActive && now.Before(sess.ExpiresAt) {
			continue
		}

		pipe := s.client.TxPipeline()
		pipe.Del(ctx, key)
		pipe.SRem(ctx, userKey(sess.UserID), sess.ID)
		if _, err := pipe.Exec(ctx); err != nil {
			return removed, fmt.Errorf("purging session: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scanning sessions: %w", err)
	}
	return removed, nil
}

// Close implements session.Store; the client is owned by the caller.
func (s *Store) Close() error {
	return nil
}

// mutate rewrites one session record in place.
func (s *Store) mutate(ctx context.Context, id string, apply func(*session.Session)) (bool, error) {
	sess, err := s.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}

	apply(sess)
	return s.Save(ctx, sess)
}

// Verify interface compliance.
var _ session.Store = (*Store)(nil)
