// Package postgres provides PostgreSQL storage for sessions.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/querygate/querygate/pkg/session"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// sessionColumns lists columns returned by session SELECT queries.
var sessionColumns = []string{
	"id", "user_id", "username", "created_at", "last_accessed_at",
	"expires_at", "user_agent", "remote_addr", "status", "refresh_token",
}

// Store implements session.Store using PostgreSQL. The *sql.DB is owned by
// the caller.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL session store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save persists a session, inserting or replacing by id.
func (s *Store) Save(ctx context.Context, sess *session.Session) (bool, error) {
	query, args, err := psq.Insert("sessions").
		Columns(sessionColumns...).
		Values(sess.ID, sess.UserID, sess.Username, sess.CreatedAt, sess.LastAccessedAt,
			sess.ExpiresAt, sess.UserAgent, sess.RemoteAddr, string(sess.Status), sess.RefreshToken).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			last_accessed_at = EXCLUDED.last_accessed_at,
			expires_at = EXCLUDED.expires_at,
			status = EXCLUDED.status,
			refresh_token = EXCLUDED.refresh_token`).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building session insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("inserting session: %w", err)
	}
	return true, nil
}

// FindByID retrieves a session by id. Returns nil, nil if no record exists.
func (s *Store) FindByID(ctx context.Context, id string) (*session.Session, error) {
	query, args, err := psq.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session select: %w", err)
	}

	sess, err := scanSession(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // Store contract specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return sess, nil
}

// FindActiveByUser returns the user's currently usable sessions.
func (s *Store) FindActiveByUser(ctx context.Context, userID string) ([]*session.Session, error) {
	query, args, err := psq.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"user_id": userID, "status": string(session.StatusActive)}).
		Where(sq.Expr("expires_at > NOW()")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// UpdateAccess sets the last-accessed time.
func (s *Store) UpdateAccess(ctx context.Context, id string, t time.Time) (bool, error) {
	return s.update(ctx, id, sq.Eq{"last_accessed_at": t}, nil)
}

// UpdateExpiry sets the absolute expiry time.
func (s *Store) UpdateExpiry(ctx context.Context, id string, t time.Time) (bool, error) {
	return s.update(ctx, id, sq.Eq{"expires_at": t}, nil)
}

// Revoke marks the session revoked; only an active record is updated.
func (s *Store) Revoke(ctx context.Context, id string) (bool, error) {
	return s.update(ctx, id,
		sq.Eq{"status": string(session.StatusRevoked)},
		sq.Eq{"status": string(session.StatusActive)})
}

// CleanupExpired purges sessions that are expired, revoked, or past expiry.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	query, args, err := psq.Delete("sessions").
		Where(sq.Or{
			sq.Eq{"status": []string{string(session.StatusExpired), string(session.StatusRevoked)}},
			sq.Expr("expires_at <= NOW()"),
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building session delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleaning up sessions: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting removed sessions: %w", err)
	}
	return int(removed), nil
}

// Close implements session.Store; the database handle is owned by the
// caller.
func (s *Store) Close() error {
	return nil
}

// update applies a column set to one session, optionally guarded by a
// status predicate, and reports whether a row was affected.
func (s *Store) update(ctx context.Context, id string, set sq.Eq, guard sq.Eq) (bool, error) {
	builder := psq.Update("sessions").Where(sq.Eq{"id": id})
	for col, val := range set {
		builder = builder.Set(col, val)
	}
	if guard != nil {
		builder = builder.Where(guard)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("building session update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("counting updated sessions: %w", err)
	}
	return affected > 0, nil
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*session.Session, error) {
	var sess session.Session
	var status string

	err := row.Scan(&sess.ID, &sess.UserID, &sess.Username, &sess.CreatedAt, &sess.LastAccessedAt,
		&sess.ExpiresAt, &sess.UserAgent, &sess.RemoteAddr, &status, &sess.RefreshToken)
	if err != nil {
		return nil, err
	}
	sess.Status = session.Status(status)
	return &sess, nil
}

// Verify interface compliance.
var _ session.Store = (*Store)(nil)
