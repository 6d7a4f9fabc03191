package session

import "errors"

// Failure taxonomy for session operations. Callers classify with errors.Is.
var (
	// ErrInvalidRequest indicates missing or malformed fields; never
	// retried.
	ErrInvalidRequest = errors.New("invalid session request")

	// ErrNotFound indicates no record exists for the session id.
	ErrNotFound = errors.New("session not found")

	// ErrExpired indicates the session's expiry has passed or its status
	// is Expired. A terminal entity state, not an infrastructure fault.
	ErrExpired = errors.New("session expired")

	// ErrAlreadyRevoked indicates the session was revoked, or a revoke
	// found no active record to update. Revocation is terminal.
	ErrAlreadyRevoked = errors.New("session not found or already revoked")

	// ErrStoreUnavailable indicates the session store could not be
	// reached. Callers may retry.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrPersistFailed indicates the store rejected a write. Not retried
	// automatically.
	ErrPersistFailed = errors.New("session write rejected")

	// ErrUpdateFailed indicates a store update did not apply.
	ErrUpdateFailed = errors.New("session update not applied")
)
