// Package core assembles the core-services node: security (login and
// logout), session lifecycle, and database connectivity.
package core

import (
	"github.com/querygate/querygate/pkg/connection"
)

// Command kinds accepted by the core node.
const (
	LoginKind           = "login"
	LogoutKind          = "logout"
	CreateSessionKind   = "create-session"
	ValidateSessionKind = "validate-session"
	ExtendSessionKind   = "extend-session"
	RevokeSessionKind   = "revoke-session"
	GetUserSessionsKind = "get-user-sessions"

	StartExplorationKind = "start-exploration"
	StopExplorationKind  = "stop-exploration"
)

// Login authenticates a user and opens a session.
type Login struct {
	Username   string
	Password   string
	UserAgent  string
	RemoteAddr string
}

func (Login) Kind() string { return LoginKind }

// Logout revokes the session opened by a login.
type Logout struct {
	SessionID string
}

func (Logout) Kind() string { return LogoutKind }

// CreateSession opens a session for an already-authenticated user.
type CreateSession struct {
	UserID     string
	Username   string
	UserAgent  string
	RemoteAddr string
}

func (CreateSession) Kind() string { return CreateSessionKind }

// ValidateSession checks a session is usable and touches its access time.
type ValidateSession struct {
	SessionID string
}

func (ValidateSession) Kind() string { return ValidateSessionKind }

// ExtendSession pushes a session's expiry to now plus Hours.
type ExtendSession struct {
	SessionID string
	Hours     int
}

func (ExtendSession) Kind() string { return ExtendSessionKind }

// RevokeSession terminates a session.
type RevokeSession struct {
	SessionID string
}

func (RevokeSession) Kind() string { return RevokeSessionKind }

// GetUserSessions lists a user's active sessions.
type GetUserSessions struct {
	UserID string
}

func (GetUserSessions) Kind() string { return GetUserSessionsKind }

// StartExploration validates, probes, and registers a database
// connection for exploration.
type StartExploration struct {
	Descriptor connection.Descriptor
}

func (StartExploration) Kind() string { return StartExplorationKind }

// StopExploration removes a connection from the active set.
type StopExploration struct {
	ConnectionID string
}

func (StopExploration) Kind() string { return StopExplorationKind }
