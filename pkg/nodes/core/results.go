package core

import (
	"github.com/querygate/querygate/pkg/node"
	"github.com/querygate/querygate/pkg/session"
)

// Connection statuses reported by exploration commands.
const (
	StatusSuccess    = "SUCCESS"
	StatusFailed     = "FAILED"
	StatusConnecting = "CONNECTING"
)

// SessionResult is the external reply payload for session commands.
type SessionResult struct {
	Success  bool
	Session  *session.Session
	Sessions []*session.Session
	Message  string
}

// ConnectionResult is the external reply payload for exploration
// commands.
type ConnectionResult struct {
	Status       string
	ConnectionID string
	Message      string
}

// SessionResultFrom extracts the SessionResult from a reply, mapping
// replies that resolved before reaching the session service (validation
// failures, timeouts) onto a failed result.
func SessionResultFrom(rep node.Reply) SessionResult {
	if res, ok := rep.Payload.(SessionResult); ok {
		return res
	}
	return SessionResult{Success: rep.OK, Message: rep.Message}
}

// ConnectionResultFrom extracts the ConnectionResult from a reply. A
// reply rejected before dispatch becomes a FAILED result carrying the
// rejection message.
func ConnectionResultFrom(rep node.Reply) ConnectionResult {
	if res, ok := rep.Payload.(ConnectionResult); ok {
		return res
	}
	status := StatusFailed
	if rep.OK {
		status = StatusSuccess
	}
	return ConnectionResult{Status: status, Message: rep.Message}
}

// translateSession wraps a session service reply into a SessionResult
// payload, preserving the success flag and message.
func translateSession(rep node.Reply) node.Reply {
	res := SessionResult{Success: rep.OK, Message: rep.Message}
	switch p := rep.Payload.(type) {
	case *session.Session:
		res.Session = p
	case []*session.Session:
		res.Sessions = p
	case SessionResult:
		res = p
	}
	rep.Payload = res
	return rep
}

// translateConnection wraps a db-communication reply into a
// ConnectionResult payload.
func translateConnection(rep node.Reply) node.Reply {
	if res, ok := rep.Payload.(ConnectionResult); ok {
		rep.Payload = res
		return rep
	}
	status := StatusFailed
	if rep.OK {
		status = StatusSuccess
	}
	rep.Payload = ConnectionResult{Status: status, Message: rep.Message}
	return rep
}
