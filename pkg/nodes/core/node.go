package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/querygate/querygate/pkg/auth"
	"github.com/querygate/querygate/pkg/connection"
	"github.com/querygate/querygate/pkg/node"
	"github.com/querygate/querygate/pkg/nodes/analysis"
	"github.com/querygate/querygate/pkg/session"
)

// NodeName is the registry name of the core-services node.
const NodeName = "core-services"

// Service names hosted by the core node.
const (
	SecurityService = "security"
	SessionService  = "session"
	DBService       = "db-communication"
)

// Deps are the collaborators the core node is built from.
type Deps struct {
	Directory   *auth.Directory
	Sessions    *session.Manager
	Connections *connection.Manager
}

// NewNode assembles the core-services node.
func NewNode(deps Deps, cfg node.Config) (*node.Node, error) {
	if deps.Directory == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if deps.Connections == nil {
		return nil, fmt.Errorf("connection manager is required")
	}

	askTimeout := cfg.AskTimeout
	if askTimeout <= 0 {
		askTimeout = 10 * time.Second
	}

	n := node.New(NodeName, cfg)

	n.AddService(node.ServiceSpec{
		Name:  SecurityService,
		Build: func() (node.Handler, error) { return securityHandler(deps.Directory, deps.Sessions), nil },
	})
	n.AddService(node.ServiceSpec{
		Name:  SessionService,
		Build: func() (node.Handler, error) { return sessionHandler(deps.Sessions), nil },
	})
	n.AddService(node.ServiceSpec{
		Name:  DBService,
		Build: func() (node.Handler, error) { return dbHandler(deps.Connections, askTimeout), nil },
	})

	addSecurityRoutes(n)
	addSessionRoutes(n)
	addConnectionRoutes(n)

	return n, nil
}

func addSecurityRoutes(n *node.Node) {
	n.AddRoute(LoginKind, node.Route{
		Service: SecurityService,
		Validate: func(cmd node.Command) error {
			login := cmd.(Login)
			if login.Username == "" {
				return fmt.Errorf("username is required")
			}
			if login.Password == "" {
				return fmt.Errorf("password is required")
			}
			return nil
		},
		Translate: translateSession,
	})
	n.AddRoute(LogoutKind, node.Route{
		Service:   SecurityService,
		Validate:  requireSessionID,
		Translate: translateSession,
	})
}

func addSessionRoutes(n *node.Node) {
	n.AddRoute(CreateSessionKind, node.Route{
		Service: SessionService,
		Validate: func(cmd node.Command) error {
			create := cmd.(CreateSession)
			if create.UserID == "" {
				return fmt.Errorf("userId is required")
			}
			if create.Username == "" {
				return fmt.Errorf("username is required")
			}
			return nil
		},
		Translate: translateSession,
	})
	n.AddRoute(ValidateSessionKind, node.Route{
		Service:   SessionService,
		Validate:  requireSessionID,
		Translate: translateSession,
	})
	n.AddRoute(ExtendSessionKind, node.Route{
		Service: SessionService,
		Validate: func(cmd node.Command) error {
			extend := cmd.(ExtendSession)
			if extend.SessionID == "" {
				return fmt.Errorf("sessionId is required")
			}
			if extend.Hours <= 0 {
				return fmt.Errorf("extension hours must be positive")
			}
			return nil
		},
		Translate: translateSession,
	})
	n.AddRoute(RevokeSessionKind, node.Route{
		Service:   SessionService,
		Validate:  requireSessionID,
		Translate: translateSession,
	})
	n.AddRoute(GetUserSessionsKind, node.Route{
		Service: SessionService,
		Validate: func(cmd node.Command) error {
			if cmd.(GetUserSessions).UserID == "" {
				return fmt.Errorf("userId is required")
			}
			return nil
		},
		Translate: translateSession,
	})
}

func addConnectionRoutes(n *node.Node) {
	n.AddRoute(StartExplorationKind, node.Route{
		Service: DBService,
		Validate: func(cmd node.Command) error {
			desc := cmd.(StartExploration).Descriptor
			return desc.Validate()
		},
		Translate: translateConnection,
	})
	n.AddRoute(StopExplorationKind, node.Route{
		Service: DBService,
		Validate: func(cmd node.Command) error {
			if cmd.(StopExploration).ConnectionID == "" {
				return fmt.Errorf("connection id is required")
			}
			return nil
		},
		Translate: translateConnection,
	})
}

func requireSessionID(cmd node.Command) error {
	var id string
	switch c := cmd.(type) {
	case Logout:
		id = c.SessionID
	case ValidateSession:
		id = c.SessionID
	case RevokeSession:
		id = c.SessionID
	}
	if id == "" {
		return fmt.Errorf("sessionId is required")
	}
	return nil
}

// securityHandler authenticates users and opens or closes their sessions.
func securityHandler(dir *auth.Directory, sessions *session.Manager) node.Handler {
	return func(ctx context.Context, cmd any) (any, error) {
		switch c := cmd.(type) {
		case Login:
			user, err := dir.Authenticate(c.Username, c.Password)
			if err != nil {
				return nil, err
			}
			return sessions.Create(ctx, session.CreateRequest{
				UserID:     user.ID,
				Username:   user.Username,
				UserAgent:  c.UserAgent,
				RemoteAddr: c.RemoteAddr,
			})

		case Logout:
			if err := sessions.Revoke(ctx, c.SessionID); err != nil {
				return nil, err
			}
			return nil, nil //nolint:nilnil // logout has no payload

		default:
			return nil, fmt.Errorf("%w: security service cannot handle %T", node.ErrInvalidRequest, cmd)
		}
	}
}

// sessionHandler exposes the session lifecycle manager as a service actor.
func sessionHandler(sessions *session.Manager) node.Handler {
	return func(ctx context.Context, cmd any) (any, error) {
		switch c := cmd.(type) {
		case CreateSession:
			return sessions.Create(ctx, session.CreateRequest{
				UserID:     c.UserID,
				Username:   c.Username,
				UserAgent:  c.UserAgent,
				RemoteAddr: c.RemoteAddr,
			})
		case ValidateSession:
			return sessions.Validate(ctx, c.SessionID)
		case ExtendSession:
			return sessions.Extend(ctx, c.SessionID, c.Hours)
		case RevokeSession:
			if err := sessions.Revoke(ctx, c.SessionID); err != nil {
				return nil, err
			}
			return nil, nil //nolint:nilnil // revoke has no payload
		case GetUserSessions:
			return sessions.ListActive(ctx, c.UserID)
		default:
			return nil, fmt.Errorf("%w: session service cannot handle %T", node.ErrInvalidRequest, cmd)
		}
	}
}

// dbHandler owns the exploration lifecycle and announces new
// explorations to the data-analysis node over the wired reference.
func dbHandler(connections *connection.Manager, askTimeout time.Duration) node.Handler {
	refs := node.NewRefSet()

	return func(ctx context.Context, cmd any) (any, error) {
		switch c := cmd.(type) {
		case node.SetReference:
			refs.Set(c.Name, c.Ref)
			return nil, nil //nolint:nilnil // wiring has no payload

		case StartExploration:
			conn, err := connections.StartExploration(ctx, c.Descriptor)
			if err != nil {
				return nil, err
			}
			return announceExploration(ctx, refs, conn, askTimeout), nil

		case StopExploration:
			if err := connections.StopExploration(ctx, c.ConnectionID); err != nil {
				return nil, err
			}
			return ConnectionResult{
				Status:       StatusSuccess,
				ConnectionID: c.ConnectionID,
				Message:      "exploration stopped",
			}, nil

		default:
			return nil, fmt.Errorf("%w: db-communication service cannot handle %T", node.ErrInvalidRequest, cmd)
		}
	}
}

// announceExploration notifies schema analysis about a new connection.
// The exploration itself already succeeded, so announcement problems
// degrade the result to CONNECTING rather than failing it.
func announceExploration(ctx context.Context, refs *node.RefSet, conn *connection.Connection, askTimeout time.Duration) ConnectionResult {
	schemaRef, err := refs.Get(analysis.SchemaService)
	if err != nil {
		slog.Warn("schema analysis not wired; announcement deferred",
			"connection_id", conn.ID)
		return ConnectionResult{
			Status:       StatusConnecting,
			ConnectionID: conn.ID,
			Message:      "exploration started; schema analysis not yet available",
		}
	}

	announce := analysis.AnnounceExploration{
		ConnectionID: conn.ID,
		Descriptor:   conn.Descriptor,
	}
	rep, err := schemaRef.Ask(ctx, announce, askTimeout)
	if err != nil || !rep.OK {
		msg := rep.Message
		if err != nil {
			msg = err.Error()
		}
		slog.Warn("schema analysis announcement failed",
			"connection_id", conn.ID, "error", msg)
		return ConnectionResult{
			Status:       StatusConnecting,
			ConnectionID: conn.ID,
			Message:      "exploration started; schema analysis pending: " + msg,
		}
	}

	return ConnectionResult{
		Status:       StatusSuccess,
		ConnectionID: conn.ID,
		Message:      "exploration started",
	}
}
