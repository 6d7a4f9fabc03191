package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Route describes how a supervisor forwards one command kind to the service
// actor that owns the capability.
type Route struct {
	// Service is the name of the owning service actor.
	Service string

	// Validate checks command shape before dispatch. A non-nil error
	// produces an immediate failure reply; the internal actor never sees
	// the command.
	Validate func(cmd Command) error

	// Internal translates the external command into the owning actor's
	// native command type. When nil the command is forwarded unchanged.
	Internal func(cmd Command) any

	// Translate re-wraps the internal actor's native reply into the
	// externally expected reply type. When nil the reply passes through.
	Translate func(Reply) Reply
}

// Supervisor is the root coordinator of a node. It receives external
// commands, routes each to the one internal actor owning that capability,
// and delivers the eventual reply to the original requester through a
// one-shot response adapter, so internal actors never learn the requester's
// identity.
type Supervisor struct {
	name    string
	timeout time.Duration
	corr    *Correlator

	mu       sync.Mutex
	services map[string]*Ref
	routes   map[string]Route
}

// NewSupervisor creates a supervisor over the given service actors. timeout
// bounds how long any request may await an internal reply.
func NewSupervisor(name string, services map[string]*Ref, routes map[string]Route, timeout time.Duration) *Supervisor {
	return &Supervisor{
		name:     name,
		timeout:  timeout,
		corr:     NewCorrelator(),
		services: services,
		routes:   routes,
	}
}

// Handle accepts an external command and guarantees exactly one reply on
// replyTo, success or failure. Requests are admitted in arrival order per
// supervisor instance.
func (s *Supervisor) Handle(ctx context.Context, cmd Command, replyTo chan<- Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := cmd.(SetReference); ok {
		s.handleSetReference(ctx, set, replyTo)
		return
	}

	route, ok := s.routes[cmd.Kind()]
	if !ok {
		deliver(replyTo, failure(fmt.Errorf("%w: unknown command %q", ErrInvalidRequest, cmd.Kind())))
		return
	}

	if route.Validate != nil {
		if err := route.Validate(cmd); err != nil {
			deliver(replyTo, failure(fmt.Errorf("%w: %v", ErrInvalidRequest, err)))
			return
		}
	}

	svc, ok := s.services[route.Service]
	if !ok || svc.Stopped() {
		deliver(replyTo, failure(ErrDependencyUnavailable))
		return
	}

	internal := any(cmd)
	if route.Internal != nil {
		internal = route.Internal(cmd)
	}

	pending := s.corr.Register(replyTo, route.Translate, s.timeout)
	if err := svc.Send(ctx, Envelope{Cmd: internal, ReplyTo: pending.Chan()}); err != nil {
		slog.Warn("supervisor: forward failed",
			"supervisor", s.name, "command", cmd.Kind(), "service", route.Service, "error", err)
		pending.Fail(err)
	}
}

// handleSetReference forwards the wiring command to the named service. The
// service itself stores the reference so it lives in that actor's state.
func (s *Supervisor) handleSetReference(ctx context.Context, set SetReference, replyTo chan<- Reply) {
	svc, ok := s.services[set.Service]
	if !ok || svc.Stopped() {
		deliver(replyTo, failure(fmt.Errorf("%w: no service %q", ErrDependencyUnavailable, set.Service)))
		return
	}

	pending := s.corr.Register(replyTo, nil, s.timeout)
	if err := svc.Send(ctx, Envelope{Cmd: set, ReplyTo: pending.Chan()}); err != nil {
		pending.Fail(err)
	}
}

// Shutdown resolves all in-flight requests with a failure. Called by the
// node when it begins stopping.
func (s *Supervisor) Shutdown() {
	s.corr.Shutdown()
}

// InFlight reports the number of requests awaiting an internal reply.
func (s *Supervisor) InFlight() int {
	return s.corr.PendingCount()
}
