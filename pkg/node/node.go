package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle state of a subsystem node.
type State int

// Node lifecycle states. Stopped is terminal.
const (
	Uninitialized State = iota
	Starting
	Running
	Stopping
	Stopped
)

// String returns the lowercase token for the state.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// defaultAskTimeout bounds request/reply round trips when a node is built
// without an explicit timeout.
const defaultAskTimeout = 10 * time.Second

// ServiceSpec declares a first-class service actor hosted by a node. Build
// runs during node startup; a build error is fatal for the node.
type ServiceSpec struct {
	Name  string
	Build func() (Handler, error)
}

// Config tunes a node.
type Config struct {
	// AskTimeout bounds how long the supervisor waits for an internal
	// reply before resolving a request as timed out.
	AskTimeout time.Duration
}

// Node is a self-contained unit of actors with its own address space,
// started and stopped independently of other nodes. It exclusively owns the
// actors it spawns.
type Node struct {
	name string
	cfg  Config

	mu       sync.Mutex
	state    State
	specs    []ServiceSpec
	routes   map[string]Route
	services map[string]*Ref
	sup      *Supervisor
}

// New creates a node in the Uninitialized state.
func New(name string, cfg Config) *Node {
	if cfg.AskTimeout <= 0 {
		cfg.AskTimeout = defaultAskTimeout
	}
	return &Node{
		name:   name,
		cfg:    cfg,
		routes: make(map[string]Route),
	}
}

// Name returns the node name.
func (n *Node) Name() string {
	return n.name
}

// AddService declares a service actor to spawn on Start. It has no effect
// once the node has started.
func (n *Node) AddService(spec ServiceSpec) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.specs = append(n.specs, spec)
}

// AddRoute registers the supervisor route for one command kind.
func (n *Node) AddRoute(kind string, route Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes[kind] = route
}

// State returns the current lifecycle state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Start spawns the node's service actors and its root supervisor. The node
// transitions to Running only after every declared service spawned
// successfully; any failure stops the actors already spawned and leaves the
// node Stopped. Starting a node twice is an error.
func (n *Node) Start(_ context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case Uninitialized:
	case Running, Starting:
		return fmt.Errorf("node %s already started", n.name)
	default:
		return fmt.Errorf("node %s is %s", n.name, n.state)
	}
	n.state = Starting

	services := make(map[string]*Ref, len(n.specs))
	for _, spec := range n.specs {
		handler, err := spec.Build()
		if err != nil {
			stopAll(services)
			n.state = Stopped
			return fmt.Errorf("node %s: spawning service %s: %w", n.name, spec.Name, err)
		}
		services[spec.Name] = Spawn(spec.Name, handler)
	}

	n.services = services
	n.sup = NewSupervisor(n.name, services, n.routes, n.cfg.AskTimeout)
	n.state = Running

	slog.Info("node started", "node", n.name, "services", len(services))
	return nil
}

// Stop terminates child actors, resolves in-flight requests with a failure,
// and shuts the address space down. Stopping an already-stopped node is a
// no-op.
func (n *Node) Stop(_ context.Context) error {
	n.mu.Lock()
	if n.state == Stopped || n.state == Uninitialized {
		if n.state == Uninitialized {
			n.state = Stopped
		}
		n.mu.Unlock()
		return nil
	}
	n.state = Stopping
	sup := n.sup
	services := n.services
	n.mu.Unlock()

	// Children terminate before the address space closes; each Stop waits
	// for the actor to drain its mailbox with failure replies.
	stopAll(services)
	if sup != nil {
		sup.Shutdown()
	}

	n.mu.Lock()
	n.state = Stopped
	n.mu.Unlock()

	slog.Info("node stopped", "node", n.name)
	return nil
}

// Handle routes an external command through the node's supervisor. The
// caller always receives exactly one reply on replyTo; commands sent to a
// node that is not Running resolve immediately with a failure.
func (n *Node) Handle(ctx context.Context, cmd Command, replyTo chan<- Reply) {
	n.mu.Lock()
	sup := n.sup
	running := n.state == Running
	n.mu.Unlock()

	if !running || sup == nil {
		deliver(replyTo, failure(fmt.Errorf("%w: node %s is not running", ErrDependencyUnavailable, n.name)))
		return
	}
	sup.Handle(ctx, cmd, replyTo)
}

// Ask is a convenience wrapper around Handle for request/reply callers. It
// blocks until the single reply arrives; the supervisor's own timeout
// guarantees the wait is bounded.
func (n *Node) Ask(ctx context.Context, cmd Command) (Reply, error) {
	replyCh := make(chan Reply, 1)
	n.Handle(ctx, cmd, replyCh)

	select {
	case rep := <-replyCh:
		return rep, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Service returns the named service actor, used by the wiring coordinator to
// resolve injection targets. It fails unless the node is Running.
func (n *Node) Service(name string) (*Ref, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != Running {
		return nil, fmt.Errorf("%w: node %s is %s", ErrDependencyUnavailable, n.name, n.state)
	}
	ref, ok := n.services[name]
	if !ok {
		return nil, fmt.Errorf("%w: node %s has no service %q", ErrDependencyUnavailable, n.name, name)
	}
	return ref, nil
}

func stopAll(services map[string]*Ref) {
	for _, ref := range services {
		ref.Stop()
	}
}
