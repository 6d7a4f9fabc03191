// Package health tracks platform readiness from the lifecycle states of
// the registered subsystem nodes.
package health

import (
	"sync/atomic"

	"github.com/querygate/querygate/pkg/node"
	"github.com/querygate/querygate/pkg/wiring"
)

// Checker reports platform readiness. The overall state combines the
// explicit lifecycle phase (starting, ready, draining) with the live
// states of every registered node. It is safe for concurrent use.
type Checker struct {
	registry *wiring.Registry
	state    atomic.Int32
}

// Phase constants for the readiness state machine.
const (
	phaseStarting int32 = iota
	phaseReady
	phaseDraining
)

// NewChecker creates a Checker in the Starting phase.
func NewChecker(registry *wiring.Registry) *Checker {
	return &Checker{registry: registry}
}

// SetReady transitions to the Ready phase. Called once wiring completes.
func (c *Checker) SetReady() {
	c.state.Store(phaseReady)
}

// SetDraining transitions to the Draining phase. Called when shutdown
// begins so callers stop sending new work.
func (c *Checker) SetDraining() {
	c.state.Store(phaseDraining)
}

// IsReady reports whether the platform accepts work: the phase is Ready
// and every registered node is Running.
func (c *Checker) IsReady() bool {
	if c.state.Load() != phaseReady {
		return false
	}
	for _, n := range c.registry.All() {
		if n.State() != node.Running {
			return false
		}
	}
	return true
}

// Phase returns the lifecycle phase as a human-readable token.
func (c *Checker) Phase() string {
	switch c.state.Load() {
	case phaseReady:
		return "ready"
	case phaseDraining:
		return "draining"
	default:
		return "starting"
	}
}

// Report is a point-in-time snapshot of platform health.
type Report struct {
	Phase string            `json:"phase"`
	Ready bool              `json:"ready"`
	Nodes map[string]string `json:"nodes"`
}

// Snapshot captures the current phase and per-node lifecycle states.
func (c *Checker) Snapshot() Report {
	nodes := make(map[string]string)
	for _, n := range c.registry.All() {
		nodes[n.Name()] = n.State().String()
	}
	return Report{
		Phase: c.Phase(),
		Ready: c.IsReady(),
		Nodes: nodes,
	}
}
