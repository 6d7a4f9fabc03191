// Package wiring connects independently started subsystem nodes. The
// registry tracks node lifecycles by name; the coordinator injects
// cross-node actor references into services once their target nodes report
// Running.
package wiring

import (
	"fmt"
	"sync"

	"github.com/querygate/querygate/pkg/node"
)

// Registry is an explicit node registry handed to the coordinator at
// startup. There are no package-level singletons; each node's lifecycle is
// owned by the orchestrator that registered it.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*node.Node
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*node.Node)}
}

// Register adds a node under its own name.
func (r *Registry) Register(n *node.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[n.Name()]; exists {
		return fmt.Errorf("node %s already registered", n.Name())
	}
	r.nodes[n.Name()] = n
	return nil
}

// Get returns the named node.
func (r *Registry) Get(name string) (*node.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[name]
	return n, ok
}

// All returns every registered node.
func (r *Registry) All() []*node.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]*node.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}
