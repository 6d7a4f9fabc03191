package wiring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/querygate/querygate/pkg/node"
)

// defaultRetryInterval paces readiness polls while a target node is still
// starting.
const defaultRetryInterval = 50 * time.Millisecond

// Endpoint addresses one service actor on one node.
type Endpoint struct {
	Node    string
	Service string
}

func (e Endpoint) String() string {
	return e.Node + "/" + e.Service
}

// Spec declares one cross-node injection: the target service's reference is
// stored in the source service under RefName.
type Spec struct {
	Source  Endpoint
	RefName string
	Target  Endpoint
}

// Coordinator performs cross-node wiring after nodes report Running. Wiring
// is idempotent: re-wiring a pair replaces the stored reference, which
// supports hot swap after a target node restart.
type Coordinator struct {
	registry *Registry
	retry    time.Duration
}

// NewCoordinator creates a coordinator over the given registry.
func NewCoordinator(registry *Registry, retryInterval time.Duration) *Coordinator {
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}
	return &Coordinator{registry: registry, retry: retryInterval}
}

// Wire delivers a reference to the target service into the source service
// via the internal SetReference command. Wiring attempts that race a node
// still starting are deferred and retried until the node reports Running;
// stopping either node, or canceling ctx, aborts the attempt.
func (c *Coordinator) Wire(ctx context.Context, spec Spec) error {
	target, err := c.awaitService(ctx, spec.Target)
	if err != nil {
		return fmt.Errorf("wiring %s -> %s: %w", spec.Source, spec.Target, err)
	}

	source, err := c.awaitNode(ctx, spec.Source.Node)
	if err != nil {
		return fmt.Errorf("wiring %s -> %s: %w", spec.Source, spec.Target, err)
	}

	set := node.SetReference{Service: spec.Source.Service, Name: spec.RefName, Ref: target}
	rep, err := source.Ask(ctx, set)
	if err != nil {
		return fmt.Errorf("wiring %s -> %s: %w", spec.Source, spec.Target, err)
	}
	if !rep.OK {
		return fmt.Errorf("wiring %s -> %s: %s", spec.Source, spec.Target, rep.Message)
	}

	slog.Info("cross-node reference wired",
		"source", spec.Source.String(), "ref", spec.RefName, "target", spec.Target.String())
	return nil
}

// WireAll performs a set of injections concurrently and reports the first
// failure. Wiring order is not guaranteed relative to node startup order.
func (c *Coordinator) WireAll(ctx context.Context, specs []Spec) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		g.Go(func() error {
			return c.Wire(ctx, spec)
		})
	}
	return g.Wait()
}

// awaitNode polls until the named node reports Running. A node that reaches
// Stopping or Stopped will never become Running, so the wait aborts.
func (c *Coordinator) awaitNode(ctx context.Context, name string) (*node.Node, error) {
	ticker := time.NewTicker(c.retry)
	defer ticker.Stop()

	for {
		n, ok := c.registry.Get(name)
		if ok {
			switch n.State() {
			case node.Running:
				return n, nil
			case node.Stopping, node.Stopped:
				return nil, fmt.Errorf("%w: node %s is %s", node.ErrDependencyUnavailable, name, n.State())
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// awaitService resolves the target service once its node is Running.
func (c *Coordinator) awaitService(ctx context.Context, target Endpoint) (*node.Ref, error) {
	n, err := c.awaitNode(ctx, target.Node)
	if err != nil {
		return nil, err
	}
	return n.Service(target.Service)
}
