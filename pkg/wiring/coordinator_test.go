package wiring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/querygate/querygate/pkg/node"
)

const (
	wireTestTimeout = 2 * time.Second
	wireTestRetry   = 10 * time.Millisecond
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type callDep struct{}

func (callDep) Kind() string { return "call-dep" }

// callerNode hosts a service that forwards call-dep to its injected "dep"
// reference, the way a connection manager calls into another node's schema
// actor.
func callerNode(t *testing.T) *node.Node {
	t.Helper()

	n := node.New("caller-node", node.Config{AskTimeout: wireTestTimeout})
	n.AddService(node.ServiceSpec{
		Name: "caller",
		Build: func() (node.Handler, error) {
			refs := node.NewRefSet()
			return func(ctx context.Context, cmd any) (any, error) {
				switch c := cmd.(type) {
				case node.SetReference:
					refs.Set(c.Name, c.Ref)
					return nil, nil
				case callDep:
					dep, err := refs.Get("dep")
					if err != nil {
						return nil, err
					}
					rep, err := dep.Ask(ctx, "hello", wireTestTimeout)
					if err != nil {
						return nil, err
					}
					return rep.Payload, nil
				default:
					return nil, node.ErrInvalidRequest
				}
			}, nil
		},
	})
	n.AddRoute("call-dep", node.Route{Service: "caller"})
	return n
}

// providerNode hosts a service that answers with a fixed payload.
func providerNode(t *testing.T, name, answer string) *node.Node {
	t.Helper()

	n := node.New(name, node.Config{AskTimeout: wireTestTimeout})
	n.AddService(node.ServiceSpec{
		Name: "provider",
		Build: func() (node.Handler, error) {
			return func(_ context.Context, _ any) (any, error) {
				return answer, nil
			}, nil
		},
	})
	return n
}

func TestCoordinator_CallBeforeWiringFailsGracefully(t *testing.T) {
	ctx := context.Background()

	caller := callerNode(t)
	require.NoError(t, caller.Start(ctx))
	defer func() { _ = caller.Stop(ctx) }()

	rep, err := caller.Ask(ctx, callDep{})
	require.NoError(t, err)
	assert.False(t, rep.OK)
	assert.Contains(t, rep.Message, "dependency not configured")
}

func TestCoordinator_WireThenCall(t *testing.T) {
	ctx := context.Background()

	caller := callerNode(t)
	provider := providerNode(t, "provider-node", "schema-data")
	require.NoError(t, caller.Start(ctx))
	require.NoError(t, provider.Start(ctx))
	defer func() {
		_ = caller.Stop(ctx)
		_ = provider.Stop(ctx)
	}()

	registry := NewRegistry()
	require.NoError(t, registry.Register(caller))
	require.NoError(t, registry.Register(provider))

	coord := NewCoordinator(registry, wireTestRetry)
	require.NoError(t, coord.Wire(ctx, Spec{
		Source:  Endpoint{Node: "caller-node", Service: "caller"},
		RefName: "dep",
		Target:  Endpoint{Node: "provider-node", Service: "provider"},
	}))

	rep, err := caller.Ask(ctx, callDep{})
	require.NoError(t, err)
	assert.True(t, rep.OK)
	assert.Equal(t, "schema-data", rep.Payload)
}

func TestCoordinator_WireDefersUntilTargetRunning(t *testing.T) {
	ctx := context.Background()

	caller := callerNode(t)
	provider := providerNode(t, "provider-node", "late")
	require.NoError(t, caller.Start(ctx))
	defer func() {
		_ = caller.Stop(ctx)
		_ = provider.Stop(ctx)
	}()

	registry := NewRegistry()
	require.NoError(t, registry.Register(caller))
	require.NoError(t, registry.Register(provider))

	coord := NewCoordinator(registry, wireTestRetry)

	done := make(chan error, 1)
	go func() {
		done <- coord.Wire(ctx, Spec{
			Source:  Endpoint{Node: "caller-node", Service: "caller"},
			RefName: "dep",
			Target:  Endpoint{Node: "provider-node", Service: "provider"},
		})
	}()

	// The wiring attempt races a target that has not started; it must defer
	// rather than fail.
	time.Sleep(5 * wireTestRetry)
	select {
	case err := <-done:
		t.Fatalf("wiring completed before target started: %v", err)
	default:
	}

	require.NoError(t, provider.Start(ctx))
	require.NoError(t, <-done)

	rep, err := caller.Ask(ctx, callDep{})
	require.NoError(t, err)
	assert.True(t, rep.OK)
	assert.Equal(t, "late", rep.Payload)
}

func TestCoordinator_RewireReplacesReference(t *testing.T) {
	ctx := context.Background()

	caller := callerNode(t)
	first := providerNode(t, "first-node", "first")
	second := providerNode(t, "second-node", "second")
	require.NoError(t, caller.Start(ctx))
	require.NoError(t, first.Start(ctx))
	require.NoError(t, second.Start(ctx))
	defer func() {
		_ = caller.Stop(ctx)
		_ = first.Stop(ctx)
		_ = second.Stop(ctx)
	}()

	registry := NewRegistry()
	require.NoError(t, registry.Register(caller))
	require.NoError(t, registry.Register(first))
	require.NoError(t, registry.Register(second))

	coord := NewCoordinator(registry, wireTestRetry)
	source := Endpoint{Node: "caller-node", Service: "caller"}

	require.NoError(t, coord.Wire(ctx, Spec{
		Source: source, RefName: "dep",
		Target: Endpoint{Node: "first-node", Service: "provider"},
	}))
	rep, err := caller.Ask(ctx, callDep{})
	require.NoError(t, err)
	assert.Equal(t, "first", rep.Payload)

	// Hot swap after a target restart: the same pair re-wires in place.
	require.NoError(t, coord.Wire(ctx, Spec{
		Source: source, RefName: "dep",
		Target: Endpoint{Node: "second-node", Service: "provider"},
	}))
	rep, err = caller.Ask(ctx, callDep{})
	require.NoError(t, err)
	assert.Equal(t, "second", rep.Payload)
}

func TestCoordinator_WireAbortsOnStoppedTarget(t *testing.T) {
	ctx := context.Background()

	caller := callerNode(t)
	provider := providerNode(t, "provider-node", "x")
	require.NoError(t, caller.Start(ctx))
	require.NoError(t, provider.Start(ctx))
	require.NoError(t, provider.Stop(ctx))
	defer func() { _ = caller.Stop(ctx) }()

	registry := NewRegistry()
	require.NoError(t, registry.Register(caller))
	require.NoError(t, registry.Register(provider))

	coord := NewCoordinator(registry, wireTestRetry)
	err := coord.Wire(ctx, Spec{
		Source:  Endpoint{Node: "caller-node", Service: "caller"},
		RefName: "dep",
		Target:  Endpoint{Node: "provider-node", Service: "provider"},
	})
	assert.ErrorIs(t, err, node.ErrDependencyUnavailable)
}

func TestCoordinator_WireCanceled(t *testing.T) {
	registry := NewRegistry()
	coord := NewCoordinator(registry, wireTestRetry)

	ctx, cancel := context.WithTimeout(context.Background(), 5*wireTestRetry)
	defer cancel()

	err := coord.Wire(ctx, Spec{
		Source:  Endpoint{Node: "missing", Service: "caller"},
		RefName: "dep",
		Target:  Endpoint{Node: "also-missing", Service: "provider"},
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	registry := NewRegistry()
	n := node.New("dup", node.Config{})

	require.NoError(t, registry.Register(n))
	assert.Error(t, registry.Register(n))
	assert.Len(t, registry.All(), 1)

	got, ok := registry.Get("dup")
	assert.True(t, ok)
	assert.Equal(t, n, got)
}
