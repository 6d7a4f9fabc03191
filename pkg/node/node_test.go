package node

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoNode(t *testing.T) *Node {
	t.Helper()

	n := New("test-node", Config{AskTimeout: testAskTimeout})
	n.AddService(ServiceSpec{
		Name:  "echo",
		Build: func() (Handler, error) { return echoHandler, nil },
	})
	n.AddRoute("ping", Route{Service: "echo"})
	return n
}

func TestNode_LifecycleTransitions(t *testing.T) {
	ctx := context.Background()
	n := echoNode(t)

	assert.Equal(t, Uninitialized, n.State())

	require.NoError(t, n.Start(ctx))
	assert.Equal(t, Running, n.State())

	require.NoError(t, n.Stop(ctx))
	assert.Equal(t, Stopped, n.State())
}

func TestNode_StartTwice(t *testing.T) {
	ctx := context.Background()
	n := echoNode(t)

	require.NoError(t, n.Start(ctx))
	defer func() { _ = n.Stop(ctx) }()

	assert.Error(t, n.Start(ctx))
}

func TestNode_StartAfterStop(t *testing.T) {
	ctx := context.Background()
	n := echoNode(t)

	require.NoError(t, n.Start(ctx))
	require.NoError(t, n.Stop(ctx))

	err := n.Start(ctx)
	assert.Error(t, err, "Stopped is terminal")
}

func TestNode_StopIdempotent(t *testing.T) {
	ctx := context.Background()
	n := echoNode(t)

	require.NoError(t, n.Start(ctx))
	require.NoError(t, n.Stop(ctx))
	require.NoError(t, n.Stop(ctx))
}

func TestNode_StopWithoutStart(t *testing.T) {
	n := echoNode(t)
	require.NoError(t, n.Stop(context.Background()))
	assert.Equal(t, Stopped, n.State())
}

func TestNode_FailedServiceSpawnIsFatal(t *testing.T) {
	ctx := context.Background()

	n := New("broken", Config{})
	n.AddService(ServiceSpec{
		Name:  "good",
		Build: func() (Handler, error) { return echoHandler, nil },
	})
	n.AddService(ServiceSpec{
		Name:  "bad",
		Build: func() (Handler, error) { return nil, errors.New("spawn failed") },
	})

	err := n.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spawn failed")
	assert.NotEqual(t, Running, n.State(), "node must not enter Running with missing services")
}

func TestNode_HandleWhenNotRunning(t *testing.T) {
	n := echoNode(t)

	replyTo := make(chan Reply, 1)
	n.Handle(context.Background(), pingCmd{payload: "x"}, replyTo)

	rep := <-replyTo
	assert.False(t, rep.OK)
	assert.Contains(t, rep.Message, "not running")
}

func TestNode_AskRoundTrip(t *testing.T) {
	ctx := context.Background()
	n := echoNode(t)
	require.NoError(t, n.Start(ctx))
	defer func() { _ = n.Stop(ctx) }()

	rep, err := n.Ask(ctx, pingCmd{payload: "x"})
	require.NoError(t, err)
	assert.True(t, rep.OK)
	assert.Equal(t, pingCmd{payload: "x"}, rep.Payload)
}

func TestNode_ServiceLookup(t *testing.T) {
	ctx := context.Background()
	n := echoNode(t)

	_, err := n.Service("echo")
	assert.ErrorIs(t, err, ErrDependencyUnavailable, "lookup before Running must fail")

	require.NoError(t, n.Start(ctx))
	defer func() { _ = n.Stop(ctx) }()

	ref, err := n.Service("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", ref.Name())

	_, err = n.Service("missing")
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestRefSet_GetBeforeWire(t *testing.T) {
	refs := NewRefSet()

	_, err := refs.Get("schema-analysis")
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestRefSet_SetAndReplace(t *testing.T) {
	refs := NewRefSet()

	first := Spawn("first", echoHandler)
	defer first.Stop()
	second := Spawn("second", echoHandler)
	defer second.Stop()

	refs.Set("dep", first)
	got, err := refs.Get("dep")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name())

	// Re-wiring replaces the stored reference.
	refs.Set("dep", second)
	got, err = refs.Get("dep")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name())
}

func TestRefSet_StoppedTargetUnavailable(t *testing.T) {
	refs := NewRefSet()

	target := Spawn("target", echoHandler)
	refs.Set("dep", target)
	target.Stop()

	_, err := refs.Get("dep")
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}
