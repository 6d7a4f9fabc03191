package node

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelator_TranslatesReply(t *testing.T) {
	c := NewCorrelator()
	replyTo := make(chan Reply, 1)

	pending := c.Register(replyTo, func(rep Reply) Reply {
		rep.Message = strings.ToUpper(rep.Message)
		return rep
	}, testAskTimeout)

	pending.Chan() <- Reply{OK: true, Message: "done"}

	rep := <-replyTo
	assert.True(t, rep.OK)
	assert.Equal(t, "DONE", rep.Message)
	assert.Equal(t, 0, c.PendingCount())
}

func TestCorrelator_TimeoutResolvesOnce(t *testing.T) {
	c := NewCorrelator()
	replyTo := make(chan Reply, 2)

	pending := c.Register(replyTo, nil, 10*time.Millisecond)

	rep := <-replyTo
	assert.False(t, rep.OK)
	assert.Contains(t, rep.Message, "timed out")

	// A reply arriving after the timeout is discarded, never forwarded.
	pending.Chan() <- Reply{OK: true}
	time.Sleep(30 * time.Millisecond)

	select {
	case extra := <-replyTo:
		t.Fatalf("second reply delivered: %+v", extra)
	default:
	}
	assert.Equal(t, 0, c.PendingCount())
}

func TestCorrelator_FailResolvesWithoutTranslation(t *testing.T) {
	c := NewCorrelator()
	replyTo := make(chan Reply, 1)

	translated := false
	pending := c.Register(replyTo, func(rep Reply) Reply {
		translated = true
		return rep
	}, testAskTimeout)

	pending.Fail(errors.New("forward failed"))

	rep := <-replyTo
	assert.False(t, rep.OK)
	assert.Equal(t, "forward failed", rep.Message)
	assert.False(t, translated, "forward failures must not pass through the translator")

	// Fail is idempotent once resolved.
	pending.Fail(errors.New("again"))
	select {
	case extra := <-replyTo:
		t.Fatalf("second reply delivered: %+v", extra)
	default:
	}
}

func TestCorrelator_ShutdownResolvesAllPending(t *testing.T) {
	c := NewCorrelator()

	const n = 5
	channels := make([]chan Reply, n)
	for i := range n {
		channels[i] = make(chan Reply, 1)
		c.Register(channels[i], nil, testAskTimeout)
	}
	require.Equal(t, n, c.PendingCount())

	c.Shutdown()

	for _, ch := range channels {
		rep := <-ch
		assert.False(t, rep.OK)
	}
	assert.Equal(t, 0, c.PendingCount())
}
