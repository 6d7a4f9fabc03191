package node

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Correlator tracks the one-shot response adapters for requests in flight
// through a supervisor. Each adapter is keyed by a generated request id and
// closes over the original caller's reply channel plus a translation
// function for the internal actor's native reply type. An adapter resolves
// exactly once: the first of internal reply, timeout, or shutdown wins, and
// the entry is cleared.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*adapter
}

type adapter struct {
	replyTo   chan<- Reply
	translate func(Reply) Reply
	timer     *time.Timer
	done      chan struct{}
}

// NewCorrelator creates an empty correlation table.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]*adapter)}
}

// Pending is the adapter handle returned by Register. Chan is handed to the
// internal actor as its reply target; Fail resolves the adapter directly
// when the internal command could not be forwarded at all.
type Pending struct {
	id string
	c  *Correlator
	ch chan Reply
}

// Chan returns the internal actor's reply target for this request.
func (p *Pending) Chan() chan<- Reply {
	return p.ch
}

// Fail resolves the adapter with a failure without translation. It is a
// no-op if the adapter already resolved.
func (p *Pending) Fail(err error) {
	p.c.resolve(p.id, failure(err), false)
}

// Register creates a single-use adapter bound to replyTo. The internal
// reply, when it arrives, is passed through translate (if non-nil) and
// delivered to replyTo. If no internal reply arrives within timeout, replyTo
// receives a timeout failure instead.
func (c *Correlator) Register(replyTo chan<- Reply, translate func(Reply) Reply, timeout time.Duration) *Pending {
	id := uuid.NewString()
	internal := make(chan Reply, 1)

	a := &adapter{replyTo: replyTo, translate: translate, done: make(chan struct{})}
	a.timer = time.AfterFunc(timeout, func() {
		c.resolve(id, failure(ErrTimeout), false)
	})

	c.mu.Lock()
	c.pending[id] = a
	c.mu.Unlock()

	// Await the internal reply off the caller's goroutine. The done channel
	// unblocks the wait when the adapter resolved some other way (timeout,
	// forward failure, shutdown); a reply arriving after that is discarded
	// by the internal channel's buffer.
	go func() {
		select {
		case rep := <-internal:
			c.resolve(id, rep, true)
		case <-a.done:
		}
	}()

	return &Pending{id: id, c: c, ch: internal}
}

// PendingCount reports how many requests are currently awaiting a reply.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Shutdown resolves every in-flight adapter with a failure so callers are
// not left waiting across a node stop.
func (c *Correlator) Shutdown() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.resolve(id, failure(ErrDependencyUnavailable), false)
	}
}

// resolve delivers the terminal reply for a request. The first caller for a
// given id wins; later calls find no entry and return.
func (c *Correlator) resolve(id string, rep Reply, translate bool) {
	c.mu.Lock()
	a, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	a.timer.Stop()
	close(a.done)

	if translate && a.translate != nil {
		rep = a.translate(rep)
	}
	deliver(a.replyTo, rep)
}
