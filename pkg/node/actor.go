// Package node provides the actor runtime for subsystem nodes: mailbox-based
// service actors, the node lifecycle state machine, and the supervisor that
// routes external commands to internal actors through one-shot response
// adapters.
package node

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Failure classification for replies produced by the runtime itself.
var (
	// ErrInvalidRequest indicates a malformed command that was rejected
	// before any internal dispatch.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrDependencyUnavailable indicates a required collaborator (service
	// actor, cross-node reference) is not reachable or not configured.
	ErrDependencyUnavailable = errors.New("dependency not configured or unavailable")

	// ErrTimeout indicates no reply arrived within the caller's bound.
	ErrTimeout = errors.New("request timed out")
)

// defaultMailboxSize bounds how many envelopes can queue on an actor before
// senders block.
const defaultMailboxSize = 64

// Reply is the uniform response envelope delivered to a requester. Exactly
// one Reply is produced for every command accepted by a supervisor.
type Reply struct {
	OK      bool
	Payload any
	Message string
}

// failure builds a failed Reply from an error.
func failure(err error) Reply {
	return Reply{OK: false, Message: err.Error()}
}

// Envelope pairs a command with the channel its reply must be delivered to.
// A nil ReplyTo means the sender does not expect a reply.
type Envelope struct {
	Cmd     any
	ReplyTo chan<- Reply
}

// Handler processes a single command and returns a reply payload or an
// error. Handlers run on the actor goroutine, strictly one message at a
// time, so they may keep unexported mutable state without locking.
type Handler func(ctx context.Context, cmd any) (any, error)

// Ref is a handle to a spawned actor's mailbox. Refs may be shared freely;
// only the spawning node owns the actor's lifecycle.
type Ref struct {
	name    string
	mailbox chan Envelope
	cancel  context.CancelFunc
	ctx     context.Context
	done    chan struct{}
}

// Spawn starts an actor that processes its mailbox with h until Stop is
// called. A panic inside h resolves the in-flight envelope with a failure
// and the actor keeps serving subsequent messages.
func Spawn(name string, h Handler) *Ref {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Ref{
		name:    name,
		mailbox: make(chan Envelope, defaultMailboxSize),
		cancel:  cancel,
		ctx:     ctx,
		done:    make(chan struct{}),
	}
	go r.loop(h)
	return r
}

// Name returns the actor's service name.
func (r *Ref) Name() string {
	return r.name
}

// Send enqueues an envelope on the actor's mailbox. It fails with
// ErrDependencyUnavailable if the actor has stopped, or with the context
// error if ctx expires while the mailbox is full.
func (r *Ref) Send(ctx context.Context, env Envelope) error {
	select {
	case <-r.ctx.Done():
		return ErrDependencyUnavailable
	default:
	}

	select {
	case r.mailbox <- env:
		return nil
	case <-r.ctx.Done():
		return ErrDependencyUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ask sends cmd and waits for the reply, bounded by timeout. On timeout the
// request is treated as failed; a late reply is discarded.
func (r *Ref) Ask(ctx context.Context, cmd any, timeout time.Duration) (Reply, error) {
	replyCh := make(chan Reply, 1)
	if err := r.Send(ctx, Envelope{Cmd: cmd, ReplyTo: replyCh}); err != nil {
		return Reply{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case rep := <-replyCh:
		return rep, nil
	case <-timer.C:
		return Reply{}, ErrTimeout
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Stop terminates the actor and waits for its goroutine to exit. Envelopes
// still queued at that point resolve with a failure reply so no caller is
// left waiting. Stop is idempotent.
func (r *Ref) Stop() {
	r.cancel()
	<-r.done
}

// Stopped reports whether the actor has been stopped.
func (r *Ref) Stopped() bool {
	select {
	case <-r.ctx.Done():
		return true
	default:
		return false
	}
}

func (r *Ref) loop(h Handler) {
	defer close(r.done)

	for {
		select {
		case <-r.ctx.Done():
			r.drain()
			return
		case env := <-r.mailbox:
			r.dispatch(h, env)
		}
	}
}

// dispatch runs the handler for one envelope and delivers exactly one reply.
func (r *Ref) dispatch(h Handler, env Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("actor panicked", "actor", r.name, "panic", rec)
			deliver(env.ReplyTo, failure(ErrDependencyUnavailable))
		}
	}()

	payload, err := h(r.ctx, env.Cmd)
	if err != nil {
		deliver(env.ReplyTo, failure(err))
		return
	}
	deliver(env.ReplyTo, Reply{OK: true, Payload: payload})
}

// drain resolves envelopes left in the mailbox after shutdown began so
// in-flight requests fail instead of hanging.
func (r *Ref) drain() {
	for {
		select {
		case env := <-r.mailbox:
			deliver(env.ReplyTo, failure(ErrDependencyUnavailable))
		default:
			return
		}
	}
}

// deliver sends a reply without blocking. Reply channels are expected to be
// buffered for one message; anything beyond that is dropped and logged
// because each request may only resolve once.
func deliver(replyTo chan<- Reply, rep Reply) {
	if replyTo == nil {
		return
	}
	select {
	case replyTo <- rep:
	default:
		slog.Debug("reply dropped: channel full or abandoned")
	}
}
