// Package pending implements the pending-reply registry (spec.md §4.2): a
// thread-safe correlation table between outgoing call ids and one-shot
// completers awaiting the matching Reply.
//
// The correlation table itself is grounded on
// other_examples/19ad24be_andradeandrey-go-qrp__node.go.go's
// `pending map[call]responseChannel`, generalized from a UDP-request/reply
// map keyed by (messageID, addr) to one keyed by wire.CallID; the
// single-slot buffered channel as a one-shot completer is the same idiom
// the teacher uses for its per-agent `chSend` write queue
// (cluster/agent.go).
package pending

import (
	"context"
	"sync"

	"github.com/aclisp/nanoactor/wire"
)

// Result is what a completer resolves with: either reply bytes or an
// error (connection lost, timeout, cancellation).
type Result struct {
	Value []byte
	Err   error
}

// ErrMissingReplyContinuation is returned by ReceivedReply when no
// completer is registered for the given call id — indicating a late reply
// after the caller already gave up (spec.md §7).
type ErrMissingReplyContinuation struct {
	CallID wire.CallID
}

func (e *ErrMissingReplyContinuation) Error() string {
	return "missing reply continuation for call " + e.CallID.String()
}

// Registry correlates outgoing CallIDs with one-shot completers.
type Registry struct {
	mu      sync.Mutex
	pending map[wire.CallID]chan Result
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[wire.CallID]chan Result)}
}

// Send mints a fresh CallID, installs a completer for it, invokes send
// with the new id, then blocks until the completer resolves (or ctx is
// cancelled). If send returns an error synchronously the completer is
// removed before the error is returned. The returned bytes are the Value
// field of the matched Reply.
func (r *Registry) Send(ctx context.Context, send func(wire.CallID) error) ([]byte, error) {
	callID := wire.NewCallID()
	ch := make(chan Result, 1)

	r.mu.Lock()
	r.pending[callID] = ch
	r.mu.Unlock()

	if err := send(callID); err != nil {
		r.mu.Lock()
		delete(r.pending, callID)
		r.mu.Unlock()
		return nil, err
	}

	select {
	case res := <-ch:
		return res.Value, res.Err
	case <-ctx.Done():
		r.mu.Lock()
		delete(r.pending, callID)
		r.mu.Unlock()
		return nil, ctx.Err()
	}
}

// ReceivedReply resolves the completer for callID with a successful
// value. It reports ErrMissingReplyContinuation if no such id is
// registered.
func (r *Registry) ReceivedReply(callID wire.CallID, value []byte) error {
	r.mu.Lock()
	ch, ok := r.pending[callID]
	if ok {
		delete(r.pending, callID)
	}
	r.mu.Unlock()

	if !ok {
		return &ErrMissingReplyContinuation{CallID: callID}
	}
	ch <- Result{Value: value}
	return nil
}

// Fail resolves the completer for callID with err. It is a no-op if no
// such id is registered (the caller may already have cancelled).
func (r *Registry) Fail(callID wire.CallID, err error) {
	r.mu.Lock()
	ch, ok := r.pending[callID]
	if ok {
		delete(r.pending, callID)
	}
	r.mu.Unlock()

	if ok {
		ch <- Result{Err: err}
	}
}

// FailAll resolves every currently pending completer with err — used when
// a RemoteNode's connection is lost or the System shuts down.
func (r *Registry) FailAll(err error) {
	r.mu.Lock()
	all := r.pending
	r.pending = make(map[wire.CallID]chan Result)
	r.mu.Unlock()

	for _, ch := range all {
		ch <- Result{Err: err}
	}
}

// Len reports the number of calls currently awaiting a reply. Exposed for
// tests and diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
