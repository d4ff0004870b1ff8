package cluster

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pingcap/errors"

	"github.com/aclisp/nanoactor/id"
	"github.com/aclisp/nanoactor/internal/log"
	"github.com/aclisp/nanoactor/pending"
	"github.com/aclisp/nanoactor/wire"
)

// writeBacklog bounds the outgoing envelope queue, providing the
// single-writer backpressure spec.md §5 asks for: a slow peer fills its
// backlog and callers block in Write rather than the runtime buffering
// unboundedly. Grounded on the teacher's agentWriteBacklog
// (cluster/agent.go).
const writeBacklog = 16

// Dispatcher resolves an inbound Call envelope to a local actor and
// invokes it. It is implemented by the actor-system kernel; cluster
// depends only on this interface to avoid an import cycle.
type Dispatcher interface {
	// DispatchCall invokes the named method on the actor identified by
	// recipient and returns its encoded result. ok is false when no
	// reply should be sent at all (e.g. the recipient could not be
	// resolved and the call is dropped); err carries an invocation
	// failure that should still be reported back as a Reply.
	DispatchCall(ctx context.Context, from *RemoteNode, recipient id.ActorId, invocationTarget string, genericSubs []string, args [][]byte) (value []byte, ok bool, err error)
}

// RemoteNode is the runtime's single-writer/single-reader handle onto one
// peer's long-lived WebSocket connection (spec.md §4.4). All writes are
// funneled through a private goroutine reading off writeCh so concurrent
// callers never race on the underlying *websocket.Conn; a private
// pending.Registry correlates calls this node originates with their
// replies.
//
// Grounded on the teacher's cluster.agent (cluster/agent.go): a
// conn + chSend + write-goroutine triple, generalized from the teacher's
// custom length-prefixed packet codec to envelopes framed as WebSocket
// text messages via wire.Codec.
type RemoteNode struct {
	NodeID id.NodeId

	conn       *websocket.Conn
	codec      wire.Codec
	dispatcher Dispatcher
	registry   *pending.Registry

	writeCh chan wire.Envelope
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error

	infoMu sync.RWMutex
	info   map[string]any
}

// NewRemoteNode wraps an already-handshaken WebSocket connection. Run
// starts its reader and writer goroutines.
func NewRemoteNode(nodeID id.NodeId, conn *websocket.Conn, codec wire.Codec, dispatcher Dispatcher) *RemoteNode {
	return &RemoteNode{
		NodeID:     nodeID,
		conn:       conn,
		codec:      codec,
		dispatcher: dispatcher,
		registry:   pending.NewRegistry(),
		writeCh:    make(chan wire.Envelope, writeBacklog),
		done:       make(chan struct{}),
		info:       make(map[string]any),
	}
}

// Run starts the reader and writer goroutines and blocks until the
// connection closes, returning the reason. Callers typically invoke Run
// in its own goroutine and use directory Opened/Closing around its
// lifetime.
func (rn *RemoteNode) Run(ctx context.Context) error {
	readerDone := make(chan error, 1)
	go func() { readerDone <- rn.runReader(ctx) }()
	go rn.runWriter()

	// ctx has no direct hold over conn.ReadMessage, so watch it
	// separately and close the connection on cancellation: that unblocks
	// the reader and fails every pending reply with ErrConnectionLost
	// (spec.md §4.5 "an in-flight read must observe cancellation within
	// bounded time"; §5 cancellation tears down child RemoteNodes).
	go func() {
		select {
		case <-ctx.Done():
			rn.Close(ErrConnectionLost)
		case <-rn.done:
		}
	}()

	err := <-readerDone
	rn.Close(err)
	return err
}

// Write enqueues env for delivery, blocking if the write backlog is
// full. It returns an error once the connection has been closed.
func (rn *RemoteNode) Write(env wire.Envelope) error {
	select {
	case rn.writeCh <- env:
		return nil
	case <-rn.done:
		return ErrConnectionLost
	}
}

// Call sends a Call envelope for recipient/invocationTarget and blocks
// until the matching Reply arrives, ctx is cancelled, or the connection
// is lost.
func (rn *RemoteNode) Call(ctx context.Context, recipient id.ActorId, invocationTarget string, genericSubs []string, args [][]byte) ([]byte, error) {
	return rn.registry.Send(ctx, func(callID wire.CallID) error {
		return rn.Write(wire.Call(callID, recipient, invocationTarget, genericSubs, args))
	})
}

// GetInfo reads a value previously stashed with SetInfo, giving callers
// somewhere to keep per-peer application state (spec.md §4.4 "user
// info").
func (rn *RemoteNode) GetInfo(key string) (any, bool) {
	rn.infoMu.RLock()
	defer rn.infoMu.RUnlock()
	v, ok := rn.info[key]
	return v, ok
}

// SetInfo stashes a value keyed by key for later retrieval by GetInfo.
func (rn *RemoteNode) SetInfo(key string, value any) {
	rn.infoMu.Lock()
	defer rn.infoMu.Unlock()
	rn.info[key] = value
}

// Close tears the connection down: every call still awaiting a reply on
// this node resolves with err (or ErrConnectionLost if err is nil), the
// writer goroutine is signalled to stop, and the underlying conn is
// closed. Close is idempotent.
func (rn *RemoteNode) Close(err error) error {
	rn.closeOnce.Do(func() {
		if err == nil {
			err = ErrConnectionLost
		}
		rn.closeErr = err
		rn.registry.FailAll(err)
		close(rn.done)
		_ = rn.conn.Close()
	})
	return rn.closeErr
}

// Done returns a channel closed once the connection has torn down.
func (rn *RemoteNode) Done() <-chan struct{} {
	return rn.done
}

func (rn *RemoteNode) runWriter() {
	for {
		select {
		case env := <-rn.writeCh:
			data, err := rn.codec.Marshal(env)
			if err != nil {
				log.Printf("nanoactor/cluster: failed to encode envelope to node %s: %v", rn.NodeID, err)
				continue
			}
			if env.Tag == wire.TagConnectionClose {
				_ = rn.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseProtocolError, ""))
				return
			}
			if err := rn.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-rn.done:
			return
		}
	}
}

func (rn *RemoteNode) runReader(ctx context.Context) error {
	for {
		msgType, data, err := rn.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Trace(err)
		}

		switch msgType {
		case websocket.TextMessage:
			var env wire.Envelope
			if err := rn.codec.Unmarshal(data, &env); err != nil {
				log.Printf("nanoactor/cluster: failed to decode envelope from node %s: %v", rn.NodeID, err)
				continue
			}
			rn.handle(ctx, env)
		case websocket.BinaryMessage:
			log.Printf("nanoactor/cluster: discarding unexpected binary frame from node %s", rn.NodeID)
		default:
			// Ping/pong/close control frames are handled by gorilla's
			// default handlers installed on rn.conn.
		}
	}
}

func (rn *RemoteNode) handle(ctx context.Context, env wire.Envelope) {
	switch env.Tag {
	case wire.TagCall:
		go rn.handleCall(ctx, env)
	case wire.TagReply:
		if err := rn.registry.ReceivedReply(env.CallID, env.Value); err != nil {
			log.Printf("nanoactor/cluster: %v", err)
		}
	case wire.TagConnectionClose:
		rn.Close(ErrConnectionLost)
	default:
		log.Printf("nanoactor/cluster: dropping envelope with unknown tag %q from node %s", env.Tag, rn.NodeID)
	}
}

func (rn *RemoteNode) handleCall(ctx context.Context, env wire.Envelope) {
	ctx = WithRemoteNode(ctx, rn)
	value, ok, err := rn.dispatcher.DispatchCall(ctx, rn, env.Recipient, env.InvocationTarget, env.GenericSubs, env.Args)
	if !ok {
		return
	}
	if err != nil {
		log.Printf("nanoactor/cluster: invocation %s on %s failed: %v", env.InvocationTarget, env.Recipient, err)
	}
	if werr := rn.Write(wire.Reply(env.CallID, &env.Recipient, value)); werr != nil {
		log.Printf("nanoactor/cluster: failed to send reply for call %s: %v", env.CallID, werr)
	}
}

type remoteNodeCtxKey struct{}

// WithRemoteNode attaches rn to ctx, substituting for the lack of
// goroutine-locals (spec.md §5 "current remote node"). Handlers invoked
// from RemoteNode.handleCall receive a ctx carrying their originating
// peer so System.GetNodeInfo/SetNodeInfo can resolve it.
func WithRemoteNode(ctx context.Context, rn *RemoteNode) context.Context {
	return context.WithValue(ctx, remoteNodeCtxKey{}, rn)
}

// RemoteNodeFromContext recovers the RemoteNode WithRemoteNode attached,
// if any.
func RemoteNodeFromContext(ctx context.Context) (*RemoteNode, bool) {
	rn, ok := ctx.Value(remoteNodeCtxKey{}).(*RemoteNode)
	return rn, ok
}
