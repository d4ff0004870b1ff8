package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/aclisp/nanoactor/id"
	"github.com/aclisp/nanoactor/scheduler"
)

// Directory is the remote-node directory (spec.md §4.3): it tracks live
// per-peer connections keyed by NodeId and lets callers block until a
// given node appears, rather than failing fast — client-only nodes are
// routinely reached by id rather than by address (e.g. a server dispatching
// a callback to a mobile client), so callers tolerate transient
// disconnects instead of treating "not connected yet" as permanent.
//
// Grounded on the teacher's cluster.Node: a
// `sessions map[int64]*session.Session` guarded by `mu sync.RWMutex`
// (storeSession/removeSession/findSession in cluster/node.go), generalized
// from session-id keys to NodeId keys and extended with a waiter table so
// callers can block for an id that has not connected yet instead of the
// teacher's busy-polling waitForGate.
type Directory struct {
	mu      sync.Mutex
	nodes   map[id.NodeId]*RemoteNode
	waiters map[id.NodeId][]chan *RemoteNode
}

// NewDirectory constructs an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		nodes:   make(map[id.NodeId]*RemoteNode),
		waiters: make(map[id.NodeId][]chan *RemoteNode),
	}
}

// Opened inserts or replaces the entry for remote's NodeID and wakes every
// waiter blocked on that id. Adopting a new connection for a known peer
// evicts the old one (spec.md §3 invariant: "A NodeId maps to at most one
// RemoteNode at a time") — the evicted RemoteNode is closed so its
// goroutines and pending replies don't outlive the directory entry that
// named it.
func (d *Directory) Opened(remote *RemoteNode) {
	d.mu.Lock()
	evicted := d.nodes[remote.NodeID]
	d.nodes[remote.NodeID] = remote
	waiters := d.waiters[remote.NodeID]
	delete(d.waiters, remote.NodeID)
	d.mu.Unlock()

	if evicted != nil && evicted != remote {
		evicted.Close(ErrConnectionLost)
	}

	// Wake waiters outside the lock (spec.md §5: "waiters are awakened
	// outside the lock").
	for _, w := range waiters {
		w <- remote
	}
}

// Closing removes the entry for remote.NodeID if it still equals remote
// (an intervening Opened for the same id must not be evicted by a stale
// Closing from the connection it replaced).
func (d *Directory) Closing(remote *RemoteNode) {
	d.mu.Lock()
	if d.nodes[remote.NodeID] == remote {
		delete(d.nodes, remote.NodeID)
	}
	d.mu.Unlock()
}

// Get returns the live RemoteNode for node, if any, without waiting.
func (d *Directory) Get(node id.NodeId) (*RemoteNode, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rn, ok := d.nodes[node]
	return rn, ok
}

// WaitFor resolves the RemoteNode for node. If one is already connected it
// returns immediately; otherwise it blocks until Opened is called for that
// id, ctx is cancelled, or timeout elapses (returning
// ErrTimeoutWaitingForNodeID). The timeout itself runs through the
// package-wide scheduler rather than a one-off time.Timer per call,
// sharing the same timed-deadline machinery System.StartDiagnostics uses
// for its heartbeat.
func (d *Directory) WaitFor(ctx context.Context, node id.NodeId, timeout time.Duration) (*RemoteNode, error) {
	d.mu.Lock()
	if rn, ok := d.nodes[node]; ok {
		d.mu.Unlock()
		return rn, nil
	}
	ch := make(chan *RemoteNode, 1)
	d.waiters[node] = append(d.waiters[node], ch)
	d.mu.Unlock()

	timedOut := make(chan struct{}, 1)
	scheduler.After(func() { timedOut <- struct{}{} }, timeout)

	select {
	case rn := <-ch:
		return rn, nil
	case <-timedOut:
		d.removeWaiter(node, ch)
		return nil, &ErrTimeoutWaitingForNodeID{Node: node, Timeout: timeout}
	case <-ctx.Done():
		d.removeWaiter(node, ch)
		return nil, ctx.Err()
	}
}

func (d *Directory) removeWaiter(node id.NodeId, ch chan *RemoteNode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.waiters[node]
	for i, w := range list {
		if w == ch {
			d.waiters[node] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(d.waiters[node]) == 0 {
		delete(d.waiters, node)
	}
}

// Nodes returns a snapshot of every currently connected peer NodeId, for
// diagnostics.
func (d *Directory) Nodes() []id.NodeId {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]id.NodeId, 0, len(d.nodes))
	for n := range d.nodes {
		result = append(result, n)
	}
	return result
}
