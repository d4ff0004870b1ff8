package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aclisp/nanoactor/id"
	"github.com/aclisp/nanoactor/internal/backoff"
	"github.com/aclisp/nanoactor/internal/log"
	"github.com/aclisp/nanoactor/wire"
)

// State names a ClientManager connection-state transition, observed
// through the optional Monitor callback (spec.md §4.5).
type State int

const (
	Connecting State = iota
	Connected
	Disconnected
	Reconnecting
	Cancelled
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Reconnecting:
		return "reconnecting"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ClientManager dials a single ServerAddress and supervises a resilient
// reconnect loop: dial, handshake, run the read/write loop, and on any
// failure or clean close reconnect after a capped exponential backoff
// (spec.md §4.5). It is the client-side counterpart of ServerManager.
//
// Grounded on the teacher's Node.waitForGate retry-dial pattern
// (cluster/node.go) and initNode's client registration retry loop,
// generalized from a fixed RegisterInterval sleep to internal/backoff's
// jittered schedule.
type ClientManager struct {
	Self       id.NodeId
	Target     ServerAddress
	Codec      wire.Codec
	Directory  *Directory
	Dispatcher Dispatcher
	Policy     backoff.Policy

	// Monitor, if set, is invoked on every state transition. It must
	// return quickly; slow monitors delay the reconnect loop.
	Monitor func(State)

	mu      sync.Mutex
	current *RemoteNode
}

// NewClientManager constructs a ClientManager targeting addr. codec
// defaults to wire.JSONCodec{} when nil.
func NewClientManager(self id.NodeId, addr ServerAddress, directory *Directory, dispatcher Dispatcher, codec wire.Codec) *ClientManager {
	if codec == nil {
		codec = wire.JSONCodec{}
	}
	return &ClientManager{
		Self:       self,
		Target:     addr,
		Codec:      codec,
		Directory:  directory,
		Dispatcher: dispatcher,
		Policy:     backoff.DefaultPolicy,
	}
}

// Run executes the resilient reconnect loop until ctx is cancelled. It
// blocks; callers typically invoke it in its own goroutine.
func (c *ClientManager) Run(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		c.notify(Connecting)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.Target.URL(), nil)
		if err != nil {
			if ctx.Err() != nil {
				c.notify(Cancelled)
				return
			}
			c.notify(Disconnected)
			if !c.sleep(ctx, attempt) {
				return
			}
			continue
		}

		peer, err := handshake(conn, c.Self)
		if err != nil {
			log.Printf("nanoactor/cluster: client handshake with %s failed: %v", c.Target.URL(), err)
			_ = conn.Close()
			c.notify(Disconnected)
			if !c.sleep(ctx, attempt) {
				return
			}
			continue
		}

		rn := NewRemoteNode(peer, conn, c.Codec, c.Dispatcher)
		c.setCurrent(rn)
		c.Directory.Opened(rn)
		c.notify(Connected)

		runErr := rn.Run(ctx)
		c.Directory.Closing(rn)
		c.setCurrent(nil)

		if ctx.Err() != nil {
			c.notify(Cancelled)
			return
		}
		log.Printf("nanoactor/cluster: connection to %s lost: %v", c.Target.URL(), runErr)

		attempt = 0 // a successful connect resets the backoff schedule
		c.notify(Reconnecting)
		if !c.sleep(ctx, attempt) {
			return
		}
	}
}

// Current returns the RemoteNode for the live connection, if any.
func (c *ClientManager) Current() (*RemoteNode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.current != nil
}

func (c *ClientManager) setCurrent(rn *RemoteNode) {
	c.mu.Lock()
	c.current = rn
	c.mu.Unlock()
}

func (c *ClientManager) notify(s State) {
	if c.Monitor != nil {
		c.Monitor(s)
	}
}

// sleep waits out the backoff delay for attempt, returning false if ctx
// is cancelled first.
func (c *ClientManager) sleep(ctx context.Context, attempt int) bool {
	timer := time.NewTimer(c.Policy.Delay(attempt))
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		c.notify(Cancelled)
		return false
	}
}
