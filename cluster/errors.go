package cluster

import (
	"fmt"
	"time"

	"github.com/aclisp/nanoactor/id"
)

// ErrConnectionLost is the terminal error every pending reply routed
// through a RemoteNode resolves with when that connection closes
// (spec.md §3 RemoteNode lifecycle, §5 Cancellation).
var ErrConnectionLost = fmt.Errorf("nanoactor/cluster: broken low-level connection")

// ErrFailedToUpgrade indicates the node-id handshake failed, per spec.md
// §6.
var ErrFailedToUpgrade = fmt.Errorf("nanoactor/cluster: failed to upgrade: node-id handshake failed")

// ErrSecureServerNotSupported is returned by ServerManager.Start when
// asked to bind a Secure ServerAddress; only the client side may dial
// wss://, per spec.md §4.5.
var ErrSecureServerNotSupported = fmt.Errorf("nanoactor/cluster: secure server not supported; front with a reverse proxy")

// ErrTimeoutWaitingForNodeID reports that Directory.WaitFor gave up
// waiting for a peer to appear.
type ErrTimeoutWaitingForNodeID struct {
	Node    id.NodeId
	Timeout time.Duration
}

func (e *ErrTimeoutWaitingForNodeID) Error() string {
	return fmt.Sprintf("nanoactor/cluster: timed out after %s waiting for node %s to connect", e.Timeout, e.Node)
}
