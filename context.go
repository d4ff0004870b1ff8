package nanoactor

import (
	"context"

	"github.com/aclisp/nanoactor/cluster"
)

// GetNodeInfo reads a value from the user-info map of the RemoteNode
// currently dispatching an inbound call, keyed by key. It is only valid
// when called from inside an invocation reached through RemoteCall on
// the peer side (spec.md §4.6); outside such a context it fails with
// ErrNotInDistributedActor.
func GetNodeInfo(ctx context.Context, key string) (any, error) {
	rn, ok := cluster.RemoteNodeFromContext(ctx)
	if !ok {
		return nil, ErrNotInDistributedActor
	}
	v, _ := rn.GetInfo(key)
	return v, nil
}

// SetNodeInfo stashes a value in the user-info map of the RemoteNode
// currently dispatching an inbound call. See GetNodeInfo.
func SetNodeInfo(ctx context.Context, key string, value any) error {
	rn, ok := cluster.RemoteNodeFromContext(ctx)
	if !ok {
		return ErrNotInDistributedActor
	}
	rn.SetInfo(key, value)
	return nil
}
