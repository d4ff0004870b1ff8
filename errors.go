// Package nanoactor is the actor-system kernel: it owns the local actor
// directory, the pending-reply registry routing, and the set of
// connection managers, and implements the public operations user code
// drives — AssignID, ActorReady, ResignID, Resolve, MakeLocalActor,
// RemoteCall/RemoteCallVoid, RegisterOnDemandResolveHandler,
// ShutdownGracefully, GetNodeInfo/SetNodeInfo.
package nanoactor

import (
	"fmt"

	"github.com/pingcap/errors"

	"github.com/aclisp/nanoactor/id"
)

// ErrResolveFailed reports that an id is unknown to both the local
// directory and the on-demand resolver.
type ErrResolveFailed struct {
	ID id.ActorId
}

func (e *ErrResolveFailed) Error() string {
	return fmt.Sprintf("nanoactor: resolve failed for %s", e.ID)
}

// ErrResolveFailedToMatchActorType reports that resolve found an actor
// but the caller asked for an incompatible concrete type.
type ErrResolveFailedToMatchActorType struct {
	ID       id.ActorId
	Expected string
}

func (e *ErrResolveFailedToMatchActorType) Error() string {
	return fmt.Sprintf("nanoactor: %s did not match expected type %s", e.ID, e.Expected)
}

// ErrMissingNodeID reports an outbound call attempted against an ActorId
// whose Node field is unset.
type ErrMissingNodeID struct {
	ID id.ActorId
}

func (e *ErrMissingNodeID) Error() string {
	return fmt.Sprintf("nanoactor: %s is missing a node id; cannot route outbound call", e.ID)
}

// ErrNoRemoteNode is reserved for callers that bypass the directory's
// wait-with-timeout path; under normal operation WaitFor's timeout error
// surfaces instead.
var ErrNoRemoteNode = errors.New("nanoactor: no live connection to target node")

// ErrNotInDistributedActor reports that GetNodeInfo/SetNodeInfo was
// called outside an inbound invocation's dispatch context.
var ErrNotInDistributedActor = errors.New("nanoactor: node-info accessor called outside a dispatch")

// ErrDecoding reports that reply bytes failed to decode as the caller's
// expected return type.
type ErrDecoding struct {
	Cause error
}

func (e *ErrDecoding) Error() string {
	return fmt.Sprintf("nanoactor: decoding reply failed: %v", e.Cause)
}

func (e *ErrDecoding) Unwrap() error { return e.Cause }
