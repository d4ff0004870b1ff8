// Package id provides the identity layer of the actor runtime: stable,
// comparable identifiers for nodes and actors. Both types are pure data and
// carry no behavior beyond equality, hashing (via Go's native map key
// support) and string rendering.
package id

import (
	"github.com/google/uuid"
)

// NodeId uniquely identifies a node instance for the lifetime of a process.
// It is generated randomly at process startup and exchanged during the
// node-id handshake (spec.md §6); it never changes afterwards.
type NodeId uuid.UUID

// NewNodeId mints a fresh, random NodeId.
func NewNodeId() NodeId {
	return NodeId(uuid.New())
}

// String renders the NodeId as its canonical UUID text form.
func (n NodeId) String() string {
	return uuid.UUID(n).String()
}

// ParseNodeId parses the canonical text form produced by String.
func ParseNodeId(s string) (NodeId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NodeId{}, err
	}
	return NodeId(u), nil
}

// MarshalText implements encoding.TextMarshaler so NodeId round-trips
// through the JSON envelope codec as a UUID string (spec.md §6).
func (n NodeId) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NodeId) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeId(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// ActorId names an addressable actor: an opaque id, an optional type tag
// used for diagnostics and on-demand construction, and an optional owning
// node. Equality and hashing consider ID and Node together; Type is
// metadata and never affects identity.
type ActorId struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Node *NodeId `json:"node,omitempty"`
}

// Random mints a fresh ActorId with a random ID and no type tag or node.
func Random() ActorId {
	return ActorId{ID: uuid.New().String()}
}

// RandomFor mints a fresh ActorId carrying forType as its diagnostic type
// tag, e.g. RandomFor("Greeter").
func RandomFor(forType string) ActorId {
	return ActorId{ID: uuid.New().String(), Type: forType}
}

// New constructs an ActorId from an explicit, caller-supplied id string.
// Two ActorIds built from the same id string (and the same node) compare
// equal.
func New(id string) ActorId {
	return ActorId{ID: id}
}

// With returns a copy of a with its Node field set to node. Outbound
// routing (remoteCall) requires the Node field to be populated; local
// actors are typically assigned their owning node's id when they are
// registered (see nanoactor.System.MakeLocalActor).
func (a ActorId) With(node NodeId) ActorId {
	a.Node = &node
	return a
}

// HasType reports whether a carries the given diagnostic type tag. It
// exists chiefly to let tests assert on the type an ActorId was minted
// for, per spec.md §8 scenario seed 3.
func (a ActorId) HasType(forType string) bool {
	return a.Type == forType
}

// Equal reports whether a and b name the same actor: same ID, and either
// both missing a Node or both carrying the same Node.
func (a ActorId) Equal(b ActorId) bool {
	if a.ID != b.ID {
		return false
	}
	if (a.Node == nil) != (b.Node == nil) {
		return false
	}
	if a.Node == nil {
		return true
	}
	return *a.Node == *b.Node
}

// IsLocal reports whether a has no Node field, or its Node matches self —
// either way, a refers to an actor hosted on the current process.
func (a ActorId) IsLocal(self NodeId) bool {
	return a.Node == nil || *a.Node == self
}

// String renders a human-readable form: "id", "id@node" or "id(type)@node"
// when the fields are present.
func (a ActorId) String() string {
	s := a.ID
	if a.Type != "" {
		s += "(" + a.Type + ")"
	}
	if a.Node != nil {
		s += "@" + a.Node.String()
	}
	return s
}

// Key returns a value suitable for use as a map key that implements the
// ActorId equality contract (ID + Node, ignoring Type). Go structs compare
// by value, but ActorId embeds a *NodeId pointer, so two ActorIds with
// equal but distinct Node pointers would otherwise be treated as different
// map keys; Key flattens the pointer into the key so directories and the
// local actor table key correctly.
func (a ActorId) Key() ActorKey {
	var node NodeId
	hasNode := a.Node != nil
	if hasNode {
		node = *a.Node
	}
	return ActorKey{ID: a.ID, Node: node, HasNode: hasNode}
}

// ActorKey is the flattened, comparable form of an ActorId used as a map
// key (see ActorId.Key).
type ActorKey struct {
	ID      string
	Node    NodeId
	HasNode bool
}
