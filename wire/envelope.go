// Package wire defines the tagged-union wire envelope exchanged between
// nodes and the codec boundary used to (de)serialize it. Per spec.md §1 the
// concrete codec is an external collaborator: this package supplies the
// default (JSON) implementation and the interface callers may replace it
// with.
package wire

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/aclisp/nanoactor/id"
)

// CallID is a fresh 128-bit identifier minted per outgoing invocation.
type CallID uuid.UUID

// NewCallID mints a fresh CallID.
func NewCallID() CallID {
	return CallID(uuid.New())
}

// String renders the CallID's canonical UUID text form.
func (c CallID) String() string {
	return uuid.UUID(c).String()
}

func (c CallID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CallID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*c = CallID(u)
	return nil
}

// Tag discriminates the Envelope union.
type Tag string

const (
	TagCall            Tag = "call"
	TagReply           Tag = "reply"
	TagConnectionClose Tag = "connectionClose"
)

// Envelope is the tagged union carried over the wire: a Call, a Reply, or a
// ConnectionClose marker. Exactly one of the variant-specific field groups
// is meaningful for a given Tag; the JSON encoding matches spec.md §6.
type Envelope struct {
	Tag Tag `json:"tag"`

	// Call fields.
	CallID           CallID      `json:"callID,omitempty"`
	Recipient        id.ActorId  `json:"recipient,omitempty"`
	InvocationTarget string      `json:"invocationTarget,omitempty"`
	GenericSubs      []string    `json:"genericSubs,omitempty"`
	Args             [][]byte    `json:"args,omitempty"`

	// Reply fields. Sender reuses Recipient's wire shape; Value reuses Args'
	// single-slot shape.
	Sender *id.ActorId `json:"sender,omitempty"`
	Value  []byte      `json:"value,omitempty"`
}

// Call builds a Call envelope.
func Call(callID CallID, recipient id.ActorId, invocationTarget string, genericSubs []string, args [][]byte) Envelope {
	return Envelope{
		Tag:              TagCall,
		CallID:           callID,
		Recipient:        recipient,
		InvocationTarget: invocationTarget,
		GenericSubs:      genericSubs,
		Args:             args,
	}
}

// Reply builds a Reply envelope. sender may be nil.
func Reply(callID CallID, sender *id.ActorId, value []byte) Envelope {
	return Envelope{
		Tag:    TagReply,
		CallID: callID,
		Sender: sender,
		Value:  value,
	}
}

// ConnectionClose builds the application-level close marker envelope.
func ConnectionClose() Envelope {
	return Envelope{Tag: TagConnectionClose}
}

// Codec marshals and unmarshals envelopes to and from opaque byte blobs.
// The runtime never inspects the bytes itself; this is the seam spec.md §1
// names as an external collaborator. JSONCodec is the default.
type Codec interface {
	Marshal(Envelope) ([]byte, error)
	Unmarshal([]byte, *Envelope) error
}

// JSONCodec is the default Codec, matching the wire shape in spec.md §6.
type JSONCodec struct{}

func (JSONCodec) Marshal(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

func (JSONCodec) Unmarshal(data []byte, e *Envelope) error {
	return json.Unmarshal(data, e)
}
