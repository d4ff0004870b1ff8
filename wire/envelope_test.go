package wire

import (
	"testing"

	"github.com/aclisp/nanoactor/id"
)

func TestJSONCodecCallRoundTrip(t *testing.T) {
	node := id.NewNodeId()
	recipient := id.New("alice").With(node)
	callID := NewCallID()
	env := Call(callID, recipient, "Greeter.AddOne", []string{"T"}, [][]byte{[]byte("42")})

	var codec JSONCodec
	data, err := codec.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Envelope
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Tag != TagCall {
		t.Fatalf("tag = %q, want %q", decoded.Tag, TagCall)
	}
	if decoded.CallID != callID {
		t.Fatalf("callID mismatch: got %s want %s", decoded.CallID, callID)
	}
	if !decoded.Recipient.Equal(recipient) {
		t.Fatalf("recipient mismatch: got %v want %v", decoded.Recipient, recipient)
	}
	if decoded.InvocationTarget != "Greeter.AddOne" {
		t.Fatalf("invocationTarget mismatch: got %q", decoded.InvocationTarget)
	}
	if len(decoded.Args) != 1 || string(decoded.Args[0]) != "42" {
		t.Fatalf("args mismatch: got %v", decoded.Args)
	}
}

func TestJSONCodecReplyRoundTrip(t *testing.T) {
	callID := NewCallID()
	env := Reply(callID, nil, []byte("43"))

	var codec JSONCodec
	data, err := codec.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Envelope
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Tag != TagReply || decoded.CallID != callID || string(decoded.Value) != "43" {
		t.Fatalf("reply round-trip mismatch: %+v", decoded)
	}
	if decoded.Sender != nil {
		t.Fatalf("sender should stay nil, got %v", decoded.Sender)
	}
}

func TestJSONCodecConnectionCloseRoundTrip(t *testing.T) {
	var codec JSONCodec
	data, err := codec.Marshal(ConnectionClose())
	if err != nil {
		t.Fatal(err)
	}
	var decoded Envelope
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Tag != TagConnectionClose {
		t.Fatalf("tag = %q, want %q", decoded.Tag, TagConnectionClose)
	}
}
