package cluster

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aclisp/nanoactor/id"
	"github.com/aclisp/nanoactor/wire"
)

// echoDispatcher replies to every call with the recipient's ID uppercased,
// exercising the handleCall -> Write(Reply) path end to end.
type echoDispatcher struct{}

func (echoDispatcher) DispatchCall(ctx context.Context, from *RemoteNode, recipient id.ActorId, invocationTarget string, genericSubs []string, args [][]byte) ([]byte, bool, error) {
	return []byte(strings.ToUpper(recipient.ID)), true, nil
}

// dialPair spins up a websocket.Upgrader-backed httptest.Server and
// returns a RemoteNode wrapping the client side and the server side's
// raw *websocket.Conn for direct wire-level assertions.
func dialPair(t *testing.T, dispatcher Dispatcher) (*RemoteNode, *websocket.Conn, func()) {
	t.Helper()
	var upgrader websocket.Upgrader
	serverConnCh := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		serverConnCh <- conn
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	serverConn := <-serverConnCh

	rn := NewRemoteNode(id.NewNodeId(), clientConn, wire.JSONCodec{}, dispatcher)
	ctx, cancel := context.WithCancel(context.Background())
	go rn.Run(ctx)

	cleanup := func() {
		cancel()
		rn.Close(nil)
		_ = serverConn.Close()
		srv.Close()
	}
	return rn, serverConn, cleanup
}

func TestRemoteNodeCallRoundTripsThroughHandDrivenPeer(t *testing.T) {
	rn, serverConn, cleanup := dialPair(t, nil)
	defer cleanup()

	// Drive the server side as a minimal peer by hand: read the Call and
	// answer it directly with a fixed "PONG" Reply carrying its CallID.
	go func() {
		_, data, err := serverConn.ReadMessage()
		if err != nil {
			return
		}
		var env wire.Envelope
		if err := (wire.JSONCodec{}).Unmarshal(data, &env); err != nil {
			return
		}
		reply := wire.Reply(env.CallID, &env.Recipient, []byte("PONG"))
		out, _ := (wire.JSONCodec{}).Marshal(reply)
		_ = serverConn.WriteMessage(websocket.TextMessage, out)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	value, err := rn.Call(ctx, id.New("alice"), "Ping", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(value) != "PONG" {
		t.Fatalf("value = %q, want %q", value, "PONG")
	}
}

func TestRemoteNodeDispatchesInboundCallAndReplies(t *testing.T) {
	_, serverConn, cleanup := dialPair(t, echoDispatcher{})
	defer cleanup()

	callID := wire.NewCallID()
	recipient := id.New("bob")
	env := wire.Call(callID, recipient, "Greet", nil, nil)
	data, err := (wire.JSONCodec{}).Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	if err := serverConn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatal(err)
	}

	_ = serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, reply, err := serverConn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var got wire.Envelope
	if err := (wire.JSONCodec{}).Unmarshal(reply, &got); err != nil {
		t.Fatal(err)
	}
	if got.Tag != wire.TagReply || string(got.Value) != "BOB" {
		t.Fatalf("got %+v, want reply with value BOB", got)
	}
}

func TestRemoteNodeCloseFailsPendingCalls(t *testing.T) {
	rn, _, cleanup := dialPair(t, nil)
	defer cleanup()

	done := make(chan error, 1)
	go func() {
		_, err := rn.Call(context.Background(), id.New("alice"), "Ping", nil, nil)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	wantErr := errors.New("peer gone")
	rn.Close(wantErr)

	select {
	case err := <-done:
		if err != wantErr {
			t.Fatalf("err = %v, want %v", err, wantErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not unblock after Close")
	}
}

func TestRemoteNodeInfoRoundTrip(t *testing.T) {
	rn, _, cleanup := dialPair(t, nil)
	defer cleanup()

	if _, ok := rn.GetInfo("role"); ok {
		t.Fatal("expected no info before SetInfo")
	}
	rn.SetInfo("role", "gateway")
	v, ok := rn.GetInfo("role")
	if !ok || v != "gateway" {
		t.Fatalf("GetInfo = (%v, %v), want (gateway, true)", v, ok)
	}
}
