package nanoactor

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/aclisp/nanoactor/cluster"
	"github.com/aclisp/nanoactor/id"
)

// person is the Alice/Bob actor used by scenario seed 2.
type person struct {
	sys      *System
	actorID  id.ActorId
	name     string
	nearNode *id.NodeId
	nearID   *id.ActorId
}

func (p *person) ActorID() id.ActorId { return p.actorID }

func (p *person) Move(ctx context.Context, near *id.ActorId) (*string, error) {
	p.nearID = near
	ok := "moved"
	return &ok, nil
}

func (p *person) IntroduceYourself(ctx context.Context) (*string, error) {
	greeting := fmt.Sprintf("Nice to meet you, %s.", p.name)
	return &greeting, nil
}

func newPerson(sys *System, name string) *person {
	var p *person
	sys.MakeLocalActor(nil, "Person", func(actorID id.ActorId) Actor {
		p = &person{sys: sys, actorID: actorID, name: name}
		sys.ActorReady(p)
		return p
	})
	return p
}

// TestScenarioLocalAddOne covers spec.md §8 scenario seed 1: a server-only
// system hosting Alice, addressed from a second, client-only system via an
// actual round trip over the wire.
func TestScenarioLocalAddOne(t *testing.T) {
	server := NewSystem()
	addr := serverAddr(t)
	sm, err := server.RunServer(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer server.ShutdownGracefully()

	alice := newCounter(server, nil)
	aliceID := alice.ActorID().With(server.Self)

	client := NewSystem()
	defer client.ShutdownGracefully()
	tcpAddr := sm.Addr()
	wsAddr := cluster.ServerAddress{Scheme: cluster.Insecure, Host: addr.Host, Port: portOf(t, tcpAddr)}
	client.ConnectClient(wsAddr, nil)

	waitForPeer(t, client, server.Self)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	argBytes, err := jsonArgCodec{}.Marshal(42)
	if err != nil {
		t.Fatal(err)
	}
	value, err := client.RemoteCall(ctx, aliceID, "AddOne", nil, [][]byte{argBytes})
	if err != nil {
		t.Fatal(err)
	}
	var result int
	if err := jsonArgCodec{}.Unmarshal(value, &result); err != nil {
		t.Fatal(err)
	}
	if result != 43 {
		t.Fatalf("AddOne(42) = %d, want 43", result)
	}
}

// TestScenarioAliceAndBobIntroduceThemselves covers spec.md §8 scenario
// seed 2: two local actors on the same system, one referencing the other.
func TestScenarioAliceAndBobIntroduceThemselves(t *testing.T) {
	sys := NewSystem()
	alice := newPerson(sys, "Alice")
	bob := newPerson(sys, "Bob")

	aliceRef := alice.ActorID()
	if _, err := bob.Move(context.Background(), &aliceRef); err != nil {
		t.Fatal(err)
	}
	if bob.nearID == nil || !bob.nearID.Equal(aliceRef) {
		t.Fatal("bob did not record alice as his neighbor")
	}

	greeting, err := bob.IntroduceYourself(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if *greeting != "Nice to meet you, Bob." {
		t.Fatalf("greeting = %q, want %q", *greeting, "Nice to meet you, Bob.")
	}
}

func portOf(t *testing.T, addr net.Addr) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return port
}

func waitForPeer(t *testing.T, sys *System, target id.NodeId) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := sys.directory.Get(target); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("client never connected to server")
}
