package nanoactor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aclisp/nanoactor/cluster"
	"github.com/aclisp/nanoactor/id"
)

func serverAddr(t *testing.T) cluster.ServerAddress {
	t.Helper()
	return cluster.ServerAddress{Scheme: cluster.Insecure, Host: "127.0.0.1", Port: 0}
}

// counter is a minimal Actor used across the kernel's own tests.
type counter struct {
	id id.ActorId
	n  int
}

func (c *counter) ActorID() id.ActorId { return c.id }

func (c *counter) AddOne(ctx context.Context, x *int) (*int, error) {
	result := *x + 1
	return &result, nil
}

func newCounter(sys *System, hint *id.ActorId) *counter {
	var c *counter
	sys.MakeLocalActor(hint, "counter", func(actorID id.ActorId) Actor {
		c = &counter{id: actorID}
		sys.ActorReady(c)
		return c
	})
	return c
}

func TestActorIdEqualityAndRandomness(t *testing.T) {
	if !id.New("foo").Equal(id.New("foo")) {
		t.Fatal("ActorId(id: foo) should equal itself")
	}
	a, b := id.Random(), id.Random()
	if a.Equal(b) {
		t.Fatal("two successive Random() ids should differ")
	}
	if !id.RandomFor("Person").HasType("Person") {
		t.Fatal("RandomFor(Person) should carry the Person type tag")
	}
}

func TestMakeLocalActorThenResolveReturnsSameInstance(t *testing.T) {
	sys := NewSystem()
	c := newCounter(sys, nil)

	got, found, err := Resolve[*counter](sys, c.ActorID())
	if err != nil || !found {
		t.Fatalf("Resolve = (%v, %v, %v), want found", got, found, err)
	}
	if got != c {
		t.Fatal("Resolve did not return the same actor instance")
	}

	sys.ResignID(c.ActorID())
	_, found, err = Resolve[*counter](sys, c.ActorID())
	if err != nil {
		t.Fatalf("unexpected error after ResignID: %v", err)
	}
	if found {
		t.Fatal("expected resolve to miss after ResignID")
	}
}

func TestResolveTypeMismatch(t *testing.T) {
	sys := NewSystem()
	c := newCounter(sys, nil)

	type otherActor interface {
		Actor
		SomeOtherMethod()
	}
	_, found, err := Resolve[otherActor](sys, c.ActorID())
	if found {
		t.Fatal("expected type mismatch, not a match")
	}
	var mismatch *ErrResolveFailedToMatchActorType
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ErrResolveFailedToMatchActorType, got %v", err)
	}
}

func TestRemoteCallTimesOutWithNoPeer(t *testing.T) {
	sys := NewSystem(WithConnectionTimeout(100 * time.Millisecond))
	never := id.New("ghost").With(id.NewNodeId())

	start := time.Now()
	_, err := sys.RemoteCall(context.Background(), never, "Ping", nil, nil)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if elapsed < 100*time.Millisecond {
		t.Fatalf("returned too early: %v", elapsed)
	}
}

func TestRemoteCallRejectsMissingNodeID(t *testing.T) {
	sys := NewSystem()
	_, err := sys.RemoteCall(context.Background(), id.New("local-only"), "Ping", nil, nil)
	var missing *ErrMissingNodeID
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrMissingNodeID, got %v", err)
	}
}

// panicLogger turns Fatalf into a panic so the duplicate-id contract
// violation (spec.md §7) can be observed inside a test process instead
// of exiting it.
type panicLogger struct{}

func (panicLogger) Print(v ...any)                 {}
func (panicLogger) Printf(format string, v ...any) {}
func (panicLogger) Fatal(v ...any)                 { panic(v) }
func (panicLogger) Fatalf(format string, v ...any) { panic("fatal") }

func TestDuplicateActorIDHaltsProcess(t *testing.T) {
	sys := NewSystem(WithLogger(panicLogger{}))

	actorID := sys.AssignID("counter")
	sys.ActorReady(&counter{id: actorID})

	defer func() {
		if recover() == nil {
			t.Fatal("expected a duplicate assignment to halt via Fatalf")
		}
	}()
	sys.ActorReady(&counter{id: actorID})
}

func TestShutdownGracefullyWaitsForManagers(t *testing.T) {
	sys := NewSystem()
	sm, err := sys.RunServer(serverAddr(t))
	if err != nil {
		t.Fatal(err)
	}
	_ = sm

	done := make(chan struct{})
	go func() {
		sys.ShutdownGracefully()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ShutdownGracefully did not return")
	}
}
