package nanoactor

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/aclisp/nanoactor/cluster"
	"github.com/aclisp/nanoactor/id"
	"github.com/aclisp/nanoactor/internal/log"
	"github.com/aclisp/nanoactor/scheduler"
)

// System is the actor-system kernel (spec.md §4.6): it owns the local
// actor directory, the remote-node directory, the set of connection
// managers, and the optional on-demand resolver, and implements every
// public kernel operation user code drives.
//
// Grounded on the teacher's cluster.LocalHandler (a registry of local
// dispatch targets guarded by a mutex, cluster/handler.go), generalized
// from component/service/handler triples to a flat ActorId -> Actor map,
// and on nano.go's top-level Listen/Shutdown pair, generalized into
// RunServer/ConnectClient/ShutdownGracefully. The teacher's single
// package-global running/app state is replaced by instance state here,
// since a process may run more than one System (as the test suite does).
type System struct {
	Self id.NodeId
	opts options

	mu       sync.Mutex
	actors   map[id.ActorKey]Actor
	onDemand func(id.ActorId) (Actor, bool)

	directory *cluster.Directory

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	serversMu sync.Mutex
	servers   []*cluster.ServerManager
}

// NewSystem constructs a System identified by a freshly minted NodeId.
func NewSystem(opts ...Option) *System {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &System{
		Self:      id.NewNodeId(),
		opts:      o,
		actors:    make(map[id.ActorKey]Actor),
		directory: cluster.NewDirectory(),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// AssignID mints a random ActorId for actorType, stamped with this
// System's NodeId. Go has no task-local storage to observe an ambient id
// hint (spec.md §9 Design Notes); callers that need an explicit id use
// MakeLocalActor's hint parameter instead.
func (s *System) AssignID(actorType string) id.ActorId {
	return id.RandomFor(actorType).With(s.Self)
}

// ActorReady installs actor into the local directory keyed by its
// ActorID. A duplicate assignment is a programming contract violation
// that cannot be safely recovered from (spec.md §7 Fatal conditions) and
// halts the process.
func (s *System) ActorReady(actor Actor) {
	key := actor.ActorID().Key()
	s.mu.Lock()
	_, exists := s.actors[key]
	if !exists {
		s.actors[key] = actor
	}
	s.mu.Unlock()

	if exists {
		log.Fatalf("nanoactor: duplicate actor id assignment: %s", actor.ActorID())
	}
}

// ResignID removes actorID from the local directory. Any inbound call
// already dispatched to the actor before ResignID completes is allowed
// to finish; a call whose recipient lookup (spec.md §4.6 step 1) loses
// the race against ResignID is dropped, exactly as an unknown-recipient
// call would be (Open Question resolution, see SPEC_FULL.md §9).
func (s *System) ResignID(actorID id.ActorId) {
	s.mu.Lock()
	delete(s.actors, actorID.Key())
	s.mu.Unlock()
}

// MakeLocalActor computes the id actor will be constructed under — hint
// if non-nil, otherwise a fresh id minted via AssignID(actorType) — and
// invokes factory synchronously with that id, returning the resulting
// actor. factory is expected to call ActorReady itself once constructed
// (spec.md §9 Design Notes: an explicit builder substituting for
// task-local id hints).
func (s *System) MakeLocalActor(hint *id.ActorId, actorType string, factory func(id.ActorId) Actor) Actor {
	actorID := s.AssignID(actorType)
	if hint != nil {
		actorID = *hint
	}
	return factory(actorID)
}

// lookupLocal returns the locally registered actor for actorID, if any.
func (s *System) lookupLocal(actorID id.ActorId) (Actor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actors[actorID.Key()]
	return a, ok
}

// RegisterOnDemandResolveHandler installs fn as the fallback invoked by
// Resolve when actorID is not in the local directory — typically used
// for server-side lazy construction of client-addressed actors.
func (s *System) RegisterOnDemandResolveHandler(fn func(id.ActorId) (Actor, bool)) {
	s.mu.Lock()
	s.onDemand = fn
	s.mu.Unlock()
}

// Resolve looks up actorID: first in the local directory, then via the
// on-demand resolver if registered. found is false with a nil err when
// neither produced a match, in which case the caller should treat actorID
// as naming a remote actor. err is non-nil (and found false) for
// resolveFailed-class failures: an on-demand match whose NodeId differs
// from this System's (rejected to avoid routing loops, per spec.md §9
// Open Questions), or a local or on-demand match whose runtime type is
// incompatible with T. The on-demand result is not added to the local
// directory; the resolver runs outside s.mu and may call ActorReady
// itself.
func Resolve[T Actor](s *System, actorID id.ActorId) (result T, found bool, err error) {
	if local, ok := s.lookupLocal(actorID); ok {
		typed, ok := local.(T)
		if !ok {
			return result, false, &ErrResolveFailedToMatchActorType{ID: actorID, Expected: typeName[T]()}
		}
		return typed, true, nil
	}

	s.mu.Lock()
	onDemand := s.onDemand
	s.mu.Unlock()
	if onDemand == nil {
		return result, false, nil
	}

	actor, ok := onDemand(actorID)
	if !ok {
		return result, false, nil
	}
	if !actor.ActorID().IsLocal(s.Self) {
		return result, false, &ErrResolveFailed{ID: actorID}
	}
	typed, ok := actor.(T)
	if !ok {
		return result, false, &ErrResolveFailedToMatchActorType{ID: actorID, Expected: typeName[T]()}
	}
	return typed, true, nil
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// RemoteCall resolves target's home node, sends a Call envelope for
// invocationTarget, and blocks for the matching Reply, returning its
// encoded value for the caller to decode (spec.md §4.6 remoteCall).
func (s *System) RemoteCall(ctx context.Context, target id.ActorId, invocationTarget string, genericSubs []string, args [][]byte) ([]byte, error) {
	if target.Node == nil {
		return nil, &ErrMissingNodeID{ID: target}
	}

	rn, err := s.directory.WaitFor(ctx, *target.Node, s.opts.connectionTimeout)
	if err != nil {
		return nil, err
	}
	return rn.Call(ctx, target, invocationTarget, genericSubs, args)
}

// RemoteCallVoid is RemoteCall with the reply value discarded.
func (s *System) RemoteCallVoid(ctx context.Context, target id.ActorId, invocationTarget string, genericSubs []string, args [][]byte) error {
	_, err := s.RemoteCall(ctx, target, invocationTarget, genericSubs, args)
	return err
}

// DispatchCall implements cluster.Dispatcher: it resolves recipient to a
// local actor and invokes invocationTarget on it (spec.md §4.6 Inbound
// call dispatch). If no actor resolves, the call is dropped silently
// (step 1): no reply is sent and the caller's own timeout or
// cancellation will eventually surface it. Invocation errors are
// reported as an empty-value Reply, never with diagnostic content on the
// wire (spec.md §7 propagation policy): this method returns (nil, true,
// err) and RemoteNode sends the empty reply while logging err locally.
func (s *System) DispatchCall(ctx context.Context, from *cluster.RemoteNode, recipient id.ActorId, invocationTarget string, genericSubs []string, args [][]byte) ([]byte, bool, error) {
	actor, found, err := Resolve[Actor](s, recipient)
	if err != nil {
		log.Printf("nanoactor: resolve %s failed: %v", recipient, err)
		return nil, false, nil
	}
	if !found {
		log.Printf("nanoactor: dropping call to unknown recipient %s", recipient)
		return nil, false, nil
	}

	value, err := invoke(ctx, s.opts.argCodec, actor, invocationTarget, args)
	return value, true, err
}

// RunServer binds a ServerManager to addr and begins accepting
// connections. It returns once the listener is bound; the accept loop
// runs until ShutdownGracefully cancels it.
func (s *System) RunServer(addr cluster.ServerAddress) (*cluster.ServerManager, error) {
	sm := cluster.NewServerManager(s.Self, s.directory, s, s.opts.codec)
	sm.CheckOrigin = s.opts.checkOrigin
	if err := sm.Start(s.baseCtx, addr); err != nil {
		return nil, err
	}

	s.serversMu.Lock()
	s.servers = append(s.servers, sm)
	s.serversMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-sm.Done()
	}()

	return sm, nil
}

// ConnectClient starts a ClientManager dialing addr and supervises its
// resilient reconnect loop in the background. monitor, if non-nil,
// observes the manager's state transitions.
func (s *System) ConnectClient(addr cluster.ServerAddress, monitor func(cluster.State)) *cluster.ClientManager {
	cm := cluster.NewClientManager(s.Self, addr, s.directory, s, s.opts.codec)
	cm.Policy = s.opts.backoffPolicy
	cm.Monitor = monitor

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		cm.Run(s.baseCtx)
	}()

	return cm
}

// ShutdownGracefully cancels every manager this System started and
// blocks until all have observed cancellation (spec.md §4.6
// shutdownGracefully).
func (s *System) ShutdownGracefully() {
	s.cancel()
	s.wg.Wait()
}

// StartDiagnostics logs a periodic summary of local-actor and connected-
// peer counts using the cooperative scheduler (adapted from the
// teacher's agent.go heartbeat ticker, generalized from a per-connection
// liveness check to a process-wide diagnostic tick). It is optional and
// off by default.
func (s *System) StartDiagnostics(interval time.Duration) {
	scheduler.Repeat(func() {
		s.mu.Lock()
		actors := len(s.actors)
		s.mu.Unlock()
		log.Printf("nanoactor: node=%s actors=%d peers=%d", s.Self, actors, len(s.directory.Nodes()))
	}, interval)
}
