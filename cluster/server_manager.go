package cluster

import (
	"context"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/aclisp/nanoactor/id"
	"github.com/aclisp/nanoactor/internal/log"
	"github.com/aclisp/nanoactor/wire"
)

// ServerManager accepts inbound WebSocket connections, performs the
// node-id handshake on each, and installs the resulting RemoteNode into
// a Directory before handing it off to a Dispatcher (spec.md §4.5).
//
// Grounded on the teacher's Node.listenAndServeWS/setupWSHandler
// (cluster/node.go): an http.ServeMux carrying a single
// websocket.Upgrader route, generalized from the teacher's length-
// prefixed packet handler to the node-id handshake plus RemoteNode.Run.
type ServerManager struct {
	Self       id.NodeId
	Codec      wire.Codec
	Directory  *Directory
	Dispatcher Dispatcher

	// CheckOrigin is forwarded to websocket.Upgrader.CheckOrigin. Nil
	// accepts every origin, matching the teacher's default (Start
	// substitutes an accept-all check rather than gorilla's same-origin
	// default).
	CheckOrigin func(*http.Request) bool

	listener net.Listener
	done     chan struct{}
}

// NewServerManager constructs a ServerManager. codec defaults to
// wire.JSONCodec{} when nil.
func NewServerManager(self id.NodeId, directory *Directory, dispatcher Dispatcher, codec wire.Codec) *ServerManager {
	if codec == nil {
		codec = wire.JSONCodec{}
	}
	return &ServerManager{
		Self:       self,
		Codec:      codec,
		Directory:  directory,
		Dispatcher: dispatcher,
	}
}

// Start binds addr and begins accepting connections in the background.
// addr must name an Insecure scheme; a Secure scheme is rejected with
// ErrSecureServerNotSupported, per spec.md §4.5 — TLS termination is the
// job of an external reverse proxy. Passing port 0 lets the OS choose a
// free port; call Addr afterwards to observe it.
func (s *ServerManager) Start(ctx context.Context, addr ServerAddress) error {
	if addr.Scheme == Secure {
		return ErrSecureServerNotSupported
	}

	listener, err := net.Listen("tcp", addr.HostPort())
	if err != nil {
		return err
	}
	s.listener = listener
	s.done = make(chan struct{})

	checkOrigin := s.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	var upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(addr.path(), func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("nanoactor/cluster: upgrade failure from %s: %v", r.RemoteAddr, err)
			return
		}
		s.accept(ctx, conn)
	})

	server := &http.Server{Handler: mux}
	go func() {
		defer close(s.done)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("nanoactor/cluster: server on %s stopped: %v", addr.HostPort(), err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	return nil
}

// Addr reports the address Start bound to, useful when the caller asked
// for an ephemeral port (ServerAddress.Port == 0).
func (s *ServerManager) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Done returns a channel closed once the accept loop has fully stopped
// after Start's ctx is cancelled.
func (s *ServerManager) Done() <-chan struct{} {
	return s.done
}

func (s *ServerManager) accept(ctx context.Context, conn *websocket.Conn) {
	peer, err := handshake(conn, s.Self)
	if err != nil {
		log.Printf("nanoactor/cluster: node-id handshake failed: %v", err)
		_ = conn.Close()
		return
	}

	rn := NewRemoteNode(peer, conn, s.Codec, s.Dispatcher)
	s.Directory.Opened(rn)
	defer s.Directory.Closing(rn)

	_ = rn.Run(ctx)
}
