package cluster

import "fmt"

// Scheme names the transport scheme of a ServerAddress (spec.md §6).
type Scheme string

const (
	// Insecure is a plain ws:// WebSocket connection. It is the only
	// scheme ServerManager.Start will bind; secure deployments front an
	// insecure bind with an external reverse proxy (spec.md §4.5).
	Insecure Scheme = "insecure"
	// Secure is a wss:// WebSocket connection. Only ClientManager may
	// dial it; ServerManager rejects it with ErrSecureServerNotSupported.
	Secure Scheme = "secure"
)

// ServerAddress names a WebSocket endpoint.
type ServerAddress struct {
	Scheme Scheme
	Host   string
	Port   int
	// Path is the HTTP path the WebSocket upgrade is served on, e.g.
	// "/nanoactor". Defaults to "/" when empty.
	Path string
}

func (a ServerAddress) path() string {
	if a.Path == "" {
		return "/"
	}
	if a.Path[0] != '/' {
		return "/" + a.Path
	}
	return a.Path
}

// URL renders the ws:// or wss:// URL a client dials.
func (a ServerAddress) URL() string {
	scheme := "ws"
	if a.Scheme == Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, a.Host, a.Port, a.path())
}

// HostPort renders "host:port", the form net.Listen expects.
func (a ServerAddress) HostPort() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}
