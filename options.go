package nanoactor

import (
	"net/http"
	"time"

	"github.com/aclisp/nanoactor/internal/backoff"
	"github.com/aclisp/nanoactor/internal/log"
	"github.com/aclisp/nanoactor/wire"
)

// options collects System construction settings. Grounded on the
// teacher's cluster.Options + options.go functional-option pattern
// (WithPipeline, WithCheckOriginFunc, WithLogger, WithSerializer),
// narrowed to the settings this kernel actually needs.
type options struct {
	codec             wire.Codec
	argCodec          ArgCodec
	connectionTimeout time.Duration
	backoffPolicy     backoff.Policy
	checkOrigin       func(*http.Request) bool
	logger            log.Logger
}

func defaultOptions() options {
	return options{
		codec:             wire.JSONCodec{},
		argCodec:          jsonArgCodec{},
		connectionTimeout: 5 * time.Second,
		backoffPolicy:     backoff.DefaultPolicy,
	}
}

// Option configures a System at construction time.
type Option func(*options)

// WithCodec overrides the envelope wire codec. Defaults to wire.JSONCodec.
func WithCodec(codec wire.Codec) Option {
	return func(o *options) { o.codec = codec }
}

// WithArgCodec overrides how call arguments and reply values are
// (de)serialized. Defaults to JSON, mirroring the teacher's
// WithSerializer/env.Serializer.
func WithArgCodec(codec ArgCodec) Option {
	return func(o *options) { o.argCodec = codec }
}

// WithConnectionTimeout sets how long RemoteCall waits for a target node
// to appear in the directory before failing with
// *cluster.ErrTimeoutWaitingForNodeID.
func WithConnectionTimeout(d time.Duration) Option {
	return func(o *options) { o.connectionTimeout = d }
}

// WithReconnectPolicy overrides the exponential backoff schedule
// ClientManager uses between reconnect attempts.
func WithReconnectPolicy(p backoff.Policy) Option {
	return func(o *options) { o.backoffPolicy = p }
}

// WithCheckOrigin sets the function ServerManager's websocket.Upgrader
// uses to validate the Origin header. Defaults to accepting every
// origin, matching the teacher's default (cluster.NewOptions's
// CheckOrigin in the teacher's options.go).
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(o *options) { o.checkOrigin = fn }
}

// WithLogger overrides the logger used throughout nanoactor and its
// sub-packages.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
		log.SetLogger(l)
	}
}
