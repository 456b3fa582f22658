// Package gemini implements the live session transport for the Gemini Live
// API, either through the genai SDK or over a raw BidiGenerateContent
// websocket.
package gemini

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultWSURL is the Gemini API BidiGenerateContent endpoint.
	DefaultWSURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// MaxMessageSize bounds a single inbound websocket message (16MB).
	MaxMessageSize = 16 * 1024 * 1024

	defaultPingInterval     = 20 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	defaultHandshakeTimeout = 45 * time.Second
)

type options struct {
	logger           *slog.Logger
	pingInterval     time.Duration
	writeTimeout     time.Duration
	handshakeTimeout time.Duration
	dialer           *websocket.Dialer
}

func defaultOptions() options {
	return options{
		logger:           slog.Default(),
		pingInterval:     defaultPingInterval,
		writeTimeout:     defaultWriteTimeout,
		handshakeTimeout: defaultHandshakeTimeout,
	}
}

// Option configures a transport.
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPingInterval sets the websocket keepalive period. Zero disables pings.
// Ignored by the SDK transport.
func WithPingInterval(d time.Duration) Option {
	return func(o *options) {
		o.pingInterval = d
	}
}

// WithWriteTimeout bounds each websocket write. Default: 5s.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}
