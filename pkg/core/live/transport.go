package live

import "context"

// ConnectConfig describes the session requested from the remote service.
type ConnectConfig struct {
	Model               string
	SystemInstruction   string
	Voice               string
	ResponseModalities  []string
	OutputTranscription bool
}

// Handlers receive transport callbacks. They may be invoked from any
// goroutine, including before Connect returns. OnOpen fires at most once per
// connection.
type Handlers struct {
	OnOpen    func()
	OnMessage func(ServerEvent)
	OnError   func(error)
	OnClose   func()
}

// Conn is an open session.
type Conn interface {
	// Send queues a chunk for delivery without blocking on the network.
	Send(chunk MediaChunk) error
	// Close is best-effort and idempotent. It may be called from inside a
	// handler and must not wait for the receive loop to exit.
	Close() error
}

// Transport opens live sessions.
type Transport interface {
	Connect(ctx context.Context, cfg ConnectConfig, h Handlers) (Conn, error)
}
