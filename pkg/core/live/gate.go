package live

import (
	"errors"
	"sync"
)

// ErrGateClosed is returned for sends after the session ended.
var ErrGateClosed = errors.New("send gate closed")

type sender interface {
	Send(chunk MediaChunk) error
}

// sendGate holds chunks sent before the connection is available and flushes
// them in order once it resolves. After that, sends pass straight through.
type sendGate struct {
	mu      sync.Mutex
	conn    sender
	pending []MediaChunk
	closed  bool
}

func (g *sendGate) Send(chunk MediaChunk) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrGateClosed
	}
	if g.conn == nil {
		g.pending = append(g.pending, chunk)
		return nil
	}
	return g.conn.Send(chunk)
}

// Resolve attaches the connection and flushes queued chunks as a unit.
func (g *sendGate) Resolve(conn sender) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrGateClosed
	}
	if g.conn != nil {
		return nil
	}
	g.conn = conn
	var errs []error
	for _, chunk := range g.pending {
		if err := conn.Send(chunk); err != nil {
			errs = append(errs, err)
		}
	}
	g.pending = nil
	return errors.Join(errs...)
}

// Close discards queued chunks and rejects later sends.
func (g *sendGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.conn = nil
	g.pending = nil
}

func (g *sendGate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}
