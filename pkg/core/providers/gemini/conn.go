package gemini

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-go/agriguard-live/pkg/core/live"
)

// inbound is one decoded server message.
type inbound struct {
	setupComplete bool
	goAway        bool
	event         *live.ServerEvent
}

// conn is the transport-independent half of a live session: a non-blocking
// outbox drained by a writer goroutine and a read loop that dispatches
// handlers. Exactly one terminal handler (OnError or OnClose) fires, and none
// after Close.
type conn struct {
	h      live.Handlers
	box    *outbox
	logger *slog.Logger
	cancel context.CancelFunc

	closeFn   func() error
	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool

	opened  atomic.Bool
	endOnce sync.Once
}

func newConn(cancel context.CancelFunc, h live.Handlers, closeFn func() error, logger *slog.Logger) *conn {
	return &conn{
		h:       h,
		box:     newOutbox(),
		logger:  logger,
		cancel:  cancel,
		closeFn: closeFn,
	}
}

// Send implements live.Conn.
func (c *conn) Send(chunk live.MediaChunk) error {
	return c.box.Push(chunk)
}

// Close implements live.Conn. It does not wait for the read loop.
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.box.Close()
		if c.cancel != nil {
			c.cancel()
		}
		if c.closeFn != nil {
			c.closeErr = c.closeFn()
		}
		if n := c.box.Replaced(); n > 0 {
			c.logger.Debug("stills superseded before send", "count", n)
		}
	})
	return c.closeErr
}

func (c *conn) startWriter(ctx context.Context, write func(live.MediaChunk) error, pingInterval time.Duration, ping func() error) {
	go func() {
		if err := c.box.Run(ctx, write, pingInterval, ping); err != nil {
			c.terminate(err)
		}
	}()
}

func (c *conn) readLoop(recv func() (inbound, error)) {
	for {
		in, err := recv()
		if err != nil {
			c.terminate(err)
			return
		}
		if in.setupComplete && c.opened.CompareAndSwap(false, true) {
			c.logger.Debug("setup complete")
			if c.h.OnOpen != nil {
				c.h.OnOpen()
			}
		}
		if in.goAway {
			c.logger.Info("server requested disconnect")
		}
		if in.event != nil && c.h.OnMessage != nil && !c.closed.Load() {
			c.h.OnMessage(*in.event)
		}
	}
}

// terminate tears the session down after a read or write failure and reports
// it, unless the session was closed locally.
func (c *conn) terminate(err error) {
	if c.closed.Load() {
		return
	}
	_ = c.Close()
	c.endOnce.Do(func() {
		gerr, failed := classifyClose(err)
		if !failed {
			c.logger.Debug("session closed by server")
			if c.h.OnClose != nil {
				c.h.OnClose()
			}
			return
		}
		c.logger.Debug("session failed", "error", gerr, "retryable", gerr.IsRetryable())
		if c.h.OnError != nil {
			c.h.OnError(gerr)
		}
	})
}
