package gemini

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vango-go/agriguard-live/pkg/core/live"
)

var errOutboxClosed = errors.New("gemini: session closed")

// outbox decouples Conn.Send from the socket. Audio chunks form a FIFO that is
// always written first; image chunks share one slot where a newer still
// replaces one that has not been written yet.
type outbox struct {
	mu       sync.Mutex
	audio    []live.MediaChunk
	image    *live.MediaChunk
	replaced int
	closed   bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newOutbox() *outbox {
	return &outbox{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Push never blocks.
func (o *outbox) Push(chunk live.MediaChunk) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return errOutboxClosed
	}
	if chunk.IsAudio() {
		o.audio = append(o.audio, chunk)
	} else {
		if o.image != nil {
			o.replaced++
		}
		o.image = &chunk
	}
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

func (o *outbox) next() (live.MediaChunk, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.audio) > 0 {
		chunk := o.audio[0]
		o.audio[0] = live.MediaChunk{}
		o.audio = o.audio[1:]
		return chunk, true
	}
	if o.image != nil {
		chunk := *o.image
		o.image = nil
		return chunk, true
	}
	return live.MediaChunk{}, false
}

// Replaced returns how many stills were superseded before being written.
func (o *outbox) Replaced() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.replaced
}

func (o *outbox) Close() {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.audio = nil
		o.image = nil
		o.mu.Unlock()
		close(o.done)
	})
}

// Run writes queued chunks until the outbox is closed, ctx ends or a write
// fails. ping is called every pingInterval when both are set.
func (o *outbox) Run(ctx context.Context, write func(live.MediaChunk) error, pingInterval time.Duration, ping func() error) error {
	var pingC <-chan time.Time
	if ping != nil && pingInterval > 0 {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		pingC = ticker.C
	}

	for {
		for {
			select {
			case <-o.done:
				return nil
			default:
			}
			chunk, ok := o.next()
			if !ok {
				break
			}
			if err := write(chunk); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-o.done:
			return nil
		case <-o.wake:
		case <-pingC:
			if err := ping(); err != nil {
				return err
			}
		}
	}
}
