package live

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-go/agriguard-live/pkg/core/audio"
)

// ErrSchedulerClosed is returned by Schedule after TeardownAll.
var ErrSchedulerClosed = errors.New("playback scheduler closed")

// PlaybackSource is one started buffer on the output device.
type PlaybackSource interface {
	Stop() error
}

// OutputDevice plays buffers against its own clock, in seconds.
//
// onEnded must never be called synchronously from Start or from a source's
// Stop; it fires once the buffer has finished or been stopped.
type OutputDevice interface {
	CurrentTime() float64
	Start(buf *audio.Buffer, at float64, onEnded func()) (PlaybackSource, error)
	Close() error
}

// PlaybackBuffer is one decoded segment scheduled on the output device.
type PlaybackBuffer struct {
	Duration float64
	StartAt  float64

	source   PlaybackSource
	finished atomic.Bool
}

// Finished reports whether the buffer has ended or been stopped.
func (b *PlaybackBuffer) Finished() bool { return b.finished.Load() }

// Scheduler plays inbound buffers back to back. The cursor is the end time of
// the last scheduled buffer; a buffer never starts before it.
type Scheduler struct {
	mu     sync.Mutex
	out    OutputDevice
	cursor float64
	live   map[*PlaybackBuffer]struct{}
	closed bool

	logger *slog.Logger
}

// NewScheduler returns a scheduler playing on out with its cursor at zero.
func NewScheduler(out OutputDevice, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		out:    out,
		live:   make(map[*PlaybackBuffer]struct{}),
		logger: logger,
	}
}

// Schedule starts buf at max(cursor, now) and advances the cursor by its duration.
func (s *Scheduler) Schedule(buf *audio.Buffer) (*PlaybackBuffer, error) {
	if buf == nil {
		return nil, fmt.Errorf("schedule: nil buffer")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSchedulerClosed
	}

	startAt := s.out.CurrentTime()
	if s.cursor > startAt {
		startAt = s.cursor
	}
	pb := &PlaybackBuffer{Duration: buf.Duration(), StartAt: startAt}
	src, err := s.out.Start(buf, startAt, func() { s.ended(pb) })
	if err != nil {
		return nil, fmt.Errorf("start playback: %w", err)
	}
	pb.source = src
	s.cursor = startAt + pb.Duration
	s.live[pb] = struct{}{}
	return pb, nil
}

func (s *Scheduler) ended(pb *PlaybackBuffer) {
	pb.finished.Store(true)
	s.mu.Lock()
	delete(s.live, pb)
	s.mu.Unlock()
}

// Interrupt stops every live buffer and resets the cursor so the next buffer
// starts at the output clock's current time. It returns how many buffers were
// stopped.
func (s *Scheduler) Interrupt() int {
	s.mu.Lock()
	stopped := s.drainLocked()
	s.mu.Unlock()
	s.stopAll(stopped)
	return len(stopped)
}

// TeardownAll stops everything and closes the output device. Later calls are no-ops.
func (s *Scheduler) TeardownAll() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stopped := s.drainLocked()
	s.mu.Unlock()

	s.stopAll(stopped)
	return s.out.Close()
}

func (s *Scheduler) drainLocked() []*PlaybackBuffer {
	out := make([]*PlaybackBuffer, 0, len(s.live))
	for pb := range s.live {
		out = append(out, pb)
	}
	clear(s.live)
	s.cursor = 0
	return out
}

func (s *Scheduler) stopAll(buffers []*PlaybackBuffer) {
	for _, pb := range buffers {
		pb.finished.Store(true)
		if pb.source == nil {
			continue
		}
		if err := pb.source.Stop(); err != nil {
			s.logger.Debug("stop playback source", "error", err)
		}
	}
}

// LiveCount returns the number of scheduled buffers that have not ended.
func (s *Scheduler) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Cursor returns the end time of the last scheduled buffer, 0 after an interrupt.
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
