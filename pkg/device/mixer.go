package device

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"

	"github.com/vango-go/agriguard-live/pkg/core/audio"
	"github.com/vango-go/agriguard-live/pkg/core/live"
)

// ErrMixerClosed is returned by Start after Close.
var ErrMixerClosed = errors.New("mixer closed")

const bytesPerFloat = 4

// Mixer renders scheduled mono buffers into a float32 little-endian stream.
// Its clock is the number of frames rendered so far, so CurrentTime advances
// exactly as fast as the consumer pulls audio.
type Mixer struct {
	mu       sync.Mutex
	rate     int
	rendered int64
	sources  map[*mixSource]struct{}
	closed   bool
}

type mixSource struct {
	m       *Mixer
	start   int64
	samples []float32
	onEnded func()
	once    sync.Once
}

// NewMixer creates a mixer for the given output rate.
func NewMixer(rate int) *Mixer {
	return &Mixer{rate: rate, sources: make(map[*mixSource]struct{})}
}

// CurrentTime implements live.OutputDevice.
func (m *Mixer) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.rendered) / float64(m.rate)
}

// Start implements live.OutputDevice. Buffers at other rates are resampled
// linearly to the mixer rate.
func (m *Mixer) Start(buf *audio.Buffer, at float64, onEnded func()) (live.PlaybackSource, error) {
	samples := buf.Mono()
	if buf.SampleRate > 0 && buf.SampleRate != m.rate {
		samples = resample(samples, buf.SampleRate, m.rate)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrMixerClosed
	}
	start := int64(math.Round(at * float64(m.rate)))
	if start < m.rendered {
		start = m.rendered
	}
	src := &mixSource{m: m, start: start, samples: samples, onEnded: onEnded}
	m.sources[src] = struct{}{}
	return src, nil
}

// Stop removes the source; its ended callback runs on another goroutine.
func (s *mixSource) Stop() error {
	m := s.m
	m.mu.Lock()
	_, ok := m.sources[s]
	delete(m.sources, s)
	m.mu.Unlock()
	if ok {
		go s.ended()
	}
	return nil
}

func (s *mixSource) ended() {
	s.once.Do(func() {
		if s.onEnded != nil {
			s.onEnded()
		}
	})
}

// Read implements io.Reader for the audio backend.
func (m *Mixer) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerFloat
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, io.EOF
	}
	from := m.rendered
	to := from + int64(frames)

	mix := make([]float32, frames)
	var done []*mixSource
	for src := range m.sources {
		end := src.start + int64(len(src.samples))
		lo, hi := max(src.start, from), min(end, to)
		for f := lo; f < hi; f++ {
			mix[f-from] += src.samples[f-src.start]
		}
		if end <= to {
			delete(m.sources, src)
			done = append(done, src)
		}
	}
	m.rendered = to
	m.mu.Unlock()

	for i, s := range mix {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint32(p[i*bytesPerFloat:], math.Float32bits(s))
	}
	for _, src := range done {
		src.ended()
	}
	return frames * bytesPerFloat, nil
}

// Active returns the number of sources not yet finished.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sources)
}

// Close implements live.OutputDevice. Pending sources are dropped without
// callbacks and Read reports io.EOF.
func (m *Mixer) Close() error {
	m.mu.Lock()
	m.closed = true
	clear(m.sources)
	m.mu.Unlock()
	return nil
}

func resample(in []float32, from, to int) []float32 {
	if len(in) == 0 || from == to {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	out := make([]float32, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		frac := float32(pos - float64(j))
		a := in[j]
		b := a
		if j+1 < len(in) {
			b = in[j+1]
		}
		out[i] = a + (b-a)*frac
	}
	return out
}
