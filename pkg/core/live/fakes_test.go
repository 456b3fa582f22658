package live

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vango-go/agriguard-live/pkg/core/audio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTimer struct {
	period  time.Duration
	next    time.Time
	fn      func()
	stopped bool
}

// fakeClock fires Every callbacks synchronously from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Every(period time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{period: period, next: c.now.Add(period), fn: fn}
	c.timers = append(c.timers, t)
	return func() {
		c.mu.Lock()
		t.stopped = true
		c.mu.Unlock()
	}
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var due *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.next.After(target) {
				continue
			}
			if due == nil || t.next.Before(due.next) {
				due = t
			}
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = due.next
		due.next = due.next.Add(due.period)
		fn := due.fn
		c.mu.Unlock()
		fn()
	}
}

func (c *fakeClock) ActiveTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type fakeSource struct {
	mu      sync.Mutex
	at      float64
	frames  int
	stopped int
	stopErr error
	onEnded func()
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return s.stopErr
}

func (s *fakeSource) Stopped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeOutput struct {
	mu       sync.Mutex
	now      float64
	sources  []*fakeSource
	closed   int
	startErr error
	stopErr  error
}

func (o *fakeOutput) CurrentTime() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *fakeOutput) SetTime(t float64) {
	o.mu.Lock()
	o.now = t
	o.mu.Unlock()
}

func (o *fakeOutput) Start(buf *audio.Buffer, at float64, onEnded func()) (PlaybackSource, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.startErr != nil {
		return nil, o.startErr
	}
	src := &fakeSource{at: at, frames: buf.Frames(), onEnded: onEnded, stopErr: o.stopErr}
	o.sources = append(o.sources, src)
	return src, nil
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
	return nil
}

func (o *fakeOutput) Sources() []*fakeSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeSource(nil), o.sources...)
}

func (o *fakeOutput) Closed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

type fakeConn struct {
	mu     sync.Mutex
	sent   []MediaChunk
	closed int
}

func (c *fakeConn) Send(chunk MediaChunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed > 0 {
		return errors.New("connection closed")
	}
	c.sent = append(c.sent, chunk)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeConn) Sent(kind string) []MediaChunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []MediaChunk
	for _, chunk := range c.sent {
		if kind == "" || chunk.Kind() == kind {
			out = append(out, chunk)
		}
	}
	return out
}

func (c *fakeConn) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeTransport struct {
	mu         sync.Mutex
	cfgs       []ConnectConfig
	handlers   []Handlers
	conns      []*fakeConn
	connectErr error
	// duringConnect runs inside Connect after the handlers are registered.
	duringConnect func(h Handlers)
}

func (t *fakeTransport) Connect(ctx context.Context, cfg ConnectConfig, h Handlers) (Conn, error) {
	t.mu.Lock()
	t.cfgs = append(t.cfgs, cfg)
	t.handlers = append(t.handlers, h)
	err := t.connectErr
	hook := t.duringConnect
	t.mu.Unlock()

	if hook != nil {
		hook(h)
	}
	if err != nil {
		return nil, err
	}
	conn := &fakeConn{}
	t.mu.Lock()
	t.conns = append(t.conns, conn)
	t.mu.Unlock()
	return conn, nil
}

func (t *fakeTransport) Handlers(i int) Handlers {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handlers[i]
}

func (t *fakeTransport) Conn(i int) *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[i]
}

type fakeVideo struct {
	mu   sync.Mutex
	w, h int
}

func (v *fakeVideo) Size() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.w, v.h
}

func (v *fakeVideo) Frame() (image.Image, error) {
	w, h := v.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{G: 160, A: 255})
		}
	}
	return img, nil
}

type fakeTrack struct {
	mu        sync.Mutex
	attached  int
	detached  int
	blockSize int
	fn        func([]float32)
}

func (a *fakeTrack) SampleRate() int { return DefaultInputRate }

func (a *fakeTrack) Attach(blockSize int, fn func([]float32)) (func(), error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attached++
	a.blockSize = blockSize
	a.fn = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			a.detached++
			a.fn = nil
			a.mu.Unlock()
		})
	}, nil
}

func (a *fakeTrack) Emit(samples []float32) {
	a.mu.Lock()
	fn := a.fn
	a.mu.Unlock()
	if fn != nil {
		fn(samples)
	}
}

func (a *fakeTrack) Counts() (attached, detached int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attached, a.detached
}

type fakeCapture struct {
	video  *fakeVideo
	track  *fakeTrack
	closed int
}

func (c *fakeCapture) Video() VideoSurface { return c.video }
func (c *fakeCapture) Audio() AudioTrack   { return c.track }
func (c *fakeCapture) Close() error {
	c.closed++
	return nil
}

type fakeAcquirer struct {
	src   *fakeCapture
	err   error
	calls int
}

func (a *fakeAcquirer) Acquire(context.Context) (CaptureSource, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.src, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	summaries []Summary
}

func (r *fakeRecorder) Record(_ context.Context, s Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
	return nil
}

func (r *fakeRecorder) All() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Summary(nil), r.summaries...)
}

type harness struct {
	c         *Controller
	clock     *fakeClock
	transport *fakeTransport
	capture   *fakeCapture
	acquirer  *fakeAcquirer
	recorder  *fakeRecorder

	mu      sync.Mutex
	outputs []*fakeOutput
	instr   [][2]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:     newFakeClock(),
		transport: &fakeTransport{},
		capture: &fakeCapture{
			video: &fakeVideo{w: 640, h: 480},
			track: &fakeTrack{},
		},
		recorder: &fakeRecorder{},
	}
	h.acquirer = &fakeAcquirer{src: h.capture}
	c, err := NewController(Options{
		Config:    Config{UserName: "Farmer"},
		Transport: h.transport,
		Acquirer:  h.acquirer,
		NewOutput: func() (OutputDevice, error) {
			out := &fakeOutput{}
			h.mu.Lock()
			h.outputs = append(h.outputs, out)
			h.mu.Unlock()
			return out, nil
		},
		Instruction: func(language, userName string) (string, error) {
			h.mu.Lock()
			h.instr = append(h.instr, [2]string{language, userName})
			h.mu.Unlock()
			return "instruction for " + userName + " in " + language, nil
		},
		Clock:    h.clock,
		Logger:   discardLogger(),
		Recorder: h.recorder,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	c.async = func(fn func()) { fn() }
	h.c = c
	return h
}

func (h *harness) output(i int) *fakeOutput {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outputs[i]
}

func (h *harness) mountAndStart(t *testing.T) {
	t.Helper()
	if err := h.c.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := h.c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func audioEvent(seconds float64) ServerEvent {
	samples := make([]float32, int(seconds*DefaultOutputRate))
	for i := range samples {
		samples[i] = 0.1
	}
	return ServerEvent{Audio: &InlineData{
		MIMEType: PCMMIMEType(DefaultOutputRate),
		Data:     audio.BytesToText(audio.EncodeSamples(samples)),
	}}
}
