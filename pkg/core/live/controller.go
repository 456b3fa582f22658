package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vango-go/agriguard-live/pkg/core"
	"github.com/vango-go/agriguard-live/pkg/core/audio"
)

// ErrNotMounted is returned by Start before the capture source is acquired.
var ErrNotMounted = errors.New("capture source not mounted")

const recordTimeout = 5 * time.Second

// InstructionFunc builds the system instruction for a language and display name.
type InstructionFunc func(language, userName string) (string, error)

// Options configures a Controller. Transport and NewOutput are required.
type Options struct {
	Config    Config
	Transport Transport
	Acquirer  Acquirer
	// NewOutput creates the playback device for one session.
	NewOutput   func() (OutputDevice, error)
	Instruction InstructionFunc
	Clock       Clock
	Logger      *slog.Logger
	Observer    Observer
	Recorder    Recorder
}

// Snapshot is a point-in-time view of the controller for the UI.
type Snapshot struct {
	State      State
	SessionID  string
	Transcript string
	// Level is the RMS of the last microphone block sent.
	Level      float64
	Mounted    bool
	AcquireErr error
	LastEnd    EndReason
}

// Live reports whether the live indicator should be on.
func (s Snapshot) Live() bool {
	return s.State == StateActive
}

// session is the per-Start state. Its fields other than the counters and
// the immutable ones are guarded by Controller.mu.
type session struct {
	id        string
	startedAt time.Time
	cfg       Config
	logger    *slog.Logger

	gate       *sendGate
	scheduler  *Scheduler
	transcript *transcript
	cancel     context.CancelFunc

	conn        Conn
	stopFrames  func()
	detachAudio func()
	opened      bool
	done        bool

	images        atomic.Int64
	audioChunks   atomic.Int64
	buffers       atomic.Int64
	interruptions atomic.Int64
}

// Controller owns the capture source and at most one live session.
type Controller struct {
	transport   Transport
	acquirer    Acquirer
	newOutput   func() (OutputDevice, error)
	instruction InstructionFunc
	clock       Clock
	logger      *slog.Logger
	observer    Observer
	recorder    Recorder

	// async runs the transport connect; tests replace it to run inline.
	async func(func())

	mu         sync.Mutex
	cfg        Config
	capture    CaptureSource
	acquireErr error
	sess       *session
	state      State
	level      float64
	lastEnd    EndReason

	changed chan struct{}
}

// NewController creates a controller in the Idle state.
func NewController(opts Options) (*Controller, error) {
	if opts.Transport == nil {
		return nil, core.NewInvalidConfigError("live transport is required", "LIVE_TRANSPORT")
	}
	if opts.NewOutput == nil {
		return nil, core.NewInvalidConfigError("audio output factory is required", "output")
	}
	c := &Controller{
		transport:   opts.Transport,
		acquirer:    opts.Acquirer,
		newOutput:   opts.NewOutput,
		instruction: opts.Instruction,
		clock:       opts.Clock,
		logger:      opts.Logger,
		observer:    opts.Observer,
		recorder:    opts.Recorder,
		cfg:         opts.Config.withDefaults(),
		state:       StateIdle,
		changed:     make(chan struct{}, 1),
		async:       func(fn func()) { go fn() },
	}
	if c.instruction == nil {
		c.instruction = func(string, string) (string, error) { return "", nil }
	}
	if c.clock == nil {
		c.clock = SystemClock()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "live")
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	return c, nil
}

// Changed is signalled whenever the snapshot may have changed. Signals coalesce.
func (c *Controller) Changed() <-chan struct{} {
	return c.changed
}

func (c *Controller) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current view of the controller.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:      c.state,
		Level:      c.level,
		Mounted:    c.capture != nil,
		AcquireErr: c.acquireErr,
		LastEnd:    c.lastEnd,
	}
	if c.sess != nil {
		snap.SessionID = c.sess.id
		snap.Transcript = c.sess.transcript.String()
	}
	return snap
}

// SetProfile changes the language and display name used by the next session.
func (c *Controller) SetProfile(language, userName string) {
	c.mu.Lock()
	if language != "" {
		c.cfg.Language = language
	}
	c.cfg.UserName = userName
	c.mu.Unlock()
}

// Mount acquires the capture source. It is a no-op when already mounted.
// A failure is kept and reported by Snapshot until a later Mount succeeds.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.capture != nil {
		c.mu.Unlock()
		return nil
	}
	acquirer := c.acquirer
	c.mu.Unlock()

	if acquirer == nil {
		return c.setAcquireResult(nil, core.NewAcquisitionError("no capture device configured", nil))
	}
	src, err := acquirer.Acquire(ctx)
	if err != nil {
		if !core.IsType(err, core.ErrAcquisition) {
			err = core.NewAcquisitionError("camera access denied", err)
		}
		return c.setAcquireResult(nil, err)
	}
	return c.setAcquireResult(src, nil)
}

func (c *Controller) setAcquireResult(src CaptureSource, err error) error {
	c.mu.Lock()
	if src != nil && c.capture != nil {
		// Lost a race with a concurrent Mount.
		c.mu.Unlock()
		_ = src.Close()
		return nil
	}
	c.capture = src
	c.acquireErr = err
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn("capture acquisition failed", "error", err)
	}
	c.notify()
	return err
}

// Unmount ends any session and releases the capture source.
func (c *Controller) Unmount() error {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s != nil {
		c.finish(s, EndUnmount, nil)
	}

	c.mu.Lock()
	src := c.capture
	c.capture = nil
	c.mu.Unlock()
	c.notify()
	if src == nil {
		return nil
	}
	return src.Close()
}

// Toggle stops the running session or starts a new one.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	running := c.sess != nil
	c.mu.Unlock()
	if running {
		c.Stop()
		return nil
	}
	return c.Start(ctx)
}

// Stop ends the current session. It is safe to call at any time.
func (c *Controller) Stop() {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s != nil {
		c.finish(s, EndUserStop, nil)
	}
}

// Start tears down any previous session and opens a new one. It returns once
// the session is Opening; the connection completes in the background. ctx
// bounds the lifetime of the session.
func (c *Controller) Start(ctx context.Context) error {
	c.Stop()

	c.mu.Lock()
	capture, acquireErr, cfg := c.capture, c.acquireErr, c.cfg
	c.mu.Unlock()
	if capture == nil {
		if acquireErr != nil {
			return acquireErr
		}
		return ErrNotMounted
	}

	instruction, err := c.instruction(cfg.Language, cfg.UserName)
	if err != nil {
		return fmt.Errorf("build system instruction: %w", err)
	}
	out, err := c.newOutput()
	if err != nil {
		return fmt.Errorf("open audio output: %w", err)
	}

	id := uuid.NewString()
	logger := c.logger.With("session_id", id)
	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		id:         id,
		startedAt:  c.clock.Now(),
		cfg:        cfg,
		logger:     logger,
		gate:       &sendGate{},
		scheduler:  NewScheduler(out, logger),
		transcript: newTranscript(cfg.TranscriptLimit),
		cancel:     cancel,
	}

	c.mu.Lock()
	if c.capture == nil {
		c.mu.Unlock()
		cancel()
		_ = s.scheduler.TeardownAll()
		return ErrNotMounted
	}
	if c.sess != nil {
		c.mu.Unlock()
		cancel()
		_ = s.scheduler.TeardownAll()
		return core.NewInvalidStateError("another session started concurrently")
	}
	c.sess = s
	c.state = StateOpening
	c.mu.Unlock()
	c.notify()

	logger.Info("live session opening", "model", cfg.Model, "voice", cfg.Voice, "language", cfg.Language)
	c.observer.SessionStarted(id)

	cc := ConnectConfig{
		Model:               cfg.Model,
		SystemInstruction:   instruction,
		Voice:               cfg.Voice,
		ResponseModalities:  []string{ModalityAudio},
		OutputTranscription: true,
	}
	c.async(func() { c.connect(sctx, s, cc) })
	return nil
}

func (c *Controller) connect(ctx context.Context, s *session, cc ConnectConfig) {
	conn, err := c.transport.Connect(ctx, cc, Handlers{
		OnOpen:    func() { c.handleOpen(s) },
		OnMessage: func(ev ServerEvent) { c.handleMessage(s, ev) },
		OnError:   func(err error) { c.finish(s, EndTransportError, err) },
		OnClose:   func() { c.finish(s, EndTransportClosed, nil) },
	})
	if err != nil {
		c.finish(s, EndOpenFailed, core.NewTransportError("open live session", err))
		return
	}

	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	c.mu.Unlock()

	if err := s.gate.Resolve(conn); err != nil && !errors.Is(err, ErrGateClosed) {
		s.logger.Debug("flush queued chunks", "error", err)
	}
}

func (c *Controller) handleOpen(s *session) {
	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return
	}
	if s.opened {
		c.mu.Unlock()
		s.logger.Warn("ignoring duplicate open callback")
		return
	}
	capture := c.capture
	if capture == nil {
		c.mu.Unlock()
		c.finish(s, EndUnmount, ErrNotMounted)
		return
	}
	s.opened = true
	c.state = StateActive
	c.mu.Unlock()
	c.notify()

	s.logger.Info("live session active")
	c.observer.SessionOpened(s.id)

	sampler := frameSampler{
		surface:  capture.Video(),
		maxWidth: s.cfg.FrameMaxWidth,
		quality:  s.cfg.FrameQuality,
	}
	stopFrames := c.clock.Every(s.cfg.FrameInterval, func() { c.sampleFrame(s, sampler) })

	detach, err := capture.Audio().Attach(s.cfg.AudioBlockSize, func(samples []float32) {
		c.sendAudio(s, samples)
	})
	if err != nil {
		s.logger.Warn("attach microphone", "error", err)
		detach = nil
	}

	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		stopFrames()
		if detach != nil {
			detach()
		}
		return
	}
	s.stopFrames = stopFrames
	s.detachAudio = detach
	c.mu.Unlock()
}

func (c *Controller) sampleFrame(s *session, sampler frameSampler) {
	chunk, ok, err := sampler.Sample()
	if err != nil {
		s.logger.Debug("sample frame", "error", err)
	}
	if !ok {
		c.observer.FrameSkipped()
		return
	}
	if err := s.gate.Send(chunk); err != nil {
		return
	}
	s.images.Add(1)
	c.observer.ChunkSent(chunk.Kind(), len(chunk.Data))
}

func (c *Controller) sendAudio(s *session, samples []float32) {
	level := audio.RMSLevel(samples)
	chunk := MediaChunk{
		MIMEType: PCMMIMEType(s.cfg.InputSampleRate),
		Data:     audio.BytesToText(audio.EncodeSamples(samples)),
	}
	if err := s.gate.Send(chunk); err != nil {
		return
	}
	s.audioChunks.Add(1)
	c.observer.ChunkSent(chunk.Kind(), len(chunk.Data))

	c.mu.Lock()
	if c.sess == s {
		c.level = level
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) handleMessage(s *session, ev ServerEvent) {
	c.mu.Lock()
	current := c.sess == s
	c.mu.Unlock()
	if !current {
		return
	}

	if ev.Audio != nil {
		if err := c.playAudio(s, ev.Audio); err != nil {
			s.logger.Debug("ignoring inbound audio", "error", core.NewMalformedMessageError("audio", err))
		}
	}
	if ev.Transcript != nil && *ev.Transcript != "" {
		s.transcript.Append(*ev.Transcript)
		c.notify()
	}
	if ev.Interrupted {
		n := s.scheduler.Interrupt()
		s.interruptions.Add(1)
		c.observer.Interrupted(n)
		s.logger.Debug("playback interrupted", "stopped", n)
	}
}

func (c *Controller) playAudio(s *session, in *InlineData) error {
	data, err := audio.TextToBytes(in.Data)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	rate := SampleRateFromMIME(in.MIMEType, s.cfg.OutputSampleRate)
	buf, err := audio.DecodeToAudioBuffer(data, rate, 1)
	if err != nil {
		return err
	}
	pb, err := s.scheduler.Schedule(buf)
	if errors.Is(err, ErrSchedulerClosed) {
		return nil
	}
	if err != nil {
		return err
	}
	s.buffers.Add(1)
	c.observer.BufferScheduled(pb.Duration)
	return nil
}

// finish tears a session down once. Calls for a session that is no longer
// current are ignored.
func (c *Controller) finish(s *session, reason EndReason, cause error) {
	c.mu.Lock()
	if c.sess != s || s.done {
		c.mu.Unlock()
		return
	}
	s.done = true
	c.sess = nil
	c.state = StateClosing
	conn, stopFrames, detach := s.conn, s.stopFrames, s.detachAudio
	s.conn, s.stopFrames, s.detachAudio = nil, nil, nil
	opened := s.opened
	c.mu.Unlock()
	c.notify()

	if stopFrames != nil {
		stopFrames()
	}
	if detach != nil {
		detach()
	}
	s.gate.Close()
	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Debug("close transport", "error", err)
		}
	}
	s.cancel()
	if err := s.scheduler.TeardownAll(); err != nil {
		s.logger.Debug("close audio output", "error", err)
	}
	tail := s.transcript.String()
	s.transcript.Reset()

	c.mu.Lock()
	if c.sess == nil {
		c.state = StateIdle
		c.level = 0
	}
	c.lastEnd = reason
	c.mu.Unlock()
	c.notify()

	summary := Summary{
		ID:               s.id,
		UserName:         s.cfg.UserName,
		Language:         s.cfg.Language,
		Model:            s.cfg.Model,
		StartedAt:        s.startedAt,
		EndedAt:          c.clock.Now(),
		Opened:           opened,
		Reason:           reason,
		ImageChunks:      s.images.Load(),
		AudioChunks:      s.audioChunks.Load(),
		BuffersScheduled: s.buffers.Load(),
		Interruptions:    s.interruptions.Load(),
		Transcript:       tail,
	}
	if cause != nil {
		summary.Error = cause.Error()
		s.logger.Warn("live session ended", "reason", reason, "error", cause)
	} else {
		s.logger.Info("live session ended", "reason", reason)
	}
	c.observer.SessionEnded(summary)

	if c.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := c.recorder.Record(ctx, summary); err != nil {
			s.logger.Warn("record session", "error", err)
		}
	}
}
