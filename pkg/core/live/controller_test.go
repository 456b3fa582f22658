package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vango-go/agriguard-live/pkg/core"
	"github.com/vango-go/agriguard-live/pkg/core/audio"
)

func TestController_OpenStartsProducersOnce(t *testing.T) {
	h := newHarness(t)
	h.mountAndStart(t)

	if got := h.c.State(); got != StateOpening {
		t.Fatalf("state=%v, want OPENING", got)
	}
	if got := h.c.Snapshot(); got.Live() {
		t.Fatalf("live indicator on before open")
	}

	h.transport.Handlers(0).OnOpen()
	if got := h.c.State(); got != StateActive {
		t.Fatalf("state=%v, want ACTIVE", got)
	}

	h.clock.Advance(3 * time.Second)

	conn := h.transport.Conn(0)
	images := conn.Sent("image")
	if len(images) != 3 {
		t.Fatalf("image chunks=%d, want 3", len(images))
	}
	for i, chunk := range images {
		if chunk.MIMEType != MIMETypeImage {
			t.Fatalf("image %d mime=%q", i, chunk.MIMEType)
		}
		if _, err := audio.TextToBytes(chunk.Data); err != nil {
			t.Fatalf("image %d data: %v", i, err)
		}
	}
	attached, _ := h.capture.track.Counts()
	if attached != 1 {
		t.Fatalf("audio attached %d times, want 1", attached)
	}
	if h.capture.track.blockSize != DefaultAudioBlockSize {
		t.Fatalf("block size=%d, want %d", h.capture.track.blockSize, DefaultAudioBlockSize)
	}
}

func TestController_SendsMicrophoneBlocksInOrder(t *testing.T) {
	h := newHarness(t)
	h.mountAndStart(t)
	h.transport.Handlers(0).OnOpen()

	h.capture.track.Emit([]float32{0.5, -0.5})
	h.capture.track.Emit([]float32{0.25})

	chunks := h.transport.Conn(0).Sent("audio")
	if len(chunks) != 2 {
		t.Fatalf("audio chunks=%d, want 2", len(chunks))
	}
	for _, chunk := range chunks {
		if chunk.MIMEType != "audio/pcm;rate=16000" {
			t.Fatalf("mime=%q", chunk.MIMEType)
		}
	}
	first, _ := audio.TextToBytes(chunks[0].Data)
	second, _ := audio.TextToBytes(chunks[1].Data)
	if len(first) != 4 || len(second) != 2 {
		t.Fatalf("payload sizes %d,%d, want 4,2", len(first), len(second))
	}
	if lvl := h.c.Snapshot().Level; lvl != 0.25 {
		t.Fatalf("level=%v, want 0.25", lvl)
	}
}

func TestController_ZeroWidthSurfaceSkipsFrames(t *testing.T) {
	h := newHarness(t)
	h.capture.video.w = 0
	h.mountAndStart(t)
	h.transport.Handlers(0).OnOpen()

	h.clock.Advance(5 * time.Second)

	if n := len(h.transport.Conn(0).Sent("image")); n != 0 {
		t.Fatalf("image chunks=%d, want 0", n)
	}
}

func TestController_SendsBeforeHandshakeAreFlushedInOrder(t *testing.T) {
	h := newHarness(t)
	h.transport.duringConnect = func(hs Handlers) {
		hs.OnOpen()
		h.clock.Advance(2 * time.Second)
		h.capture.track.Emit([]float32{0.1})
	}
	h.mountAndStart(t)

	sent := h.transport.Conn(0).Sent("")
	if len(sent) != 3 {
		t.Fatalf("flushed=%d, want 3", len(sent))
	}
	kinds := []string{sent[0].Kind(), sent[1].Kind(), sent[2].Kind()}
	if kinds[0] != "image" || kinds[1] != "image" || kinds[2] != "audio" {
		t.Fatalf("flush order=%v", kinds)
	}
}

func TestController_StopTwiceReleasesEverything(t *testing.T) {
	h := newHarness(t)
	h.mountAndStart(t)
	h.transport.Handlers(0).OnOpen()
	h.c.handleMessage(h.c.sess, audioEvent(0.5))

	h.c.Stop()
	h.c.Stop()

	if h.c.sess != nil {
		t.Fatalf("session still set after stop")
	}
	if got := h.c.State(); got != StateIdle {
		t.Fatalf("state=%v, want IDLE", got)
	}
	if n := h.clock.ActiveTimers(); n != 0 {
		t.Fatalf("frame timers still running: %d", n)
	}
	if _, detached := h.capture.track.Counts(); detached != 1 {
		t.Fatalf("detached=%d, want 1", detached)
	}
	if n := h.transport.Conn(0).Closed(); n != 1 {
		t.Fatalf("conn closed %d times, want 1", n)
	}
	out := h.output(0)
	if out.Closed() != 1 {
		t.Fatalf("output closed %d times, want 1", out.Closed())
	}
	if src := out.Sources()[0]; src.Stopped() != 1 {
		t.Fatalf("playing buffer stopped %d times, want 1", src.Stopped())
	}

	h.clock.Advance(3 * time.Second)
	h.capture.track.Emit([]float32{0.1})
	if n := len(h.transport.Conn(0).Sent("")); n != 0 {
		t.Fatalf("sends after stop: %d", n)
	}

	summaries := h.recorder.All()
	if len(summaries) != 1 || summaries[0].Reason != EndUserStop {
		t.Fatalf("summaries=%+v", summaries)
	}
	if summaries[0].BuffersScheduled != 1 || !summaries[0].Opened {
		t.Fatalf("summary=%+v", summaries[0])
	}
}

func TestController_InterruptedStopsScheduledBuffers(t *testing.T) {
	h := newHarness(t)
	h.mountAndStart(t)
	hs := h.transport.Handlers(0)
	hs.OnOpen()

	hs.OnMessage(audioEvent(1.0))
	hs.OnMessage(audioEvent(0.5))

	out := h.output(0)
	if n := len(out.Sources()); n != 2 {
		t.Fatalf("scheduled=%d, want 2", n)
	}
	if starts := []float64{out.Sources()[0].at, out.Sources()[1].at}; starts[0] != 0 || starts[1] != 1 {
		t.Fatalf("starts=%v, want [0 1]", starts)
	}

	hs.OnMessage(ServerEvent{Interrupted: true})

	for i, src := range out.Sources() {
		if src.Stopped() != 1 {
			t.Fatalf("source %d stopped %d times", i, src.Stopped())
		}
	}
	if n := h.c.sess.scheduler.LiveCount(); n != 0 {
		t.Fatalf("live set=%d, want 0", n)
	}
	if got := h.c.State(); got != StateActive {
		t.Fatalf("state=%v, interruption must not end the session", got)
	}
}

func TestController_MalformedAudioKeepsTranscript(t *testing.T) {
	h := newHarness(t)
	h.mountAndStart(t)
	hs := h.transport.Handlers(0)
	hs.OnOpen()

	text := "Your plant shows early blight."
	hs.OnMessage(ServerEvent{
		Audio:      &InlineData{MIMEType: "audio/pcm;rate=24000", Data: "%%%"},
		Transcript: &text,
	})
	odd := audio.BytesToText([]byte{1, 2, 3})
	hs.OnMessage(ServerEvent{Audio: &InlineData{MIMEType: "audio/pcm;rate=24000", Data: odd}})

	if n := len(h.output(0).Sources()); n != 0 {
		t.Fatalf("malformed audio scheduled %d buffers", n)
	}
	if got := h.c.Snapshot().Transcript; got != " "+text {
		t.Fatalf("transcript=%q", got)
	}
}

func TestController_TransportErrorEndsSession(t *testing.T) {
	h := newHarness(t)
	h.mountAndStart(t)
	hs := h.transport.Handlers(0)
	hs.OnOpen()

	hs.OnError(errors.New("socket reset"))

	snap := h.c.Snapshot()
	if snap.State != StateIdle || snap.Live() {
		t.Fatalf("snapshot=%+v", snap)
	}
	if snap.LastEnd != EndTransportError {
		t.Fatalf("last end=%q", snap.LastEnd)
	}
	if snap.AcquireErr != nil {
		t.Fatalf("transport failure must not surface as acquisition error")
	}
	summaries := h.recorder.All()
	if len(summaries) != 1 || summaries[0].Error == "" {
		t.Fatalf("summaries=%+v", summaries)
	}

	// A close after the error is a stale callback.
	hs.OnClose()
	if n := len(h.recorder.All()); n != 1 {
		t.Fatalf("recorded %d sessions, want 1", n)
	}
}

func TestController_StaleCallbacksIgnored(t *testing.T) {
	h := newHarness(t)
	h.mountAndStart(t)
	old := h.transport.Handlers(0)

	if err := h.c.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if h.transport.Conn(0).Closed() != 1 {
		t.Fatalf("previous connection not closed on restart")
	}

	old.OnOpen()
	if got := h.c.State(); got != StateOpening {
		t.Fatalf("stale open changed state to %v", got)
	}
	old.OnMessage(audioEvent(0.5))
	if n := len(h.output(1).Sources()); n != 0 {
		t.Fatalf("stale message scheduled %d buffers", n)
	}
	old.OnClose()
	if h.c.sess == nil {
		t.Fatalf("stale close ended the new session")
	}
	if attached, _ := h.capture.track.Counts(); attached != 0 {
		t.Fatalf("stale open attached audio")
	}
}

func TestController_DuplicateOpenIgnored(t *testing.T) {
	h := newHarness(t)
	h.mountAndStart(t)
	hs := h.transport.Handlers(0)
	hs.OnOpen()
	hs.OnOpen()

	if attached, _ := h.capture.track.Counts(); attached != 1 {
		t.Fatalf("attached=%d, want 1", attached)
	}
	if n := h.clock.ActiveTimers(); n != 1 {
		t.Fatalf("frame timers=%d, want 1", n)
	}
}

func TestController_OpenFailure(t *testing.T) {
	h := newHarness(t)
	h.transport.connectErr = errors.New("dial refused")
	h.mountAndStart(t)

	snap := h.c.Snapshot()
	if snap.State != StateIdle || snap.LastEnd != EndOpenFailed {
		t.Fatalf("snapshot=%+v", snap)
	}
	if h.output(0).Closed() != 1 {
		t.Fatalf("output not released after failed open")
	}
}

func TestController_AcquisitionFailureBlocksStart(t *testing.T) {
	h := newHarness(t)
	h.acquirer.err = errors.New("permission denied")

	err := h.c.Mount(context.Background())
	if !core.IsType(err, core.ErrAcquisition) {
		t.Fatalf("Mount err=%v, want acquisition error", err)
	}
	if snap := h.c.Snapshot(); snap.AcquireErr == nil || snap.Mounted {
		t.Fatalf("snapshot=%+v", snap)
	}
	if err := h.c.Start(context.Background()); !core.IsType(err, core.ErrAcquisition) {
		t.Fatalf("Start err=%v, want acquisition error", err)
	}
	if len(h.transport.cfgs) != 0 {
		t.Fatalf("transport dialed without capture")
	}
}

func TestController_StartRequiresMount(t *testing.T) {
	h := newHarness(t)
	if err := h.c.Start(context.Background()); !errors.Is(err, ErrNotMounted) {
		t.Fatalf("Start err=%v, want ErrNotMounted", err)
	}
}

func TestController_Toggle(t *testing.T) {
	h := newHarness(t)
	if err := h.c.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := h.c.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle on: %v", err)
	}
	if h.c.State() != StateOpening {
		t.Fatalf("state=%v after toggle on", h.c.State())
	}
	if err := h.c.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle off: %v", err)
	}
	if h.c.State() != StateIdle {
		t.Fatalf("state=%v after toggle off", h.c.State())
	}
	if len(h.transport.cfgs) != 1 {
		t.Fatalf("toggle off opened another session")
	}
}

func TestController_ConnectConfigUsesProfile(t *testing.T) {
	h := newHarness(t)
	h.c.SetProfile("kn", "Ravi")
	h.mountAndStart(t)

	cfg := h.transport.cfgs[0]
	if cfg.SystemInstruction != "instruction for Ravi in kn" {
		t.Fatalf("instruction=%q", cfg.SystemInstruction)
	}
	if cfg.Model != DefaultModel || cfg.Voice != DefaultVoice {
		t.Fatalf("model=%q voice=%q", cfg.Model, cfg.Voice)
	}
	if len(cfg.ResponseModalities) != 1 || cfg.ResponseModalities[0] != ModalityAudio || !cfg.OutputTranscription {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestController_UnmountEndsSessionAndReleasesCapture(t *testing.T) {
	h := newHarness(t)
	h.mountAndStart(t)
	h.transport.Handlers(0).OnOpen()

	if err := h.c.Unmount(); err != nil {
		t.Fatalf("Unmount: %v", err)
	}
	if h.capture.closed != 1 {
		t.Fatalf("capture closed %d times", h.capture.closed)
	}
	snap := h.c.Snapshot()
	if snap.Mounted || snap.State != StateIdle || snap.LastEnd != EndUnmount {
		t.Fatalf("snapshot=%+v", snap)
	}
	if err := h.c.Start(context.Background()); !errors.Is(err, ErrNotMounted) {
		t.Fatalf("Start after unmount err=%v", err)
	}
}

func TestController_UnmountDuringStartRejectsSession(t *testing.T) {
	h := newHarness(t)
	if err := h.c.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	h.c.instruction = func(language, userName string) (string, error) {
		if err := h.c.Unmount(); err != nil {
			t.Errorf("Unmount: %v", err)
		}
		return "instruction", nil
	}

	if err := h.c.Start(context.Background()); !errors.Is(err, ErrNotMounted) {
		t.Fatalf("Start err=%v, want ErrNotMounted", err)
	}
	if got := h.c.State(); got != StateIdle {
		t.Fatalf("state=%v, want IDLE", got)
	}
	if len(h.transport.cfgs) != 0 {
		t.Fatalf("transport dialed after unmount")
	}
	if h.output(0).Closed() != 1 {
		t.Fatalf("output not released")
	}
}

func TestController_OpenWithoutCaptureEndsSession(t *testing.T) {
	h := newHarness(t)
	h.mountAndStart(t)

	h.c.mu.Lock()
	h.c.capture = nil
	h.c.mu.Unlock()
	h.transport.Handlers(0).OnOpen()

	snap := h.c.Snapshot()
	if snap.State != StateIdle || snap.LastEnd != EndUnmount {
		t.Fatalf("snapshot=%+v", snap)
	}
	if attached, _ := h.capture.track.Counts(); attached != 0 {
		t.Fatalf("audio attached %d times", attached)
	}
	if h.transport.Conn(0).Closed() != 1 {
		t.Fatalf("transport not closed")
	}
}

func TestNewController_RequiresTransport(t *testing.T) {
	if _, err := NewController(Options{}); !core.IsType(err, core.ErrInvalidConfig) {
		t.Fatalf("err=%v", err)
	}
}
