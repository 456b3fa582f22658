package live

import (
	"context"
	"time"
)

// EndReason records why a session finished.
type EndReason string

const (
	EndUserStop        EndReason = "user_stop"
	EndTransportClosed EndReason = "transport_closed"
	EndTransportError  EndReason = "transport_error"
	EndOpenFailed      EndReason = "open_failed"
	EndUnmount         EndReason = "unmount"
)

// Summary describes a finished session.
type Summary struct {
	ID               string    `json:"id"`
	UserName         string    `json:"user_name"`
	Language         string    `json:"language"`
	Model            string    `json:"model"`
	StartedAt        time.Time `json:"started_at"`
	EndedAt          time.Time `json:"ended_at"`
	Opened           bool      `json:"opened"`
	Reason           EndReason `json:"reason"`
	Error            string    `json:"error,omitempty"`
	ImageChunks      int64     `json:"image_chunks"`
	AudioChunks      int64     `json:"audio_chunks"`
	BuffersScheduled int64     `json:"buffers_scheduled"`
	Interruptions    int64     `json:"interruptions"`
	Transcript       string    `json:"transcript,omitempty"`
}

// Duration returns the wall time the session lasted.
func (s Summary) Duration() time.Duration {
	if s.EndedAt.Before(s.StartedAt) {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Observer receives session telemetry. Calls must not block.
type Observer interface {
	SessionStarted(id string)
	SessionOpened(id string)
	SessionEnded(summary Summary)
	ChunkSent(kind string, bytes int)
	FrameSkipped()
	BufferScheduled(seconds float64)
	Interrupted(stopped int)
}

// Recorder persists summaries of finished sessions.
type Recorder interface {
	Record(ctx context.Context, summary Summary) error
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string)   {}
func (nopObserver) SessionOpened(string)    {}
func (nopObserver) SessionEnded(Summary)    {}
func (nopObserver) ChunkSent(string, int)   {}
func (nopObserver) FrameSkipped()           {}
func (nopObserver) BufferScheduled(float64) {}
func (nopObserver) Interrupted(int)         {}
