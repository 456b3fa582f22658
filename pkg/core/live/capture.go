package live

import (
	"context"
	"image"
)

// VideoSurface is a live camera frame source.
type VideoSurface interface {
	// Size returns the intrinsic frame size, zero while the stream is not ready.
	Size() (width, height int)
	// Frame returns the most recent frame.
	Frame() (image.Image, error)
}

// AudioTrack is a live microphone sample stream.
type AudioTrack interface {
	SampleRate() int
	// Attach delivers mono float samples in blocks of blockSize until the
	// returned detach func is called.
	Attach(blockSize int, fn func(samples []float32)) (detach func(), err error)
}

// CaptureSource is a permissioned camera and microphone pair.
type CaptureSource interface {
	Video() VideoSurface
	Audio() AudioTrack
	Close() error
}

// Acquirer obtains the capture source. A denial is reported as an error.
type Acquirer interface {
	Acquire(ctx context.Context) (CaptureSource, error)
}
