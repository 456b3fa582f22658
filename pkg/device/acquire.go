package device

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vango-go/agriguard-live/pkg/core"
	"github.com/vango-go/agriguard-live/pkg/core/live"
)

// Acquirer opens the local camera and microphone.
type Acquirer struct {
	Camera CameraConfig
	// StillImage, when set, replaces the camera with a fixed image.
	StillImage string
	SampleRate int
	Logger     *slog.Logger
}

// Acquire implements live.Acquirer. Any failure is an acquisition error and
// nothing stays open.
func (a *Acquirer) Acquire(ctx context.Context) (live.CaptureSource, error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rate := a.SampleRate
	if rate <= 0 {
		rate = live.DefaultInputRate
	}

	var (
		video live.VideoSurface
		stop  func() error
	)
	if a.StillImage != "" {
		still, err := OpenStill(a.StillImage)
		if err != nil {
			return nil, core.NewAcquisitionError("camera unavailable", err)
		}
		video, stop = still, func() error { return nil }
	} else {
		cam, err := OpenCamera(ctx, a.Camera, logger)
		if err != nil {
			return nil, core.NewAcquisitionError("camera unavailable", err)
		}
		video, stop = cam, cam.Close
	}

	mic, err := OpenMicrophone(rate, logger)
	if err != nil {
		_ = stop()
		return nil, core.NewAcquisitionError("microphone unavailable", err)
	}
	logger.Info("capture acquired", "still", a.StillImage != "", "sample_rate", rate)
	return &captureSource{video: video, mic: mic, stopVideo: stop}, nil
}

type captureSource struct {
	video     live.VideoSurface
	mic       *Microphone
	stopVideo func() error
}

func (s *captureSource) Video() live.VideoSurface { return s.video }
func (s *captureSource) Audio() live.AudioTrack   { return s.mic }

func (s *captureSource) Close() error {
	return errors.Join(s.mic.Close(), s.stopVideo())
}
