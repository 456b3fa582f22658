package device

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// Microphone captures mono float32 samples with malgo and implements
// live.AudioTrack.
type Microphone struct {
	*blockFanout
	rate   int
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	logger *slog.Logger

	closeOnce sync.Once
}

// OpenMicrophone starts capture at the given rate.
func OpenMicrophone(rate int, logger *slog.Logger) (*Microphone, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	m := &Microphone{blockFanout: newBlockFanout(), rate: rate, ctx: ctx, logger: logger}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(rate)
	cfg.PeriodSizeInMilliseconds = 20

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			m.Write(decodeF32(input))
		},
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("init microphone: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("start microphone: %w", err)
	}
	m.device = device
	return m, nil
}

// SampleRate implements live.AudioTrack.
func (m *Microphone) SampleRate() int { return m.rate }

// Close stops capture and releases the audio context.
func (m *Microphone) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.device != nil {
			_ = m.device.Stop()
			m.device.Uninit()
		}
		if m.ctx != nil {
			err = m.ctx.Uninit()
			m.ctx.Free()
		}
	})
	return err
}

func decodeF32(data []byte) []float32 {
	out := make([]float32, len(data)/bytesPerFloat)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*bytesPerFloat:]))
	}
	return out
}
