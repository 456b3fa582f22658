package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/vango-go/agriguard-live/pkg/core/live"
)

// Speaker owns the process-wide oto context. Each live session gets its own
// player and mixer through NewOutput.
type Speaker struct {
	ctx  *oto.Context
	rate int
}

// NewSpeaker initializes the audio output. oto allows a single context per
// process, so call it once.
func NewSpeaker(rate int) (*Speaker, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		// ~100ms keeps interruption latency low.
		BufferSize: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready
	return &Speaker{ctx: ctx, rate: rate}, nil
}

// NewOutput creates a playback device for one session.
func (s *Speaker) NewOutput() (live.OutputDevice, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, fmt.Errorf("speaker unavailable: %w", err)
	}
	mixer := NewMixer(s.rate)
	player := s.ctx.NewPlayer(mixer)
	player.Play()
	return &speakerOutput{Mixer: mixer, player: player}, nil
}

type speakerOutput struct {
	*Mixer
	player    *oto.Player
	closeOnce sync.Once
	closeErr  error
}

func (o *speakerOutput) Close() error {
	o.closeOnce.Do(func() {
		_ = o.Mixer.Close()
		o.player.Pause()
		o.player.Reset()
		o.closeErr = o.player.Close()
	})
	return o.closeErr
}
