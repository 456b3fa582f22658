// Package audio converts between float sample blocks and the 16-bit PCM
// wire representation used by the live session, plus the base64 text form
// carried inside JSON envelopes.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// BytesPerSample is the size of one PCM16 sample.
	BytesPerSample = 2

	pcmScale = 32768.0
)

// ErrMisaligned is returned when a PCM payload does not hold a whole number
// of frames for the requested channel count.
var ErrMisaligned = errors.New("pcm payload is not frame aligned")

// EncodeSamples converts float samples to 16-bit signed little-endian PCM.
//
// Each sample is multiplied by 32768 and truncated toward zero. Values are not
// clamped: anything outside [-1.0, 1.0) wraps modulo 2^16, so exactly +1.0
// encodes as -32768. NaN and infinities encode as 0.
func EncodeSamples(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(toInt16(s)))
	}
	return out
}

func toInt16(s float32) int16 {
	v := float64(s) * pcmScale
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	// Truncate through int64 so the narrowing conversion wraps instead of
	// relying on implementation-defined float overflow.
	return int16(int64(v))
}

// BytesToText encodes arbitrary bytes as standard base64 text.
func BytesToText(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// TextToBytes is the exact inverse of BytesToText.
func TextToBytes(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return data, nil
}

// Buffer is a decoded block of planar float audio.
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// NewBuffer allocates a silent buffer.
func NewBuffer(sampleRate, channels, frames int) *Buffer {
	b := &Buffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for ch := range b.Channels {
		b.Channels[ch] = make([]float32, frames)
	}
	return b
}

// Frames returns the number of sample frames per channel.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Mono returns the buffer mixed down to a single channel.
func (b *Buffer) Mono() []float32 {
	switch {
	case b == nil || len(b.Channels) == 0:
		return nil
	case len(b.Channels) == 1:
		return b.Channels[0]
	}
	out := make([]float32, b.Frames())
	scale := 1 / float32(len(b.Channels))
	for _, ch := range b.Channels {
		for i, s := range ch {
			out[i] += s * scale
		}
	}
	return out
}

// DecodeToAudioBuffer reinterprets interleaved PCM16 little-endian bytes as a
// planar float buffer. The payload must contain a whole number of frames.
func DecodeToAudioBuffer(data []byte, sampleRate, channels int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	frameBytes := BytesPerSample * channels
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes for %d channel(s)", ErrMisaligned, len(data), channels)
	}

	frames := len(data) / frameBytes
	buf := NewBuffer(sampleRate, channels, frames)
	for ch := 0; ch < channels; ch++ {
		dst := buf.Channels[ch]
		for i := 0; i < frames; i++ {
			off := (i*channels + ch) * BytesPerSample
			sample := int16(binary.LittleEndian.Uint16(data[off:]))
			dst[i] = float32(sample) / pcmScale
		}
	}
	return buf, nil
}

// RMSLevel computes the root-mean-square level of a float sample block.
// Returns a value between 0.0 and 1.0 for in-range input.
func RMSLevel(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
