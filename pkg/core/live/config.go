package live

import "time"

const (
	// DefaultModel is the Gemini Live model with native audio output.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-12-2025"
	// DefaultVoice is the prebuilt synthesized voice.
	DefaultVoice = "Puck"

	DefaultFrameInterval   = time.Second
	DefaultFrameMaxWidth   = 480
	DefaultFrameQuality    = 60
	DefaultAudioBlockSize  = 4096
	DefaultInputRate       = 16000
	DefaultOutputRate      = 24000
	DefaultTranscriptLimit = 150

	// ModalityAudio requests synthesized speech responses.
	ModalityAudio = "AUDIO"
)

// State is the lifecycle state of the controller's current session.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateActive
	StateClosing
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateOpening:
		return "OPENING"
	case StateActive:
		return "ACTIVE"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Config holds the per-controller session settings.
type Config struct {
	// Model is the remote model identifier.
	Model string `json:"model"`

	// Voice is the prebuilt voice used for synthesized speech.
	Voice string `json:"voice"`

	// Language selects the reply language of the system instruction.
	Language string `json:"language"`

	// UserName is the display name the assistant addresses.
	UserName string `json:"user_name"`

	// FrameInterval is the still image cadence. Default: 1s.
	FrameInterval time.Duration `json:"frame_interval"`

	// FrameMaxWidth bounds the width of sent stills in pixels. Default: 480.
	FrameMaxWidth int `json:"frame_max_width"`

	// FrameQuality is the JPEG quality (1-100). Default: 60.
	FrameQuality int `json:"frame_quality"`

	// AudioBlockSize is the number of samples per outbound audio chunk. Default: 4096.
	AudioBlockSize int `json:"audio_block_size"`

	// InputSampleRate is the microphone rate in Hz. Default: 16000.
	InputSampleRate int `json:"input_sample_rate"`

	// OutputSampleRate is assumed for inbound audio without a rate parameter. Default: 24000.
	OutputSampleRate int `json:"output_sample_rate"`

	// TranscriptLimit is the rolling transcript length in characters. Default: 150.
	TranscriptLimit int `json:"transcript_limit"`
}

// DefaultConfig returns the settings used by the assistant.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = DefaultFrameInterval
	}
	if c.FrameMaxWidth <= 0 {
		c.FrameMaxWidth = DefaultFrameMaxWidth
	}
	if c.FrameQuality <= 0 || c.FrameQuality > 100 {
		c.FrameQuality = DefaultFrameQuality
	}
	if c.AudioBlockSize <= 0 {
		c.AudioBlockSize = DefaultAudioBlockSize
	}
	if c.InputSampleRate <= 0 {
		c.InputSampleRate = DefaultInputRate
	}
	if c.OutputSampleRate <= 0 {
		c.OutputSampleRate = DefaultOutputRate
	}
	if c.TranscriptLimit <= 0 {
		c.TranscriptLimit = DefaultTranscriptLimit
	}
	return c
}
