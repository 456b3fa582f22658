package live

import (
	"mime"
	"strconv"
	"strings"
)

const (
	MIMETypeImage = "image/jpeg"
	MIMETypePCM   = "audio/pcm"
)

// MediaChunk is one unit of media sent to the remote model. Data is base64 text.
type MediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// IsAudio reports whether the chunk carries audio.
func (c MediaChunk) IsAudio() bool {
	return strings.HasPrefix(c.MIMEType, "audio/")
}

// Kind returns "audio" or "image" for metrics and logs.
func (c MediaChunk) Kind() string {
	if c.IsAudio() {
		return "audio"
	}
	return "image"
}

// InlineData is an inbound media payload.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ServerEvent is the part of a server message the controller consumes. Every
// field is optional and handled independently.
type ServerEvent struct {
	Audio        *InlineData `json:"audio,omitempty"`
	Transcript   *string     `json:"transcript,omitempty"`
	Interrupted  bool        `json:"interrupted,omitempty"`
	TurnComplete bool        `json:"turn_complete,omitempty"`
}

// PCMMIMEType formats the MIME type for raw PCM16 at the given rate.
func PCMMIMEType(rate int) string {
	return MIMETypePCM + ";rate=" + strconv.Itoa(rate)
}

// SampleRateFromMIME extracts the rate parameter of an audio/pcm MIME type,
// falling back to def when it is absent or unparsable.
func SampleRateFromMIME(mimeType string, def int) int {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return def
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return def
	}
	return rate
}
