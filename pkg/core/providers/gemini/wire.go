package gemini

import (
	"strings"

	"github.com/vango-go/agriguard-live/pkg/core/live"
)

// BidiGenerateContent JSON messages. Only the fields the assistant uses are
// modeled.

type clientSetupMessage struct {
	Setup clientSetup `json:"setup"`
}

type clientSetup struct {
	Model                    string           `json:"model"`
	GenerationConfig         generationConfig `json:"generationConfig"`
	SystemInstruction        *wireContent     `json:"systemInstruction,omitempty"`
	OutputAudioTranscription *struct{}        `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *wireBlob `json:"inlineData,omitempty"`
}

type wireBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type clientRealtimeMessage struct {
	RealtimeInput clientRealtimeInput `json:"realtimeInput"`
}

type clientRealtimeInput struct {
	Audio *wireBlob `json:"audio,omitempty"`
	Video *wireBlob `json:"video,omitempty"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
	GoAway        *goAway        `json:"goAway,omitempty"`
	Error         *serverError   `json:"error,omitempty"`
}

type serverContent struct {
	ModelTurn           *wireContent   `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text string `json:"text,omitempty"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

type serverError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

// modelResource prefixes bare model ids with "models/".
func modelResource(model string) string {
	if strings.HasPrefix(model, "models/") || strings.HasPrefix(model, "tunedModels/") {
		return model
	}
	return "models/" + model
}

func buildSetup(cfg live.ConnectConfig) clientSetupMessage {
	setup := clientSetup{
		Model: modelResource(cfg.Model),
		GenerationConfig: generationConfig{
			ResponseModalities: cfg.ResponseModalities,
		},
	}
	if cfg.Voice != "" {
		setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice}},
		}
	}
	if cfg.SystemInstruction != "" {
		setup.SystemInstruction = &wireContent{Parts: []wirePart{{Text: cfg.SystemInstruction}}}
	}
	if cfg.OutputTranscription {
		setup.OutputAudioTranscription = &struct{}{}
	}
	return clientSetupMessage{Setup: setup}
}

func buildRealtime(chunk live.MediaChunk) clientRealtimeMessage {
	blob := &wireBlob{MIMEType: chunk.MIMEType, Data: chunk.Data}
	if chunk.IsAudio() {
		return clientRealtimeMessage{RealtimeInput: clientRealtimeInput{Audio: blob}}
	}
	return clientRealtimeMessage{RealtimeInput: clientRealtimeInput{Video: blob}}
}

// toInbound extracts what the controller consumes. The first inline audio
// part of the model turn is used; other parts are ignored.
func (m *serverMessage) toInbound() inbound {
	in := inbound{setupComplete: m.SetupComplete != nil, goAway: m.GoAway != nil}
	sc := m.ServerContent
	if sc == nil {
		return in
	}
	ev := live.ServerEvent{Interrupted: sc.Interrupted, TurnComplete: sc.TurnComplete}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil && isAudioMIME(p.InlineData.MIMEType) {
				ev.Audio = &live.InlineData{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}
				break
			}
		}
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		text := sc.OutputTranscription.Text
		ev.Transcript = &text
	}
	in.event = &ev
	return in
}

func isAudioMIME(mimeType string) bool {
	return mimeType == "" || strings.HasPrefix(mimeType, "audio/")
}
