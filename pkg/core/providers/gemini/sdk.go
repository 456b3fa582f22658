package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/vango-go/agriguard-live/pkg/core/audio"
	"github.com/vango-go/agriguard-live/pkg/core/live"
)

// SDKTransport opens sessions through the genai client.
type SDKTransport struct {
	client *genai.Client
	opts   options
}

// NewSDKTransport creates a genai client for the Gemini API backend.
func NewSDKTransport(ctx context.Context, apiKey string, opts ...Option) (*SDKTransport, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &SDKTransport{client: client, opts: o}, nil
}

func liveConnectConfig(cfg live.ConnectConfig) *genai.LiveConnectConfig {
	out := &genai.LiveConnectConfig{}
	for _, m := range cfg.ResponseModalities {
		out.ResponseModalities = append(out.ResponseModalities, genai.Modality(m))
	}
	if cfg.SystemInstruction != "" {
		out.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstruction}}}
	}
	if cfg.Voice != "" {
		out.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.OutputTranscription {
		out.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	return out
}

func realtimeInput(chunk live.MediaChunk) (genai.LiveRealtimeInput, error) {
	data, err := audio.TextToBytes(chunk.Data)
	if err != nil {
		return genai.LiveRealtimeInput{}, fmt.Errorf("decode %s chunk: %w", chunk.Kind(), err)
	}
	blob := &genai.Blob{MIMEType: chunk.MIMEType, Data: data}
	if chunk.IsAudio() {
		return genai.LiveRealtimeInput{Audio: blob}, nil
	}
	return genai.LiveRealtimeInput{Video: blob}, nil
}

func fromServerMessage(msg *genai.LiveServerMessage) inbound {
	in := inbound{setupComplete: msg.SetupComplete != nil, goAway: msg.GoAway != nil}
	sc := msg.ServerContent
	if sc == nil {
		return in
	}
	ev := live.ServerEvent{Interrupted: sc.Interrupted, TurnComplete: sc.TurnComplete}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p != nil && p.InlineData != nil && isAudioMIME(p.InlineData.MIMEType) {
				ev.Audio = &live.InlineData{
					MIMEType: p.InlineData.MIMEType,
					Data:     audio.BytesToText(p.InlineData.Data),
				}
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

// Connect opens a session. The SDK sends setup during Connect; OnOpen fires
// when setupComplete arrives.
func (t *SDKTransport) Connect(ctx context.Context, cfg live.ConnectConfig, h live.Handlers) (live.Conn, error) {
	sess, err := t.client.Live.Connect(ctx, cfg.Model, liveConnectConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect gemini live: %w", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	c := newConn(cancel, h, sess.Close, t.opts.logger.With("component", "gemini_sdk"))
	c.startWriter(sctx, func(chunk live.MediaChunk) error {
		in, err := realtimeInput(chunk)
		if err != nil {
			c.logger.Debug("dropping undecodable chunk", "error", err)
			return nil
		}
		return sess.SendRealtimeInput(in)
	}, 0, nil)
	go c.readLoop(func() (inbound, error) {
		msg, err := sess.Receive()
		if err != nil {
			return inbound{}, err
		}
		return fromServerMessage(msg), nil
	})
	return c, nil
}
