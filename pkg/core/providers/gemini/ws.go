package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/agriguard-live/pkg/core/live"
)

// WSTransport speaks the BidiGenerateContent JSON protocol over a websocket.
type WSTransport struct {
	url    string
	apiKey string
	opts   options
}

// NewWSTransport creates a websocket transport. An empty url selects DefaultWSURL.
func NewWSTransport(url, apiKey string, opts ...Option) *WSTransport {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if url == "" {
		url = DefaultWSURL
	}
	return &WSTransport{url: url, apiKey: apiKey, opts: o}
}

// Connect dials the endpoint and sends the setup message. OnOpen fires once
// the server answers with setupComplete.
func (t *WSTransport) Connect(ctx context.Context, cfg live.ConnectConfig, h live.Handlers) (live.Conn, error) {
	dialer := t.opts.dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: t.opts.handshakeTimeout,
		}
	}
	header := http.Header{}
	if t.apiKey != "" {
		header.Set("x-goog-api-key", t.apiKey)
	}

	ws, resp, err := dialer.DialContext(ctx, t.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial gemini live (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial gemini live: %w", err)
	}
	ws.SetReadLimit(MaxMessageSize)

	setup, err := json.Marshal(buildSetup(cfg))
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("marshal setup: %w", err)
	}
	_ = ws.SetWriteDeadline(time.Now().Add(t.opts.writeTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, setup); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("write setup: %w", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	logger := t.opts.logger.With("component", "gemini_ws")
	c := newConn(cancel, h, ws.Close, logger)

	writeTimeout := t.opts.writeTimeout
	write := func(chunk live.MediaChunk) error {
		data, err := json.Marshal(buildRealtime(chunk))
		if err != nil {
			return err
		}
		if err := ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
		return ws.WriteMessage(websocket.TextMessage, data)
	}
	ping := func() error {
		return ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout))
	}
	c.startWriter(sctx, write, t.opts.pingInterval, ping)

	go c.readLoop(func() (inbound, error) {
		// The service sends JSON in both text and binary frames.
		_, data, err := ws.ReadMessage()
		if err != nil {
			return inbound{}, err
		}
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("ignoring undecodable server message", "error", err)
			return inbound{}, nil
		}
		if msg.Error != nil {
			return inbound{}, &Error{Type: ErrAPI, Message: msg.Error.Message}
		}
		return msg.toInbound(), nil
	})
	return c, nil
}
