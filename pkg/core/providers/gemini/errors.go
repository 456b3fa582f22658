package gemini

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/gorilla/websocket"
)

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrPermission     ErrorType = "permission_error"
	ErrAPI            ErrorType = "api_error"
	ErrOverloaded     ErrorType = "overloaded_error"
	ErrConnection     ErrorType = "connection_error"
)

// Error is a session failure reported by the Gemini Live service.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	CloseCode int       `json:"close_code,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.CloseCode != 0 {
		return fmt.Sprintf("gemini: %s: %s (close code: %d)", e.Type, e.Message, e.CloseCode)
	}
	return fmt.Sprintf("gemini: %s: %s", e.Type, e.Message)
}

// IsRetryable returns true if reopening the session may succeed.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrOverloaded, ErrAPI, ErrConnection:
		return true
	default:
		return false
	}
}

// classifyClose maps a read or write failure to an Error. ok is false for a
// clean close, which ends the session without an error.
func classifyClose(err error) (e *Error, ok bool) {
	if err == nil || errors.Is(err, io.EOF) {
		return nil, false
	}
	if errors.As(err, &e) {
		return e, true
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		switch ce.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			return nil, false
		case websocket.CloseInvalidFramePayloadData, websocket.CloseUnsupportedData:
			return &Error{Type: ErrInvalidRequest, Message: ce.Text, CloseCode: ce.Code}, true
		case websocket.ClosePolicyViolation:
			return &Error{Type: ErrPermission, Message: ce.Text, CloseCode: ce.Code}, true
		case websocket.CloseTryAgainLater, websocket.CloseServiceRestart:
			return &Error{Type: ErrOverloaded, Message: ce.Text, CloseCode: ce.Code}, true
		default:
			return &Error{Type: ErrAPI, Message: ce.Text, CloseCode: ce.Code}, true
		}
	}
	if errors.Is(err, net.ErrClosed) {
		return nil, false
	}
	return &Error{Type: ErrConnection, Message: err.Error()}, true
}
