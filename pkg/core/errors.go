package core

import (
	"errors"
	"fmt"
)

// Error is a categorized failure raised by the live assistant pipeline.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Code != "" {
		msg = fmt.Sprintf("%s (code: %s)", msg, e.Code)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrAcquisition means the camera or microphone could not be opened.
	// It disables the whole capture view, not only live mode.
	ErrAcquisition ErrorType = "acquisition_error"
	// ErrTransport covers open and runtime failures of the live session transport.
	ErrTransport ErrorType = "transport_error"
	// ErrMalformedMessage marks an inbound field that could not be interpreted.
	ErrMalformedMessage ErrorType = "malformed_message"
	// ErrInvalidState is returned when an operation does not fit the controller state.
	ErrInvalidState ErrorType = "invalid_state"
	// ErrInvalidConfig is returned for unusable configuration.
	ErrInvalidConfig ErrorType = "invalid_config"
)

// NewAcquisitionError creates an acquisition error.
func NewAcquisitionError(message string, cause error) *Error {
	return &Error{Type: ErrAcquisition, Message: message, Cause: cause}
}

// NewTransportError creates a transport error.
func NewTransportError(message string, cause error) *Error {
	return &Error{Type: ErrTransport, Message: message, Cause: cause}
}

// NewMalformedMessageError creates an error for an unreadable inbound field.
func NewMalformedMessageError(field string, cause error) *Error {
	return &Error{Type: ErrMalformedMessage, Message: "malformed field " + field, Cause: cause}
}

// NewInvalidStateError creates an invalid state error.
func NewInvalidStateError(message string) *Error {
	return &Error{Type: ErrInvalidState, Message: message}
}

// NewInvalidConfigError creates an invalid configuration error for a named setting.
func NewInvalidConfigError(message, setting string) *Error {
	return &Error{Type: ErrInvalidConfig, Message: message, Code: setting}
}

// IsType reports whether err wraps a *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}
