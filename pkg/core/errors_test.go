package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{
		Type:    ErrInvalidState,
		Message: "controller is not mounted",
	}

	expected := "invalid_state: controller is not mounted"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestError_WithCodeAndCause(t *testing.T) {
	err := &Error{
		Type:    ErrInvalidConfig,
		Message: "missing api key",
		Code:    "GEMINI_API_KEY",
		Cause:   errors.New("empty"),
	}

	expected := "invalid_config: missing api key (code: GEMINI_API_KEY): empty"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewAcquisitionError(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewAcquisitionError("camera unavailable", cause)
	if err.Type != ErrAcquisition {
		t.Errorf("Type = %v, want %v", err.Type, ErrAcquisition)
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("open session: %w", NewTransportError("dial failed", nil))
	if !IsType(wrapped, ErrTransport) {
		t.Errorf("IsType(wrapped, ErrTransport) = false, want true")
	}
	if IsType(wrapped, ErrAcquisition) {
		t.Errorf("IsType(wrapped, ErrAcquisition) = true, want false")
	}
	if IsType(errors.New("plain"), ErrTransport) {
		t.Errorf("IsType(plain, ErrTransport) = true, want false")
	}
}

func TestNewMalformedMessageError(t *testing.T) {
	err := NewMalformedMessageError("audio", errors.New("illegal base64"))
	if err.Type != ErrMalformedMessage {
		t.Errorf("Type = %v, want %v", err.Type, ErrMalformedMessage)
	}
	if err.Message != "malformed field audio" {
		t.Errorf("Message = %q", err.Message)
	}
}
