package domain

import (
	"errors"
	"io"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusUninitialized, "Uninitialized"},
		{StatusInitializing, "Initializing"},
		{StatusInitialized, "Initialized"},
		{StatusFailed, "Failed"},
		{Status(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestEvent_String(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{EventStart, "Start"},
		{EventComplete, "Complete"},
		{EventFail, "Fail"},
		{EventReset, "Reset"},
		{Event(42), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.event.String(); got != tt.want {
			t.Errorf("Event(%d).String() = %s, want %s", tt.event, got, tt.want)
		}
	}
}

func TestInitError(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := error(&InitError{Code: CodeInitFailed, Phase: PhaseLogger, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("InitError should unwrap to its cause")
	}
	if !errors.Is(err, ErrInitFailed) {
		t.Error("InitError with CodeInitFailed should match ErrInitFailed")
	}
	if errors.Is(err, ErrPreviouslyFailed) || errors.Is(err, ErrInvalidTransition) {
		t.Error("InitError matched a sentinel for a different code")
	}

	phase, ok := PhaseOf(err)
	if !ok || phase != PhaseLogger {
		t.Errorf("PhaseOf() = %v, %v; want logger, true", phase, ok)
	}
	if _, ok := PhaseOf(cause); ok {
		t.Error("PhaseOf() on a plain error should report false")
	}

	want := "foundation: FOUNDATION_INIT_FAILED (phase logger): unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
