package core

import (
	"errors"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Reason: "bad boot data"}
	want := "config: bad boot data"
	if got := err.Error(); got != want {
		t.Errorf("Error(): expected %q, got %q", want, got)
	}
}

func TestIoError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("permission denied")
	err := &IoError{Path: "/tmp/disk.fdd", Op: "open", Err: inner}

	want := "io: open /tmp/disk.fdd: permission denied"
	if got := err.Error(); got != want {
		t.Errorf("Error(): expected %q, got %q", want, got)
	}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to unwrap to the inner error")
	}
}

func TestRequestError_Error(t *testing.T) {
	err := &RequestError{Request: "SET_MEM", Reason: "coordinator is running"}
	want := "request SET_MEM: coordinator is running"
	if got := err.Error(); got != want {
		t.Errorf("Error(): expected %q, got %q", want, got)
	}
}

func TestDebuggerError_Error(t *testing.T) {
	err := &DebuggerError{Reason: "recorder not attached"}
	want := "debugger: recorder not attached"
	if got := err.Error(); got != want {
		t.Errorf("Error(): expected %q, got %q", want, got)
	}
}

func TestMappingConflict(t *testing.T) {
	err := MappingConflict(0, 1)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatal("expected MappingConflict to return a *ConfigError")
	}
	want := "config: ram-disk 0 and 1 both map overlapping data ranges"
	if got := err.Error(); got != want {
		t.Errorf("Error(): expected %q, got %q", want, got)
	}
}
