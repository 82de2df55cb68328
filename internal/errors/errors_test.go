package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestStudioError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *StudioError
		wantMsg string
	}{
		{
			name:    "without cause",
			err:     New(ExitGeneralError, "something went wrong"),
			wantMsg: "something went wrong",
		},
		{
			name:    "with cause",
			err:     Wrap(ExitGeneralError, "operation failed", fmt.Errorf("underlying error")),
			wantMsg: "operation failed: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestStudioError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ExitGeneralError, "wrapped", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if unwrapped := New(ExitGeneralError, "no cause").Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		name     string
		err      *StudioError
		wantCode int
		wantMsg  string
	}{
		{"PolicyViolation", PolicyViolation("rm -rf x"), ExitPolicyViolation, "command blocked by security policy: rm -rf x"},
		{"SandboxIO", SandboxIO("copy", cause), ExitSandboxIO, "sandbox copy failed: boom"},
		{"ProcessSpawn", ProcessSpawn(cause), ExitProcessSpawn, "failed to start build command: boom"},
		{"ProcessExit", ProcessExit(3), ExitProcessExit, "build command exited with status 3"},
		{"Timeout", Timeout(2 * time.Second), ExitTimeout, "build exceeded maximum build time of 2s"},
		{"BackendUnavailable", BackendUnavailable("docker", cause), ExitBackendUnavailable, "docker backend unavailable: boom"},
		{"BackendNotImplemented", BackendNotImplemented("kvm", "start"), ExitBackendNotImplemented, "start is not implemented for kvm nodes"},
		{"BackendFailed", BackendFailed("docker", "stop", cause), ExitBackendFailed, "docker stop failed: boom"},
		{"NodeNotFound", NodeNotFound("abc"), ExitNodeNotFound, "node not found: abc"},
		{"NoSuitableBackend", NoSuitableBackend(), ExitNoSuitableBackend, "no suitable virtualization backend available"},
		{"ConfigError", ConfigError("bad config", cause), ExitConfigError, "bad config: boom"},
		{"ValidationError", ValidationError("name required"), ExitGeneralError, "name required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", tt.err.Code, tt.wantCode)
			}
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"studio error", NodeNotFound("x"), ExitNodeNotFound},
		{"wrapped studio error", fmt.Errorf("outer: %w", Timeout(time.Second)), ExitTimeout},
		{"plain error", errors.New("plain"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	inner := BackendNotImplemented("qemu", "remove")
	outer := BackendFailed("qemu", "remove", inner)

	if !HasCode(outer, ExitBackendFailed) {
		t.Error("HasCode(outer, ExitBackendFailed) = false, want true")
	}
	if !HasCode(outer, ExitBackendNotImplemented) {
		t.Error("HasCode(outer, ExitBackendNotImplemented) = false, want true")
	}
	if HasCode(outer, ExitNodeNotFound) {
		t.Error("HasCode(outer, ExitNodeNotFound) = true, want false")
	}
	if HasCode(errors.New("plain"), ExitGeneralError) {
		t.Error("HasCode(plain) = true, want false")
	}
	if HasCode(nil, ExitGeneralError) {
		t.Error("HasCode(nil) = true, want false")
	}
}
