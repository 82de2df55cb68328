package errors

import (
	"errors"
	"fmt"
)

// Exit codes for build-studio
const (
	ExitSuccess               = 0
	ExitGeneralError          = 1
	ExitPolicyViolation       = 2
	ExitSandboxIO             = 3
	ExitProcessSpawn          = 4
	ExitProcessExit           = 5
	ExitTimeout               = 6
	ExitBackendUnavailable    = 7
	ExitBackendNotImplemented = 8
	ExitNodeNotFound          = 9
	ExitNoSuitableBackend     = 10
	ExitBackendFailed         = 11
	ExitConfigError           = 12
)

// StudioError is the base error type for build-studio
type StudioError struct {
	Code    int
	Message string
	Cause   error
}

func (e *StudioError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StudioError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *StudioError) ExitCode() int {
	return e.Code
}

// New creates a new StudioError
func New(code int, message string) *StudioError {
	return &StudioError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a StudioError
func Wrap(code int, message string, cause error) *StudioError {
	return &StudioError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// PolicyViolation returns an error for a command rejected by the security policy
func PolicyViolation(command string) *StudioError {
	return New(ExitPolicyViolation, fmt.Sprintf("command blocked by security policy: %s", command))
}

// SandboxIO returns an error for sandbox creation or copy failures
func SandboxIO(op string, cause error) *StudioError {
	return Wrap(ExitSandboxIO, fmt.Sprintf("sandbox %s failed", op), cause)
}

// ProcessSpawn returns an error for a build process that could not be started
func ProcessSpawn(cause error) *StudioError {
	return Wrap(ExitProcessSpawn, "failed to start build command", cause)
}

// ProcessExit returns an error for a build process that exited non-zero
func ProcessExit(status int) *StudioError {
	return New(ExitProcessExit, fmt.Sprintf("build command exited with status %d", status))
}

// Timeout returns an error for a build that exceeded its time limit
func Timeout(limit fmt.Stringer) *StudioError {
	return New(ExitTimeout, fmt.Sprintf("build exceeded maximum build time of %s", limit))
}

// BackendUnavailable returns an error when a backend's tooling cannot be reached
func BackendUnavailable(tech string, cause error) *StudioError {
	return Wrap(ExitBackendUnavailable, fmt.Sprintf("%s backend unavailable", tech), cause)
}

// BackendNotImplemented returns an error for a technology with no backend
func BackendNotImplemented(tech, verb string) *StudioError {
	return New(ExitBackendNotImplemented, fmt.Sprintf("%s is not implemented for %s nodes", verb, tech))
}

// BackendFailed returns an error for a backend operation that failed
func BackendFailed(tech, op string, cause error) *StudioError {
	return Wrap(ExitBackendFailed, fmt.Sprintf("%s %s failed", tech, op), cause)
}

// NodeNotFound returns an error for an unknown node id
func NodeNotFound(id string) *StudioError {
	return New(ExitNodeNotFound, fmt.Sprintf("node not found: %s", id))
}

// NoSuitableBackend returns an error when auto selection finds nothing usable
func NoSuitableBackend() *StudioError {
	return New(ExitNoSuitableBackend, "no suitable virtualization backend available")
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *StudioError {
	return Wrap(ExitConfigError, message, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *StudioError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var studioErr *StudioError
	if errors.As(err, &studioErr) {
		return studioErr.ExitCode()
	}
	return ExitGeneralError
}

// HasCode reports whether any StudioError in err's chain carries code.
func HasCode(err error, code int) bool {
	for err != nil {
		var studioErr *StudioError
		if !errors.As(err, &studioErr) {
			return false
		}
		if studioErr.Code == code {
			return true
		}
		err = studioErr.Cause
	}
	return false
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
