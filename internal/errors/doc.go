// Package errors provides typed errors with exit codes for build-studio.
//
// # Error Types
//
// StudioError is the base error type that wraps an error with an exit code:
//
//	type StudioError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess               = 0   // Success
//	ExitGeneralError          = 1   // General/unknown errors
//	ExitPolicyViolation       = 2   // Command rejected by the security policy
//	ExitSandboxIO             = 3   // Sandbox create/copy failure
//	ExitProcessSpawn          = 4   // Build process could not be started
//	ExitProcessExit           = 5   // Build process exited non-zero
//	ExitTimeout               = 6   // Build exceeded its maximum duration
//	ExitBackendUnavailable    = 7   // Backend tooling missing or unreachable
//	ExitBackendNotImplemented = 8   // Technology has no backend implementation
//	ExitNodeNotFound          = 9   // Unknown node id
//	ExitNoSuitableBackend     = 10  // "auto" found no usable technology
//	ExitBackendFailed         = 11  // Backend command failed
//	ExitConfigError           = 12  // Configuration error
//
// # Error Constructors
//
//	errors.PolicyViolation("rm -rf /")
//	errors.NodeNotFound(id)
//	errors.BackendFailed("docker", "start", err)
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain, and HasCode
// to classify an error that may have been wrapped several times:
//
//	if errors.HasCode(err, errors.ExitBackendNotImplemented) {
//	    // treat as success
//	}
package errors
