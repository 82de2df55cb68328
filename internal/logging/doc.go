// Package logging provides logging utilities for build-studio.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("creating node", "name", name, "technology", tech)
//	logging.Warn("scanner failed", "technology", tech, "error", err)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Running step %s...", step)
//	logging.UserSuccess("Node %s created", id)
//	logging.UserWarning("Sandbox cleanup failed: %v", err)
//	logging.UserError("Build failed: %v", err)
//
// Output destinations (swappable through Stdout and Stderr):
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
