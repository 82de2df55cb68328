// Package build runs project build commands.
//
// A build moves through Pending, Validating, Sandboxing, Running,
// Succeeded or Failed, CleaningUp and Done. The command is checked against
// the security policy, copied into a fresh sandbox when sandboxing is on,
// prefixed with the platform toolchain and run through the shell with
// stdout and stderr streamed line by line to an Observer. The policy's
// maximum build time is enforced by killing the build's process group.
package build
