package security

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Policy governs what a build may run and which parts of a project it sees.
// A Policy is treated as immutable once a build starts.
type Policy struct {
	EnableSandbox    bool          `json:"enable_sandbox"`
	AllowedPaths     []string      `json:"allowed_paths"`
	BlockedCommands  []string      `json:"blocked_commands"`
	NetworkIsolation bool          `json:"network_isolation"`
	MaxBuildTime     time.Duration `json:"max_build_time"`
}

// DefaultMaxBuildTime is the build deadline applied by DefaultPolicy.
const DefaultMaxBuildTime = time.Hour

// DefaultPolicy returns the process-wide default policy.
func DefaultPolicy() Policy {
	return Policy{
		EnableSandbox:    true,
		AllowedPaths:     []string{"./src", "./builds", "./packages"},
		BlockedCommands:  []string{"rm", "rmdir", "mv", "cp", "chmod", "chown"},
		NetworkIsolation: true,
		MaxBuildTime:     DefaultMaxBuildTime,
	}
}

// Verify checks the policy for values that can never be honored.
func (p Policy) Verify() error {
	for _, token := range p.BlockedCommands {
		if token == "" {
			return fmt.Errorf("blocked command list contains an empty entry")
		}
	}
	for _, path := range p.AllowedPaths {
		if path == "" {
			return fmt.Errorf("allowed path list contains an empty entry")
		}
		if filepath.IsAbs(path) {
			return fmt.Errorf("allowed path %q must be relative to the project", path)
		}
	}
	if p.MaxBuildTime < 0 {
		return fmt.Errorf("max build time must not be negative (got %s)", p.MaxBuildTime)
	}
	return nil
}

// BlockedToken returns the first blocked token contained in command.
//
// Matching is a literal, case-sensitive substring test over the whole
// command string, so "echo warm" matches "rm". This is a coarse filter and
// not a security boundary.
func BlockedToken(command string, p Policy) (string, bool) {
	if !p.EnableSandbox {
		return "", false
	}
	for _, token := range p.BlockedCommands {
		if token != "" && strings.Contains(command, token) {
			return token, true
		}
	}
	return "", false
}

// Validate reports whether command may run under p.
func Validate(command string, p Policy) bool {
	_, blocked := BlockedToken(command, p)
	return !blocked
}
