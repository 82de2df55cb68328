//go:build !unix

package build

import "os/exec"

// configureProcessGroup keeps the default cancel behavior, which kills the
// shell process only.
func configureProcessGroup(cmd *exec.Cmd) {}
