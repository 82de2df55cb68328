//go:build darwin

package sysinfo

import (
	"golang.org/x/sys/unix"
)

// TotalMemoryMB returns total physical memory in MiB.
func TotalMemoryMB() uint64 {
	total, err := unix.SysctlUint64("hw.memsize")
	if err != nil || total == 0 {
		return FallbackMemoryMB
	}
	return total / (1024 * 1024)
}
