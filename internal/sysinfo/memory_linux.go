//go:build linux

package sysinfo

import (
	"golang.org/x/sys/unix"
)

// TotalMemoryMB returns total physical memory in MiB.
func TotalMemoryMB() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil || info.Totalram == 0 {
		return FallbackMemoryMB
	}
	total := uint64(info.Totalram) * uint64(info.Unit)
	return total / (1024 * 1024)
}
