//go:build !linux && !darwin

package sysinfo

// TotalMemoryMB returns the fallback; memory is only read on linux and darwin.
func TotalMemoryMB() uint64 {
	return FallbackMemoryMB
}
