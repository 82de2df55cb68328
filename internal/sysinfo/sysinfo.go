// Package sysinfo reports host facts used when sizing build nodes.
package sysinfo

import (
	"context"
	goruntime "runtime"

	"github.com/hmjahid/build-studio/internal/backend"
)

// FallbackMemoryMB is reported when total memory cannot be read.
const FallbackMemoryMB = 8192

// Info describes the host.
type Info struct {
	OS                    string               `json:"os"`
	Arch                  string               `json:"arch"`
	MemoryMB              uint64               `json:"memory"`
	CPUCores              int                  `json:"cpu_cores"`
	VirtualizationSupport backend.Capabilities `json:"virtualization_support"`
}

// Collect gathers host information, probing capabilities with d.
func Collect(ctx context.Context, d backend.Detector) Info {
	return Info{
		OS:                    goruntime.GOOS,
		Arch:                  goruntime.GOARCH,
		MemoryMB:              TotalMemoryMB(),
		CPUCores:              goruntime.NumCPU(),
		VirtualizationSupport: d.Detect(ctx),
	}
}
