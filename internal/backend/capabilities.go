package backend

import (
	"bytes"
	"context"
	goruntime "runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hmjahid/build-studio/internal/logging"
	"github.com/hmjahid/build-studio/internal/system"
)

// Capabilities reports which technologies the host can use.
type Capabilities struct {
	Docker     bool `json:"docker"`
	WSL        bool `json:"wsl"`
	KVM        bool `json:"kvm"`
	QEMU       bool `json:"qemu"`
	HyperV     bool `json:"hyperv"`
	VMware     bool `json:"vmware"`
	VirtualBox bool `json:"virtualbox"`
	MacOSVM    bool `json:"macos_vm"`
}

// Has reports whether technology t was detected.
func (c Capabilities) Has(t Technology) bool {
	switch t {
	case Docker:
		return c.Docker
	case WSL:
		return c.WSL
	case KVM:
		return c.KVM
	case QEMU:
		return c.QEMU
	case HyperV:
		return c.HyperV
	case VMware:
		return c.VMware
	case VirtualBox:
		return c.VirtualBox
	case MacOSVM:
		return c.MacOSVM
	default:
		return false
	}
}

// Available returns the detected technologies in preference order.
func (c Capabilities) Available() []Technology {
	var available []Technology
	for _, t := range Technologies {
		if c.Has(t) {
			available = append(available, t)
		}
	}
	return available
}

const (
	kvmDevice            = "/dev/kvm"
	virtualizationBundle = "/System/Library/Frameworks/Virtualization.framework"
	hyperVQuery          = "Get-WindowsOptionalFeature -Online -FeatureName Microsoft-Hyper-V-All"
)

// Detector reports host capabilities.
type Detector interface {
	Detect(ctx context.Context) Capabilities
}

// HostDetector detects capabilities by running one independent check per
// technology. A check that fails for any reason reports false for its own
// technology only.
type HostDetector struct {
	Exec system.CommandExecutor
	FS   system.FileSystem

	// GOOS gates OS-specific checks. Checks that cannot apply to the
	// current OS return false without running anything.
	GOOS string

	// ContainerCommand is the CLI queried for container support.
	ContainerCommand string
}

// NewHostDetector creates a HostDetector for the running OS.
func NewHostDetector(exec system.CommandExecutor, fs system.FileSystem) *HostDetector {
	return &HostDetector{
		Exec:             exec,
		FS:               fs,
		GOOS:             goruntime.GOOS,
		ContainerCommand: "docker",
	}
}

// Detect runs every check concurrently.
func (d *HostDetector) Detect(ctx context.Context) Capabilities {
	var caps Capabilities
	var g errgroup.Group

	check := func(dst *bool, fn func() bool) {
		g.Go(func() error {
			*dst = fn()
			return nil
		})
	}

	check(&caps.Docker, func() bool { return d.succeeds(ctx, d.containerCommand(), "--version") })
	check(&caps.WSL, func() bool { return d.GOOS == "windows" && d.succeeds(ctx, "wsl", "--status") })
	check(&caps.KVM, func() bool { return d.GOOS == "linux" && d.FS.Exists(kvmDevice) })
	check(&caps.QEMU, func() bool { return d.succeeds(ctx, "qemu-system-x86_64", "--version") })
	check(&caps.HyperV, func() bool { return d.GOOS == "windows" && d.hyperVEnabled(ctx) })
	check(&caps.VMware, func() bool { return d.succeeds(ctx, "vmrun", "-T", "ws", "list") })
	check(&caps.VirtualBox, func() bool { return d.succeeds(ctx, "VBoxManage", "--version") })
	check(&caps.MacOSVM, func() bool { return d.GOOS == "darwin" && d.FS.IsDir(virtualizationBundle) })

	_ = g.Wait()

	logging.Debug("capabilities detected", "available", caps.Available())
	return caps
}

func (d *HostDetector) containerCommand() string {
	if d.ContainerCommand == "" {
		return "docker"
	}
	return d.ContainerCommand
}

// installed reports whether name resolves on PATH. Tools that are not
// installed are never spawned.
func (d *HostDetector) installed(name string) bool {
	if _, err := d.Exec.LookPath(name); err != nil {
		logging.Debug("tool not installed", "command", name)
		return false
	}
	return true
}

func (d *HostDetector) succeeds(ctx context.Context, name string, args ...string) bool {
	if !d.installed(name) {
		return false
	}
	_, err := d.Exec.Execute(ctx, name, args...)
	if err != nil {
		logging.Debug("capability check failed", "command", name, "error", err)
	}
	return err == nil
}

func (d *HostDetector) hyperVEnabled(ctx context.Context) bool {
	if !d.installed("powershell") {
		return false
	}
	out, err := d.Exec.Execute(ctx, "powershell", "-Command", hyperVQuery)
	if err != nil {
		logging.Debug("capability check failed", "command", "powershell", "error", err)
		return false
	}
	return bytes.Contains(out, []byte("Enabled"))
}

var _ Detector = (*HostDetector)(nil)
