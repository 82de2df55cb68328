package backend

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hmjahid/build-studio/internal/logging"
	"github.com/hmjahid/build-studio/internal/system"
)

// installTools puts each name on the mock PATH under /usr/bin.
func installTools(exec *system.MockExecutor, names ...string) {
	for _, name := range names {
		exec.AddPath(name, "/usr/bin/"+name)
	}
}

func newTestDetector(goos string) (*HostDetector, *system.MockExecutor, *system.MockFS) {
	exec := system.NewMockExecutor()
	exec.DefaultResponse = system.MockResponse{Err: errors.New("executable file not found")}
	fs := system.NewMockFS()
	p := NewHostDetector(exec, fs)
	p.GOOS = goos
	return p, exec, fs
}

func TestHostDetector_NothingAvailable(t *testing.T) {
	p, _, _ := newTestDetector("linux")

	caps := p.Detect(context.Background())
	if caps != (Capabilities{}) {
		t.Errorf("Detect() = %+v, want all false", caps)
	}
	if got := caps.Available(); len(got) != 0 {
		t.Errorf("Available() = %v, want empty", got)
	}
}

func TestHostDetector_Linux(t *testing.T) {
	p, exec, fs := newTestDetector("linux")
	installTools(exec, "docker", "qemu-system-x86_64", "wsl", "powershell")
	exec.AddResponse("docker --version", []byte("Docker version 27.0.1"), nil)
	exec.AddResponse("qemu-system-x86_64 --version", []byte("QEMU emulator"), nil)
	exec.AddResponse("wsl", nil, nil)
	exec.AddResponse("powershell", []byte("State : Enabled"), nil)
	fs.AddFile("/dev/kvm", 0660)
	fs.AddDir("/System/Library/Frameworks/Virtualization.framework")

	caps := p.Detect(context.Background())

	want := Capabilities{Docker: true, KVM: true, QEMU: true}
	if caps != want {
		t.Errorf("Detect() = %+v, want %+v", caps, want)
	}

	if len(exec.CommandsWithPrefix("wsl")) != 0 {
		t.Error("wsl check should not run on linux")
	}
	if len(exec.CommandsWithPrefix("powershell")) != 0 {
		t.Error("Hyper-V check should not run on linux")
	}
}

func TestHostDetector_Windows(t *testing.T) {
	p, exec, fs := newTestDetector("windows")
	installTools(exec, "wsl", "powershell", "vmrun")
	exec.AddResponse("wsl --status", []byte("Default Version: 2"), nil)
	exec.AddResponse("powershell", []byte("FeatureName : Microsoft-Hyper-V-All\nState : Enabled"), nil)
	exec.AddResponse("vmrun -T ws list", []byte("Total running VMs: 0"), nil)
	fs.AddFile("/dev/kvm", 0660)

	caps := p.Detect(context.Background())

	want := Capabilities{WSL: true, HyperV: true, VMware: true}
	if caps != want {
		t.Errorf("Detect() = %+v, want %+v", caps, want)
	}
}

func TestHostDetector_HyperVDisabled(t *testing.T) {
	p, exec, _ := newTestDetector("windows")
	installTools(exec, "powershell")
	exec.AddResponse("powershell", []byte("State : Disabled"), nil)

	if caps := p.Detect(context.Background()); caps.HyperV {
		t.Error("HyperV = true for a disabled feature")
	}
}

func TestHostDetector_Darwin(t *testing.T) {
	p, exec, fs := newTestDetector("darwin")
	installTools(exec, "VBoxManage")
	exec.AddResponse("VBoxManage --version", []byte("7.0.10"), nil)
	fs.AddDir("/System/Library/Frameworks/Virtualization.framework")
	fs.AddFile("/dev/kvm", 0660)

	caps := p.Detect(context.Background())

	want := Capabilities{VirtualBox: true, MacOSVM: true}
	if caps != want {
		t.Errorf("Detect() = %+v, want %+v", caps, want)
	}
}

func TestHostDetector_ContainerCommand(t *testing.T) {
	p, exec, _ := newTestDetector("linux")
	p.ContainerCommand = "podman"
	installTools(exec, "podman")
	exec.AddResponse("podman --version", []byte("podman version 5.0"), nil)

	if caps := p.Detect(context.Background()); !caps.Docker {
		t.Error("Docker = false, want true when podman answers")
	}
}

func TestHostDetector_ToolNotOnPath(t *testing.T) {
	p, exec, _ := newTestDetector("windows")
	exec.AddResponse("docker --version", []byte("Docker version 27.0.1"), nil)
	exec.AddResponse("powershell", []byte("State : Enabled"), nil)

	caps := p.Detect(context.Background())
	if caps.Docker || caps.HyperV {
		t.Errorf("Detect() = %+v, want tools missing from PATH reported unavailable", caps)
	}
	if len(exec.Commands) != 0 {
		t.Errorf("commands run = %v, want none for tools missing from PATH", exec.Commands)
	}
}

func TestHostDetector_LogsMissingTools(t *testing.T) {
	prev, prevVerbose := logging.Logger, logging.Verbose
	t.Cleanup(func() { logging.Logger, logging.Verbose = prev, prevVerbose })
	var buf bytes.Buffer
	logging.Setup(true, true, &buf)

	p, exec, _ := newTestDetector("linux")
	installTools(exec, "docker")
	exec.AddResponse("docker --version", nil, errors.New("daemon not running"))
	p.Detect(context.Background())

	out := buf.String()
	if !strings.Contains(out, `"msg":"tool not installed","command":"qemu-system-x86_64"`) {
		t.Errorf("missing tool not logged: %s", out)
	}
	if !strings.Contains(out, `"msg":"capability check failed","command":"docker"`) {
		t.Errorf("failed docker check not logged: %s", out)
	}
	if !strings.Contains(out, `"msg":"capabilities detected"`) {
		t.Errorf("summary not logged: %s", out)
	}
}

func TestHostDetector_VirtualizationBundleMustBeDirectory(t *testing.T) {
	p, _, fs := newTestDetector("darwin")
	fs.AddFile("/System/Library/Frameworks/Virtualization.framework", 0644)

	if caps := p.Detect(context.Background()); caps.MacOSVM {
		t.Error("MacOSVM = true for a plain file at the framework path")
	}
}

func TestCapabilities_Available(t *testing.T) {
	caps := Capabilities{VirtualBox: true, Docker: true, QEMU: true}

	got := caps.Available()
	want := []Technology{Docker, QEMU, VirtualBox}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}
	if caps.Has(Auto) {
		t.Error("Has(auto) = true, want false")
	}
}
