package discovery

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/hmjahid/build-studio/internal/backend"
	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/system"
)

// ListerScanner adapts a backend that can enumerate its own environments.
type ListerScanner struct {
	Tech   backend.Technology
	Lister backend.Lister
}

func (s ListerScanner) Technology() backend.Technology { return s.Tech }

func (s ListerScanner) Scan(ctx context.Context) ([]backend.Observed, error) {
	return s.Lister.List(ctx)
}

// vboxLine matches `"name" {uuid}` as printed by VBoxManage list.
var vboxLine = regexp.MustCompile(`^"(.*)" \{([0-9a-fA-F-]+)\}$`)

// VirtualBoxScanner finds VirtualBox VMs named with the node prefix.
type VirtualBoxScanner struct {
	Exec    system.CommandExecutor
	Prefix  string
	Command string
}

func (s VirtualBoxScanner) Technology() backend.Technology { return backend.VirtualBox }

func (s VirtualBoxScanner) command() string {
	if s.Command != "" {
		return s.Command
	}
	return "VBoxManage"
}

func (s VirtualBoxScanner) Scan(ctx context.Context) ([]backend.Observed, error) {
	all, err := s.Exec.Output(ctx, s.command(), "list", "vms")
	if err != nil {
		return nil, errors.BackendUnavailable(string(backend.VirtualBox), err)
	}
	running, err := s.Exec.Output(ctx, s.command(), "list", "runningvms")
	if err != nil {
		return nil, errors.BackendUnavailable(string(backend.VirtualBox), err)
	}

	up := make(map[string]bool)
	for _, vm := range parseVBoxList(running) {
		up[vm[1]] = true
	}

	var out []backend.Observed
	for _, vm := range parseVBoxList(all) {
		name, id := vm[0], vm[1]
		nodeID, ok := strings.CutPrefix(name, s.Prefix)
		if !ok || nodeID == "" {
			continue
		}
		status := "poweroff"
		if up[id] {
			status = "running"
		}
		out = append(out, backend.Observed{
			NodeID:     nodeID,
			Name:       name,
			Technology: backend.VirtualBox,
			Handle:     backend.Handle{VMID: id},
			Running:    up[id],
			Status:     status,
		})
	}
	return out, nil
}

// parseVBoxList returns name, uuid pairs.
func parseVBoxList(data []byte) [][2]string {
	var out [][2]string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		m := vboxLine.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}
		out = append(out, [2]string{m[1], m[2]})
	}
	return out
}

// VirshScanner finds libvirt domains named with the node prefix.
type VirshScanner struct {
	Exec   system.CommandExecutor
	Prefix string
	// Tech is reported for the domains found, KVM unless set.
	Tech backend.Technology
}

func (s VirshScanner) Technology() backend.Technology {
	if s.Tech != "" {
		return s.Tech
	}
	return backend.KVM
}

func (s VirshScanner) Scan(ctx context.Context) ([]backend.Observed, error) {
	tech := s.Technology()
	all, err := s.Exec.Output(ctx, "virsh", "list", "--all", "--name")
	if err != nil {
		return nil, errors.BackendUnavailable(string(tech), err)
	}
	running, err := s.Exec.Output(ctx, "virsh", "list", "--name")
	if err != nil {
		return nil, errors.BackendUnavailable(string(tech), err)
	}

	up := make(map[string]bool)
	for _, name := range strings.Fields(string(running)) {
		up[name] = true
	}

	var out []backend.Observed
	for _, name := range strings.Fields(string(all)) {
		nodeID, ok := strings.CutPrefix(name, s.Prefix)
		if !ok || nodeID == "" {
			continue
		}
		status := "shut off"
		if up[name] {
			status = "running"
		}
		out = append(out, backend.Observed{
			NodeID:     nodeID,
			Name:       name,
			Technology: tech,
			Handle:     backend.Handle{VMID: name},
			Running:    up[name],
			Status:     status,
		})
	}
	return out, nil
}

var (
	_ Scanner = ListerScanner{}
	_ Scanner = VirtualBoxScanner{}
	_ Scanner = VirshScanner{}
)
