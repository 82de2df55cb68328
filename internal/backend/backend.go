// Package backend defines the virtualization backend interface for
// build-studio nodes. Every technology gets an entry in a dispatch Table;
// technologies without an implementation resolve to a backend whose verbs
// report that they are not implemented.
package backend

import (
	"context"
	"fmt"
	"time"
)

// Technology identifies a virtualization technology.
type Technology string

const (
	Docker     Technology = "docker"
	WSL        Technology = "wsl"
	KVM        Technology = "kvm"
	QEMU       Technology = "qemu"
	HyperV     Technology = "hyperv"
	VMware     Technology = "vmware"
	VirtualBox Technology = "virtualbox"
	MacOSVM    Technology = "macos-vm"
	Auto       Technology = "auto"
)

// Technologies lists every concrete technology in auto-selection
// preference order.
var Technologies = []Technology{Docker, WSL, KVM, QEMU, HyperV, VMware, VirtualBox, MacOSVM}

// ParseTechnology validates a technology name. "auto" is accepted.
func ParseTechnology(s string) (Technology, error) {
	t := Technology(s)
	if t == Auto {
		return t, nil
	}
	for _, known := range Technologies {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported virtualization technology: %q", s)
}

// IsContainer reports whether nodes of this technology are containers
// rather than virtual machines.
func (t Technology) IsContainer() bool {
	return t == Docker
}

// NodeConfig is the request to create a node.
type NodeConfig struct {
	Name              string     `json:"name"`
	Platform          string     `json:"platform"`
	MemoryMB          int        `json:"memory"`
	CPUCores          int        `json:"cpu_cores"`
	DiskGB            int        `json:"disk_size"`
	Virtualization    Technology `json:"virtualization"`
	Capabilities      []string   `json:"capabilities"`
	Languages         []string   `json:"languages"`
	InstallBuildTools bool       `json:"install_build_tools"`
}

// Validate checks the parts of a NodeConfig every backend relies on.
func (c NodeConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := ParseTechnology(string(c.Virtualization)); err != nil {
		return err
	}
	if c.MemoryMB < 0 || c.CPUCores < 0 || c.DiskGB < 0 {
		return fmt.Errorf("resources must not be negative")
	}
	return nil
}

// Handle is the backend-issued reference to a node's environment. Exactly
// one of the fields is set, matching the node's technology.
type Handle struct {
	ContainerID string `json:"container_id,omitempty"`
	VMID        string `json:"vm_id,omitempty"`
}

// Target addresses an existing node for a lifecycle verb.
type Target struct {
	NodeID string
	Handle Handle
}

// Observed is a node environment found by enumerating a backend.
type Observed struct {
	NodeID     string
	Name       string
	Technology Technology
	Handle     Handle
	Image      string
	Running    bool
	Status     string
	CreatedAt  time.Time
}

// Backend creates and controls nodes for one technology.
// All methods should be safe for concurrent use.
type Backend interface {
	// Technology returns the technology this backend serves.
	Technology() Technology

	// Create provisions the environment for a new node.
	Create(ctx context.Context, id string, cfg NodeConfig) (Handle, error)

	// Start starts a stopped environment.
	Start(ctx context.Context, t Target) error

	// Stop stops a running environment.
	Stop(ctx context.Context, t Target) error

	// Remove tears the environment down.
	Remove(ctx context.Context, t Target) error
}

// Lister is implemented by backends that can enumerate their environments.
type Lister interface {
	List(ctx context.Context) ([]Observed, error)
}
