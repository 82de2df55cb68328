// Package node keeps the in-memory registry of build nodes and drives their
// lifecycle through the virtualization backends.
package node

import (
	"time"

	"github.com/hmjahid/build-studio/internal/backend"
)

// Kind distinguishes container nodes from virtual machine nodes.
type Kind string

const (
	KindLocalDocker Kind = "local-docker"
	KindLocalVM     Kind = "local-vm"
)

// KindFor returns the node kind for a technology.
func KindFor(tech backend.Technology) Kind {
	if tech.IsContainer() {
		return KindLocalDocker
	}
	return KindLocalVM
}

// State is a node's lifecycle state.
type State string

const (
	StateInstalling State = "installing"
	StateOnline     State = "online"
	StateOffline    State = "offline"
)

// States lists every state, for gauges.
var States = []State{StateInstalling, StateOnline, StateOffline}

// Node is one registered build node. The registry owns the records; every
// accessor hands out copies.
type Node struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Kind         Kind               `json:"kind"`
	State        State              `json:"state"`
	Platform     string             `json:"platform"`
	MemoryMB     int                `json:"memory"`
	CPUCores     int                `json:"cpu_cores"`
	DiskGB       int                `json:"disk_size"`
	Technology   backend.Technology `json:"vm_type"`
	Capabilities []string           `json:"capabilities"`
	CreatedAt    time.Time          `json:"created_at"`
	LastSeen     *time.Time         `json:"last_seen,omitempty"`

	backend.Handle
}

func (n *Node) clone() Node {
	c := *n
	c.Capabilities = append([]string(nil), n.Capabilities...)
	if n.LastSeen != nil {
		t := *n.LastSeen
		c.LastSeen = &t
	}
	return c
}

func (n *Node) target() backend.Target {
	return backend.Target{NodeID: n.ID, Handle: n.Handle}
}
