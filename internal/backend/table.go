package backend

import (
	"context"

	"github.com/hmjahid/build-studio/internal/errors"
)

// Table dispatches lifecycle verbs by technology.
type Table struct {
	backends map[Technology]Backend
}

// NewTable creates a Table holding the given implementations. Every other
// concrete technology resolves to an unimplemented backend.
func NewTable(backends ...Backend) *Table {
	t := &Table{backends: make(map[Technology]Backend, len(Technologies))}
	for _, tech := range Technologies {
		t.backends[tech] = unimplemented{tech: tech}
	}
	for _, b := range backends {
		t.backends[b.Technology()] = b
	}
	return t
}

// Get returns the backend for tech. Unknown technologies and "auto" get an
// unimplemented backend.
func (t *Table) Get(tech Technology) Backend {
	if b, ok := t.backends[tech]; ok {
		return b
	}
	return unimplemented{tech: tech}
}

// Implemented reports whether tech has a real backend.
func (t *Table) Implemented(tech Technology) bool {
	_, stub := t.Get(tech).(unimplemented)
	return !stub
}

// SelectAuto picks the first detected technology that has a real backend.
func (t *Table) SelectAuto(caps Capabilities) (Technology, error) {
	for _, tech := range caps.Available() {
		if t.Implemented(tech) {
			return tech, nil
		}
	}
	return "", errors.NoSuitableBackend()
}

// unimplemented answers every verb with a not-implemented error.
type unimplemented struct {
	tech Technology
}

func (u unimplemented) Technology() Technology { return u.tech }

func (u unimplemented) Create(ctx context.Context, id string, cfg NodeConfig) (Handle, error) {
	return Handle{}, errors.BackendNotImplemented(string(u.tech), "create")
}

func (u unimplemented) Start(ctx context.Context, t Target) error {
	return errors.BackendNotImplemented(string(u.tech), "start")
}

func (u unimplemented) Stop(ctx context.Context, t Target) error {
	return errors.BackendNotImplemented(string(u.tech), "stop")
}

func (u unimplemented) Remove(ctx context.Context, t Target) error {
	return errors.BackendNotImplemented(string(u.tech), "remove")
}
