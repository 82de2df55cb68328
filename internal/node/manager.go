package node

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hmjahid/build-studio/internal/audit"
	"github.com/hmjahid/build-studio/internal/backend"
	"github.com/hmjahid/build-studio/internal/config"
	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/logging"
	"github.com/hmjahid/build-studio/internal/metrics"
)

// EventSink receives node lifecycle events.
type EventSink interface {
	LogEvent(eventType audit.EventType, subject, details string) error
}

// Manager is the node registry. All methods are safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	nodes map[string]*Node

	table    *backend.Table
	detector backend.Detector
	recorder metrics.Recorder
	events   EventSink
	newID    func() string
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithEvents sets the lifecycle event sink.
func WithEvents(s EventSink) Option {
	return func(m *Manager) {
		m.events = s
	}
}

// WithIDFunc overrides node id generation.
func WithIDFunc(f func() string) Option {
	return func(m *Manager) {
		m.newID = f
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates an empty registry dispatching to table. The detector
// resolves the "auto" technology.
func NewManager(table *backend.Table, detector backend.Detector, opts ...Option) *Manager {
	m := &Manager{
		nodes:    make(map[string]*Node),
		table:    table,
		detector: detector,
		recorder: metrics.NoopRecorder{},
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create provisions a node and registers it in the installing state.
// The registry is unchanged when the backend fails.
func (m *Manager) Create(ctx context.Context, cfg backend.NodeConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", errors.ValidationError(err.Error())
	}
	if err := config.ValidateNodeName(cfg.Name); err != nil {
		return "", errors.ValidationError(err.Error())
	}

	tech := cfg.Virtualization
	if tech == backend.Auto {
		caps := m.detector.Detect(ctx)
		selected, err := m.table.SelectAuto(caps)
		if err != nil {
			m.recorder.IncNodeOperation("create", string(tech), metrics.ResultFailure)
			return "", err
		}
		logging.Debug("selected virtualization technology", "technology", selected)
		tech = selected
		cfg.Virtualization = selected
	}

	id := m.newID()
	handle, err := m.table.Get(tech).Create(ctx, id, cfg)
	m.recorder.IncNodeOperation("create", string(tech), metrics.ResultOf(err))
	if err != nil {
		m.event(audit.EventError, id, "create failed: "+err.Error())
		return "", err
	}

	n := &Node{
		ID:           id,
		Name:         cfg.Name,
		Kind:         KindFor(tech),
		State:        StateInstalling,
		Platform:     cfg.Platform,
		MemoryMB:     cfg.MemoryMB,
		CPUCores:     cfg.CPUCores,
		DiskGB:       cfg.DiskGB,
		Technology:   tech,
		Capabilities: append([]string(nil), cfg.Capabilities...),
		CreatedAt:    m.now(),
		Handle:       handle,
	}

	m.mu.Lock()
	m.nodes[id] = n
	m.updateGauges()
	m.mu.Unlock()

	m.event(audit.EventCreate, id, "name="+cfg.Name+" technology="+string(tech))
	logging.Info("node created", "id", id, "name", cfg.Name, "technology", tech)
	return id, nil
}

// Start starts a node and marks it online.
func (m *Manager) Start(ctx context.Context, id string) error {
	return m.transition(ctx, "start", id, StateOnline)
}

// Stop stops a node and marks it offline.
func (m *Manager) Stop(ctx context.Context, id string) error {
	return m.transition(ctx, "stop", id, StateOffline)
}

// transition holds the lock across the backend call so verbs on the same
// registry are linearized.
func (m *Manager) transition(ctx context.Context, verb, id string, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[id]
	if !ok {
		return errors.NodeNotFound(id)
	}

	b := m.table.Get(n.Technology)
	var err error
	if to == StateOnline {
		err = b.Start(ctx, n.target())
	} else {
		err = b.Stop(ctx, n.target())
	}
	m.recorder.IncNodeOperation(verb, string(n.Technology), metrics.ResultOf(err))
	if err != nil {
		return err
	}

	n.State = to
	if to == StateOnline {
		seen := m.now()
		n.LastSeen = &seen
	}
	m.updateGauges()

	eventType := audit.EventStart
	if to == StateOffline {
		eventType = audit.EventStop
	}
	m.event(eventType, id, "technology="+string(n.Technology))
	return nil
}

// Remove deletes a node from the registry and tears its environment down.
// The record is gone even when teardown fails; a technology without an
// implementation has nothing to tear down.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[id]
	if !ok {
		return errors.NodeNotFound(id)
	}
	delete(m.nodes, id)
	m.updateGauges()

	err := m.table.Get(n.Technology).Remove(ctx, n.target())
	m.recorder.IncNodeOperation("remove", string(n.Technology), metrics.ResultOf(err))
	if errors.HasCode(err, errors.ExitBackendNotImplemented) {
		logging.Debug("no teardown for technology", "id", id, "technology", n.Technology)
		err = nil
	}

	m.event(audit.EventRemove, id, "technology="+string(n.Technology))
	if err != nil {
		logging.Warn("node teardown failed", "id", id, "error", err)
		return err
	}
	return nil
}

// Get returns a copy of one node.
func (m *Manager) Get(id string) (Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return Node{}, errors.NodeNotFound(id)
	}
	return n.clone(), nil
}

// List returns copies of every node ordered by creation time, then id.
func (m *Manager) List() []Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// updateGauges must be called with m.mu held.
func (m *Manager) updateGauges() {
	counts := make(map[State]int, len(States))
	for _, n := range m.nodes {
		counts[n.State]++
	}
	for _, s := range States {
		m.recorder.SetNodeCount(string(s), counts[s])
	}
}

func (m *Manager) event(eventType audit.EventType, id, details string) {
	if m.events == nil {
		return
	}
	if err := m.events.LogEvent(eventType, id, details); err != nil {
		logging.Warn("failed to write node event", "id", id, "error", err)
	}
}
