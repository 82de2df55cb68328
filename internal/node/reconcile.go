package node

import (
	"sort"
	"time"

	"github.com/hmjahid/build-studio/internal/audit"
	"github.com/hmjahid/build-studio/internal/backend"
	"github.com/hmjahid/build-studio/internal/logging"
)

// Observation is what a discovery pass saw.
type Observation struct {
	// Nodes are the environments found.
	Nodes []backend.Observed

	// Scanned lists the technologies whose enumeration succeeded. Only
	// nodes of these technologies can be dropped.
	Scanned []backend.Technology

	// StartedAt is when enumeration began. Nodes registered after it may
	// not have been visible yet and are never dropped.
	StartedAt time.Time
}

// ReconcileSummary reports what Reconcile changed.
type ReconcileSummary struct {
	Adopted   []string `json:"adopted"`
	Refreshed []string `json:"refreshed"`
	Dropped   []string `json:"dropped"`
}

// Changed reports whether the registry membership changed.
func (s ReconcileSummary) Changed() bool {
	return len(s.Adopted) > 0 || len(s.Dropped) > 0
}

// Reconcile merges a discovery pass into the registry. Unknown
// environments are adopted, known ones get their state and handle
// refreshed, and registered nodes missing from a successfully scanned
// technology are dropped.
func (m *Manager) Reconcile(obs Observation) ReconcileSummary {
	var summary ReconcileSummary
	scanned := make(map[backend.Technology]bool, len(obs.Scanned))
	for _, t := range obs.Scanned {
		scanned[t] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	seen := make(map[string]bool, len(obs.Nodes))
	for _, o := range obs.Nodes {
		if o.NodeID == "" {
			continue
		}
		seen[o.NodeID] = true

		state := StateOffline
		if o.Running {
			state = StateOnline
		}

		if n, ok := m.nodes[o.NodeID]; ok {
			n.State = state
			if o.Running {
				t := now
				n.LastSeen = &t
			}
			if o.Handle != (backend.Handle{}) {
				n.Handle = o.Handle
			}
			summary.Refreshed = append(summary.Refreshed, o.NodeID)
			continue
		}

		created := o.CreatedAt
		if created.IsZero() {
			created = now
		}
		n := &Node{
			ID:         o.NodeID,
			Name:       o.Name,
			Kind:       KindFor(o.Technology),
			State:      state,
			Technology: o.Technology,
			CreatedAt:  created,
			Handle:     o.Handle,
		}
		if o.Running {
			t := now
			n.LastSeen = &t
		}
		m.nodes[o.NodeID] = n
		summary.Adopted = append(summary.Adopted, o.NodeID)
		m.event(audit.EventAdopt, o.NodeID, "technology="+string(o.Technology)+" name="+o.Name)
	}

	for id, n := range m.nodes {
		if seen[id] || !scanned[n.Technology] || !n.CreatedAt.Before(obs.StartedAt) {
			continue
		}
		delete(m.nodes, id)
		summary.Dropped = append(summary.Dropped, id)
		m.event(audit.EventLost, id, "technology="+string(n.Technology))
	}

	sort.Strings(summary.Dropped)
	m.updateGauges()
	if summary.Changed() {
		logging.Info("registry reconciled", "adopted", len(summary.Adopted), "dropped", len(summary.Dropped))
	} else {
		logging.Debug("registry reconciled", "refreshed", len(summary.Refreshed))
	}
	return summary
}
