// Package discovery enumerates the node environments that actually exist
// on the host and feeds them back into the node registry.
package discovery

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hmjahid/build-studio/internal/backend"
	"github.com/hmjahid/build-studio/internal/logging"
	"github.com/hmjahid/build-studio/internal/metrics"
	"github.com/hmjahid/build-studio/internal/node"
)

// Scanner enumerates the environments of one technology.
type Scanner interface {
	Technology() backend.Technology
	Scan(ctx context.Context) ([]backend.Observed, error)
}

// Result is the outcome of one discovery pass.
type Result struct {
	Nodes     []backend.Observed           `json:"nodes"`
	Scanned   []backend.Technology         `json:"scanned"`
	Errors    map[backend.Technology]error `json:"-"`
	StartedAt time.Time                    `json:"started_at"`
}

// Observation converts the result for node.Manager.Reconcile.
func (r Result) Observation() node.Observation {
	return node.Observation{
		Nodes:     r.Nodes,
		Scanned:   r.Scanned,
		StartedAt: r.StartedAt,
	}
}

// Discoverer runs a set of scanners.
type Discoverer struct {
	scanners []Scanner
	recorder metrics.Recorder
	now      func() time.Time
}

// New creates a Discoverer. A nil recorder disables metrics.
func New(recorder metrics.Recorder, scanners ...Scanner) *Discoverer {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Discoverer{scanners: scanners, recorder: recorder, now: time.Now}
}

// Scan runs every scanner concurrently. A scanner that fails contributes no
// nodes and its technology is left out of Scanned.
func (d *Discoverer) Scan(ctx context.Context) Result {
	res := Result{
		Errors:    make(map[backend.Technology]error),
		StartedAt: d.now(),
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, s := range d.scanners {
		g.Go(func() error {
			tech := s.Technology()
			found, err := s.Scan(ctx)
			d.recorder.IncScanResult(string(tech), metrics.ResultOf(err))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logging.Warn("node scan failed", "technology", tech, "error", err)
				res.Errors[tech] = err
				return nil
			}
			logging.Debug("node scan finished", "technology", tech, "found", len(found))
			res.Scanned = append(res.Scanned, tech)
			res.Nodes = append(res.Nodes, found...)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(res.Scanned, func(i, j int) bool { return res.Scanned[i] < res.Scanned[j] })
	sort.Slice(res.Nodes, func(i, j int) bool {
		if res.Nodes[i].Technology != res.Nodes[j].Technology {
			return res.Nodes[i].Technology < res.Nodes[j].Technology
		}
		return res.Nodes[i].NodeID < res.Nodes[j].NodeID
	})
	return res
}

// Reconciler merges discovery results into a registry.
type Reconciler interface {
	Reconcile(obs node.Observation) node.ReconcileSummary
}

// Sync runs one scan and merges it into r.
func (d *Discoverer) Sync(ctx context.Context, r Reconciler) (Result, node.ReconcileSummary) {
	res := d.Scan(ctx)
	return res, r.Reconcile(res.Observation())
}
