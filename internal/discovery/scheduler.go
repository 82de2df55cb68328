package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/hmjahid/build-studio/internal/logging"
)

// Scheduler runs discovery and reconciliation on an interval.
type Scheduler struct {
	scheduler  gocron.Scheduler
	discoverer *Discoverer
	reconciler Reconciler
	ctx        context.Context
	log        *slog.Logger
}

// NewScheduler creates a scheduler that syncs r from d.
func NewScheduler(d *Discoverer, r Reconciler) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{
		scheduler:  s,
		discoverer: d,
		reconciler: r,
		ctx:        context.Background(),
		log:        logging.Component("discovery"),
	}, nil
}

// ScheduleReconcile registers the periodic job and returns its id. The
// first run happens immediately; overlapping runs are skipped.
func (s *Scheduler) ScheduleReconcile(interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("reconcile interval must be positive (got %s)", interval)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.reconcile),
		gocron.WithName("node-reconcile"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create reconcile job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins running scheduled jobs. Scans use ctx until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting node discovery scheduler")
	s.ctx = ctx
	s.scheduler.Start()
}

// Stop waits for a running job and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.log.Info("stopping node discovery scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) reconcile() {
	res, summary := s.discoverer.Sync(s.ctx, s.reconciler)
	s.log.Debug("scheduled reconcile finished",
		"scanned", len(res.Scanned),
		"failed", len(res.Errors),
		"adopted", len(summary.Adopted),
		"dropped", len(summary.Dropped))
}
