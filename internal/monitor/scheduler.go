package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cscheib/mount-status-monitor/internal/health"
	"github.com/cscheib/mount-status-monitor/internal/mounts"
)

// DefaultWorkers bounds how many mountpoints are advanced at once.
const DefaultWorkers = 8

// Advancer moves one mountpoint's status forward by one cycle.
type Advancer interface {
	Advance(ctx context.Context, path string, current health.Status) health.Status
}

// Summary is the aggregate result of one tick.
type Summary struct {
	Total    int           // Known mountpoints
	Dead     int           // Mountpoints whose status is not Alive
	Failed   []string      // Paths of the dead mountpoints, sorted
	Orphans  int           // Abandoned check processes still being reaped
	Duration time.Duration // Wall-clock time the tick took
}

// Scheduler reconciles the Registry with the mount table and advances every
// entry concurrently.
type Scheduler struct {
	enumerator mounts.Enumerator
	machine    Advancer
	workers    int
	logger     *slog.Logger
}

// NewScheduler creates a Scheduler running at most workers checks at a time.
func NewScheduler(enumerator mounts.Enumerator, machine Advancer, workers int, logger *slog.Logger) *Scheduler {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Scheduler{
		enumerator: enumerator,
		machine:    machine,
		workers:    workers,
		logger:     logger,
	}
}

// Tick runs one cycle against reg.
//
// Enumeration failures are returned wrapped in mounts.ErrEnumerate and leave
// reg untouched. Structural changes to reg happen before and after the
// parallel section; inside it each worker owns exactly one entry, so no
// locking is needed. A tick takes at most about ceil(entries/workers)
// check deadlines, however many mounts are hung.
func (s *Scheduler) Tick(ctx context.Context, reg *Registry) (Summary, error) {
	start := time.Now()

	paths, err := s.enumerator.List()
	if err != nil {
		if !errors.Is(err, mounts.ErrEnumerate) {
			err = fmt.Errorf("%w: %w", mounts.ErrEnumerate, err)
		}
		return Summary{}, err
	}

	added, removed := reg.Reconcile(paths)
	for _, p := range added {
		s.logger.Debug("mountpoint added", "path", p)
	}
	for _, p := range removed {
		s.logger.Info("mountpoint removed", "path", p)
	}
	reg.reapOrphans(s.logger)

	work := reg.partition()
	results := make([]health.Status, len(work))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, e := range work {
		g.Go(func() error {
			results[i] = s.machine.Advance(ctx, e.path, e.status)
			return nil
		})
	}
	_ = g.Wait()

	reg.merge(work, results)

	summary := reg.Summarize()
	summary.Orphans = reg.Orphans()
	summary.Duration = time.Since(start)
	return summary, nil
}
