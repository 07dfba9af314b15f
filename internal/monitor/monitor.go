// Package monitor drives the mount health checking cycle.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cscheib/mount-status-monitor/internal/health"
)

// Reporter receives the aggregate result of every tick.
type Reporter interface {
	Report(ctx context.Context, s Summary)
}

// Snapshot is the state published after a tick. It never holds process handles.
type Snapshot struct {
	Time    time.Time
	Summary Summary
	Mounts  []health.MountSnapshot
}

// Monitor runs the Scheduler at a fixed interval, or exactly once.
type Monitor struct {
	scheduler *Scheduler
	registry  *Registry
	reporter  Reporter
	interval  time.Duration
	onceOnly  bool
	logger    *slog.Logger

	wg   sync.WaitGroup
	done chan struct{}
	err  error

	mu   sync.RWMutex
	last *Snapshot
}

// New creates a new Monitor instance. The registry is owned by the caller.
func New(scheduler *Scheduler, registry *Registry, reporter Reporter, interval time.Duration, onceOnly bool, logger *slog.Logger) *Monitor {
	return &Monitor{
		scheduler: scheduler,
		registry:  registry,
		reporter:  reporter,
		interval:  interval,
		onceOnly:  onceOnly,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start begins the poll loop. It runs until the context is cancelled, a tick
// fails, or, in once-only mode, the first tick has been reported.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.run(ctx)
}

// Done is closed when the loop has stopped.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the loop has stopped and returns the error that stopped
// it, which is nil for cancellation and once-only completion.
func (m *Monitor) Wait() error {
	m.wg.Wait()
	return m.err
}

// Snapshot returns the state published by the latest tick.
func (m *Monitor) Snapshot() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return Snapshot{}, false
	}
	return *m.last, true
}

// Interval returns the configured poll interval.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()
	defer close(m.done)

	// Perform initial check immediately
	if !m.tick(ctx) || m.onceOnly {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor shutting down")
			return
		case <-ticker.C:
			if !m.tick(ctx) {
				return
			}
		}
	}
}

// tick runs one cycle and reports it. It returns false if the loop must stop.
func (m *Monitor) tick(ctx context.Context) bool {
	summary, err := m.scheduler.Tick(ctx, m.registry)
	if err != nil {
		m.err = err
		return false
	}
	// Checks cut short by shutdown say nothing about the mounts.
	if ctx.Err() != nil {
		return false
	}

	m.reporter.Report(ctx, summary)

	m.mu.Lock()
	m.last = &Snapshot{
		Time:    time.Now(),
		Summary: summary,
		Mounts:  m.registry.Snapshot(),
	}
	m.mu.Unlock()
	return true
}
