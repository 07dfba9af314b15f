package health

import (
	"context"
	"log/slog"
	"time"
)

// DefaultCheckTimeout is how long a check process may run before it is
// killed and reported as still running.
const DefaultCheckTimeout = 3 * time.Second

const (
	minPollInterval = 5 * time.Millisecond
	maxPollInterval = 100 * time.Millisecond
)

// Checker runs one bounded-time health check for a mount path.
type Checker interface {
	Run(ctx context.Context, path string) (Status, error)
}

// Supervisor launches check processes and waits for them up to a fixed deadline.
type Supervisor struct {
	spawner Spawner
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewSupervisor creates a Supervisor that waits at most timeout for each check.
func NewSupervisor(spawner Spawner, timeout time.Duration, logger *slog.Logger) *Supervisor {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Supervisor{
		spawner: spawner,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Timeout returns the per-check deadline.
func (s *Supervisor) Timeout() time.Duration {
	return s.timeout
}

// Run launches a check against path and returns its outcome.
//
// If the process exits before the deadline the result is Alive, CheckFailed
// or CheckSignaled. Otherwise the process is sent SIGKILL, without waiting
// for it to die, and a CheckRunning holding the handle is returned so a
// later cycle can poll it. Cancelling ctx ends the wait early the same way.
// A spawn failure is returned as an error and nothing is left running.
func (s *Supervisor) Run(ctx context.Context, path string) (Status, error) {
	started := s.now()
	proc, err := s.spawner.Spawn(path)
	if err != nil {
		return nil, err
	}

	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()

	interval := minPollInterval
	for {
		exit, err := proc.Poll()
		if err != nil {
			// The handle is unusable; make sure nothing is left behind.
			_ = proc.Kill()
			proc.Release()
			return nil, err
		}
		if exit != nil {
			proc.Release()
			return StatusOf(*exit), nil
		}

		wait := time.NewTimer(interval)
		select {
		case <-wait.C:
		case <-deadline.C:
			wait.Stop()
			return s.abandon(path, proc, started), nil
		case <-ctx.Done():
			wait.Stop()
			return s.abandon(path, proc, started), nil
		}

		interval *= 2
		if interval > maxPollInterval {
			interval = maxPollInterval
		}
	}
}

// abandon stops waiting on proc. One last poll catches a process that exited
// right at the deadline; otherwise it is killed and handed back as running.
func (s *Supervisor) abandon(path string, proc Process, started time.Time) Status {
	if exit, err := proc.Poll(); err == nil && exit != nil {
		proc.Release()
		return StatusOf(*exit)
	}

	if err := proc.Kill(); err != nil {
		s.logger.Warn("unable to kill check process",
			"path", path,
			"pid", proc.Pid(),
			"error", err,
		)
	}
	return CheckRunning{Process: proc, Started: started}
}
