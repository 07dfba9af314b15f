package health

import (
	"context"
	"log/slog"
	"time"
)

// Machine advances one mountpoint's Status per cycle.
type Machine struct {
	checker Checker
	logger  *slog.Logger
	now     func() time.Time
}

// NewMachine creates a Machine that launches checks through checker.
func NewMachine(checker Checker, logger *slog.Logger) *Machine {
	return &Machine{
		checker: checker,
		logger:  logger,
		now:     time.Now,
	}
}

// Advance returns the status path should hold after this cycle.
//
// A CheckRunning status is polled first. While its process has not exited
// the status is returned unchanged and no new check is launched, so a
// mountpoint never has two outstanding checks. Once it has exited (or the
// handle turns out to be unusable) the handle is released and a fresh check
// is launched in the same cycle. Every other status always leads to a fresh
// check. A check that cannot be spawned leaves the previous outcome in place;
// a nil status is treated as a freshly observed, Alive mountpoint. Once ctx
// is done nothing is polled or launched and current is returned as is.
func (m *Machine) Advance(ctx context.Context, path string, current Status) Status {
	if current == nil {
		current = Alive{}
	}
	if ctx.Err() != nil {
		return current
	}
	if running, ok := current.(CheckRunning); ok {
		next, settled := m.settle(path, running)
		if !settled {
			return current
		}
		current = next
	}

	next, err := m.checker.Run(ctx, path)
	if err != nil {
		m.logger.Error("unable to launch health check",
			"path", path,
			"error", err,
		)
		return current
	}

	m.logResult(path, next)
	return next
}

// settle polls a still-running check. It reports false while the process
// is outstanding; otherwise the handle has been released and the returned
// status is the outcome folded from it.
func (m *Machine) settle(path string, running CheckRunning) (Status, bool) {
	elapsed := running.Elapsed(m.now())
	proc := running.Process

	exit, err := proc.Poll()
	switch {
	case err != nil:
		m.logger.Error("status update for slow check failed, abandoning it",
			"path", path,
			"pid", proc.Pid(),
			"elapsed", elapsed.Round(time.Millisecond).String(),
			"error", err,
		)
		_ = proc.Kill()
		proc.Release()
		return CheckFailed{Code: UnknownExitCode}, true

	case exit == nil:
		m.logger.Warn("slow check has not exited",
			"path", path,
			"pid", proc.Pid(),
			"elapsed", elapsed.Round(time.Millisecond).String(),
		)
		return running, false

	default:
		m.logger.Info("slow check exited",
			"path", path,
			"pid", proc.Pid(),
			"elapsed", elapsed.Round(time.Millisecond).String(),
			"exit", exit.String(),
		)
		proc.Release()
		return StatusOf(*exit), true
	}
}

func (m *Machine) logResult(path string, s Status) {
	if s.Alive() {
		m.logger.Debug("mount passed health check", "path", path)
		return
	}

	attrs := []any{"path", path, "status", s.String()}
	switch st := s.(type) {
	case CheckFailed:
		attrs = append(attrs, "exit_code", st.Code)
	case CheckSignaled:
		attrs = append(attrs, "signal", st.Signal.String())
	case CheckRunning:
		attrs = append(attrs, "pid", st.Process.Pid())
	case Alive:
	}
	m.logger.Error("mount failed health check", attrs...)
}
