// Package health provides mount health checking and state management.
package health

import (
	"fmt"
	"syscall"
	"time"
)

// Status is the latest known state of a single mountpoint.
//
// It is a closed set: Alive, CheckFailed, CheckSignaled and CheckRunning are
// the only implementations, and every switch over a Status handles all four.
type Status interface {
	// Alive reports whether the last completed check succeeded.
	Alive() bool
	String() string

	status()
}

// Alive means the last completed check exited 0.
type Alive struct{}

// CheckFailed means the last completed check exited with a non-zero code.
type CheckFailed struct {
	Code int
}

// CheckSignaled means the last check process was terminated by a signal
// without producing an exit code.
type CheckSignaled struct {
	Signal syscall.Signal
}

// CheckRunning means a check was launched and has not been confirmed exited.
// The entry holding it is the only owner of Process.
type CheckRunning struct {
	Process Process
	Started time.Time
}

func (Alive) status()         {}
func (CheckFailed) status()   {}
func (CheckSignaled) status() {}
func (CheckRunning) status()  {}

func (Alive) Alive() bool         { return true }
func (CheckFailed) Alive() bool   { return false }
func (CheckSignaled) Alive() bool { return false }
func (CheckRunning) Alive() bool  { return false }

func (Alive) String() string { return "alive" }

func (s CheckFailed) String() string { return fmt.Sprintf("failed(%d)", s.Code) }

func (s CheckSignaled) String() string { return fmt.Sprintf("signaled(%d)", int(s.Signal)) }

func (s CheckRunning) String() string { return "running" }

// Elapsed returns how long the check has been outstanding.
func (s CheckRunning) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.Started)
}

// UnknownExitCode is recorded when a check handle had to be abandoned
// without ever observing how it exited.
const UnknownExitCode = -1

// ExitState describes how a check process terminated.
type ExitState struct {
	Code   int            // Exit code; meaningful only when Signal is 0
	Signal syscall.Signal // Terminating signal, 0 if the process exited normally
}

// Signaled reports whether the process was terminated by a signal.
func (e ExitState) Signaled() bool {
	return e.Signal != 0
}

func (e ExitState) String() string {
	if e.Signaled() {
		return "signal: " + e.Signal.String()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// StatusOf maps a terminated check process to the status it represents:
// exit 0 is Alive, exit N is CheckFailed{N}, signal S is CheckSignaled{S}.
func StatusOf(e ExitState) Status {
	switch {
	case e.Signaled():
		return CheckSignaled{Signal: e.Signal}
	case e.Code == 0:
		return Alive{}
	default:
		return CheckFailed{Code: e.Code}
	}
}

// MountSnapshot is a copy of one mountpoint's status for reporting.
// It holds no process handle.
type MountSnapshot struct {
	Path         string
	Status       string
	Alive        bool
	ExitCode     int
	Signal       int
	RunningSince time.Time
}

// Snapshot returns a point-in-time, handle-free copy of s for path.
func Snapshot(path string, s Status) MountSnapshot {
	snap := MountSnapshot{
		Path:   path,
		Status: s.String(),
		Alive:  s.Alive(),
	}
	switch st := s.(type) {
	case Alive:
	case CheckFailed:
		snap.ExitCode = st.Code
	case CheckSignaled:
		snap.Signal = int(st.Signal)
	case CheckRunning:
		snap.RunningSince = st.Started
	}
	return snap
}
