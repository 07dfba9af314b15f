package health_test

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/cscheib/mount-status-monitor/internal/health"
	"github.com/cscheib/mount-status-monitor/internal/testutil"
	"github.com/matryer/is"
)

const testTimeout = 50 * time.Millisecond

// hangingSpawner starts checks that never exit, even when killed.
func hangingSpawner() *testutil.FakeSpawner {
	return testutil.NewFakeSpawner(func(_ string, pid int) (*testutil.FakeProcess, error) {
		return testutil.NewFakeProcess(pid), nil
	})
}

func newMachine(t *testing.T, spawner health.Spawner) *health.Machine {
	t.Helper()
	logger := testutil.Logger(t)
	return health.NewMachine(health.NewSupervisor(spawner, testTimeout, logger), logger)
}

func TestMachine_NonRunningStatusesLaunchCheck(t *testing.T) {
	tests := []struct {
		name    string
		current health.Status
	}{
		{"no prior entry", nil},
		{"alive", health.Alive{}},
		{"failed", health.CheckFailed{Code: 1}},
		{"signaled", health.CheckSignaled{Signal: syscall.SIGKILL}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)

			spawner := testutil.ExitingSpawner(map[string]health.ExitState{"/mnt/a": {Code: 2}})
			m := newMachine(t, spawner)

			next := m.Advance(context.Background(), "/mnt/a", tt.current)

			is.Equal(spawner.Count("/mnt/a"), 1)                       // one check launched
			is.Equal(next, health.Status(health.CheckFailed{Code: 2})) // outcome adopted
		})
	}
}

func TestMachine_RunningNotExited_KeepsStatusAndDoesNotSpawn(t *testing.T) {
	is := is.New(t)

	spawner := hangingSpawner()
	logger, logs := testutil.CaptureLogger(t)
	m := health.NewMachine(health.NewSupervisor(spawner, testTimeout, logger), logger)

	first := m.Advance(context.Background(), "/mnt/a", health.Alive{})
	running, ok := first.(health.CheckRunning)
	is.True(ok) // hung check reported as running

	second := m.Advance(context.Background(), "/mnt/a", first)

	is.Equal(second, first)                                      // status unchanged
	is.Equal(spawner.Count("/mnt/a"), 1)                         // no second check
	is.True(!running.Process.(*testutil.FakeProcess).Released()) // handle still owned
	is.True(strings.Contains(logs.String(), "slow check has not exited"))
	is.True(strings.Contains(logs.String(), "level=WARN")) // logged as a warning
}

func TestMachine_RunningExited_FoldsAndRechecks(t *testing.T) {
	is := is.New(t)

	spawner := testutil.ExitingSpawner(nil)
	m := newMachine(t, spawner)

	old := testutil.NewFakeProcess(42)
	old.Exit(health.ExitState{Signal: syscall.SIGKILL})
	current := health.CheckRunning{Process: old, Started: time.Now().Add(-time.Minute)}

	next := m.Advance(context.Background(), "/mnt/a", current)

	is.True(old.Released())                       // old handle dropped
	is.Equal(spawner.Count("/mnt/a"), 1)          // fresh check launched in the same cycle
	is.Equal(next, health.Status(health.Alive{})) // fresh outcome adopted
}

func TestMachine_RunningExited_SpawnFailureKeepsFoldedOutcome(t *testing.T) {
	is := is.New(t)

	m := newMachine(t, testutil.FailingSpawner())

	old := testutil.ExitedProcess(42, health.ExitState{Signal: syscall.SIGKILL})
	next := m.Advance(context.Background(), "/mnt/a", health.CheckRunning{Process: old, Started: time.Now()})

	is.True(old.Released())                                                      // old handle dropped
	is.Equal(next, health.Status(health.CheckSignaled{Signal: syscall.SIGKILL})) // last known outcome
}

func TestMachine_PollError_AbandonsBeforeRedispatch(t *testing.T) {
	is := is.New(t)

	spawner := testutil.ExitingSpawner(nil)
	m := newMachine(t, spawner)

	old := testutil.NewFakeProcess(42)
	old.FailPolls(errors.New("no child processes"))

	next := m.Advance(context.Background(), "/mnt/a", health.CheckRunning{Process: old, Started: time.Now()})

	is.Equal(old.Kills(), 1)                      // old process killed
	is.True(old.Released())                       // and released before the new check
	is.Equal(spawner.Count("/mnt/a"), 1)          // new check launched
	is.Equal(next, health.Status(health.Alive{})) // new outcome adopted
}

func TestMachine_PollError_SpawnFailure(t *testing.T) {
	is := is.New(t)

	m := newMachine(t, testutil.FailingSpawner())

	old := testutil.NewFakeProcess(42)
	old.FailPolls(errors.New("no child processes"))

	next := m.Advance(context.Background(), "/mnt/a", health.CheckRunning{Process: old, Started: time.Now()})

	is.True(old.Released())                                                         // no handle left behind
	is.Equal(next, health.Status(health.CheckFailed{Code: health.UnknownExitCode})) // unknown outcome is dead
}

func TestMachine_SpawnFailureLeavesStatus(t *testing.T) {
	is := is.New(t)

	logger, logs := testutil.CaptureLogger(t)
	m := health.NewMachine(health.NewSupervisor(testutil.FailingSpawner(), testTimeout, logger), logger)

	is.Equal(m.Advance(context.Background(), "/mnt/a", health.Alive{}), health.Status(health.Alive{}))
	is.Equal(m.Advance(context.Background(), "/mnt/a", health.CheckFailed{Code: 3}), health.Status(health.CheckFailed{Code: 3}))
	is.True(strings.Contains(logs.String(), "unable to launch health check")) // spawn failure logged
}

func TestMachine_LogsResults(t *testing.T) {
	is := is.New(t)

	spawner := testutil.ExitingSpawner(map[string]health.ExitState{"/mnt/bad": {Code: 1}})
	logger, logs := testutil.CaptureLogger(t)
	m := health.NewMachine(health.NewSupervisor(spawner, testTimeout, logger), logger)

	m.Advance(context.Background(), "/", health.Alive{})
	m.Advance(context.Background(), "/mnt/bad", health.Alive{})

	out := logs.String()
	is.True(strings.Contains(out, `level=DEBUG msg="mount passed health check" path=/`))        // success at debug
	is.True(strings.Contains(out, `level=ERROR msg="mount failed health check" path=/mnt/bad`)) // failure at error
	is.True(strings.Contains(out, "exit_code=1"))
}

func TestMachine_CancelledContextLeavesStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hung := testutil.NewFakeProcess(42)
	running := health.CheckRunning{Process: hung, Started: time.Now()}
	tests := []struct {
		name    string
		current health.Status
		want    health.Status
	}{
		{"no prior entry", nil, health.Alive{}},
		{"alive", health.Alive{}, health.Alive{}},
		{"failed", health.CheckFailed{Code: 3}, health.CheckFailed{Code: 3}},
		{"running", running, running},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)

			spawner := testutil.ExitingSpawner(nil)
			next := newMachine(t, spawner).Advance(ctx, "/mnt/a", tt.current)

			is.Equal(spawner.Total(), 0) // nothing launched after shutdown
			is.Equal(next, tt.want)      // status left as it was
		})
	}

	is := is.New(t)
	is.Equal(hung.Polls(), 0) // running check not polled
	is.True(!hung.Released()) // nor released
}
