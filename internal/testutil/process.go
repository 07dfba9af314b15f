package testutil

import (
	"errors"
	"fmt"
	"sync"
	"syscall"

	"github.com/cscheib/mount-status-monitor/internal/health"
)

// FakeProcess is a health.Process whose lifetime is driven by the test.
// A zero FakeProcess runs until Exit is called; Kill is recorded but does
// not end it unless DieOnKill is set, which models a process stuck in
// uninterruptible I/O.
type FakeProcess struct {
	mu        sync.Mutex
	pid       int
	exit      *health.ExitState
	pollErr   error
	dieOnKill bool
	kills     int
	polls     int
	released  bool
}

// NewFakeProcess returns a running fake process.
func NewFakeProcess(pid int) *FakeProcess {
	return &FakeProcess{pid: pid}
}

// ExitedProcess returns a fake process that has already terminated.
func ExitedProcess(pid int, state health.ExitState) *FakeProcess {
	return &FakeProcess{pid: pid, exit: &state}
}

// DieOnKill makes a later Kill terminate the process with SIGKILL.
func (p *FakeProcess) DieOnKill() *FakeProcess {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dieOnKill = true
	return p
}

// Exit terminates the process with the given state.
func (p *FakeProcess) Exit(state health.ExitState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exit = &state
}

// FailPolls makes every later Poll return err.
func (p *FakeProcess) FailPolls(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollErr = err
}

func (p *FakeProcess) Pid() int { return p.pid }

func (p *FakeProcess) Poll() (*health.ExitState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	if p.pollErr != nil {
		return nil, p.pollErr
	}
	if p.exit == nil {
		return nil, nil
	}
	state := *p.exit
	return &state, nil
}

func (p *FakeProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kills++
	if p.dieOnKill && p.exit == nil {
		p.exit = &health.ExitState{Signal: syscall.SIGKILL}
	}
	return nil
}

func (p *FakeProcess) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
}

// Kills returns how many times Kill was called.
func (p *FakeProcess) Kills() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kills
}

// Polls returns how many times Poll was called.
func (p *FakeProcess) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

// Released reports whether the handle was released.
func (p *FakeProcess) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// FakeSpawner is a health.Spawner whose processes come from Behavior.
// It records every spawn per path and is safe for concurrent use.
type FakeSpawner struct {
	mu       sync.Mutex
	behavior func(path string, pid int) (*FakeProcess, error)
	nextPid  int
	spawned  map[string][]*FakeProcess
}

// NewFakeSpawner creates a spawner that asks behavior for each process.
func NewFakeSpawner(behavior func(path string, pid int) (*FakeProcess, error)) *FakeSpawner {
	return &FakeSpawner{
		behavior: behavior,
		nextPid:  1000,
		spawned:  make(map[string][]*FakeProcess),
	}
}

// ExitingSpawner returns a spawner whose checks exit immediately with the
// state mapped for their path, and exit 0 for unmapped paths.
func ExitingSpawner(states map[string]health.ExitState) *FakeSpawner {
	return NewFakeSpawner(func(path string, pid int) (*FakeProcess, error) {
		return ExitedProcess(pid, states[path]), nil
	})
}

// ErrSpawn is returned by spawners built with FailingSpawner.
var ErrSpawn = errors.New("fake spawn failure")

// FailingSpawner returns a spawner that never manages to start a process.
func FailingSpawner() *FakeSpawner {
	return NewFakeSpawner(func(path string, _ int) (*FakeProcess, error) {
		return nil, fmt.Errorf("starting check for %s: %w", path, ErrSpawn)
	})
}

func (s *FakeSpawner) Spawn(path string) (health.Process, error) {
	s.mu.Lock()
	s.nextPid++
	pid := s.nextPid
	s.mu.Unlock()

	proc, err := s.behavior(path, pid)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.spawned[path] = append(s.spawned[path], proc)
	s.mu.Unlock()
	return proc, nil
}

// Spawned returns the processes started for path, oldest first.
func (s *FakeSpawner) Spawned(path string) []*FakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FakeProcess(nil), s.spawned[path]...)
}

// Count returns how many processes were started for path.
func (s *FakeSpawner) Count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spawned[path])
}

// Total returns how many processes were started across all paths.
func (s *FakeSpawner) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, procs := range s.spawned {
		n += len(procs)
	}
	return n
}
