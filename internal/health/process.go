package health

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// Process is a handle on a launched check process.
//
// Poll and Kill never block: a process stuck in uninterruptible I/O may
// ignore SIGKILL indefinitely, and the monitor must not wait on it.
// A Process is owned by exactly one mountpoint entry and is not safe for
// concurrent use.
type Process interface {
	// Pid returns the OS process id.
	Pid() int
	// Poll reports the exit state if the process has terminated, or nil
	// if it is still running.
	Poll() (*ExitState, error)
	// Kill sends SIGKILL without waiting for the process to die.
	Kill() error
	// Release drops the handle. The process is not supervised afterwards.
	Release()
}

// Spawner launches one check process for a mount path.
type Spawner interface {
	Spawn(path string) (Process, error)
}

// CommandSpawner runs an external command with the mount path appended as
// its last argument. Output is discarded.
type CommandSpawner struct {
	Name string
	Args []string
}

// NewCommandSpawner builds a spawner from a command line such as
// []string{"/usr/bin/stat"}.
func NewCommandSpawner(command []string) (*CommandSpawner, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("check command is empty")
	}
	return &CommandSpawner{
		Name: command[0],
		Args: append([]string(nil), command[1:]...),
	}, nil
}

// Spawn starts the command against path.
//
// exec.Cmd.Wait is never called: reaping goes through Poll so that no
// goroutine is left blocked on a process that never exits.
func (s *CommandSpawner) Spawn(path string) (Process, error) {
	args := make([]string, 0, len(s.Args)+1)
	args = append(args, s.Args...)
	args = append(args, path)

	// Nil stdio is connected to the null device.
	cmd := exec.Command(s.Name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", s.Name, err)
	}
	return &childProcess{proc: cmd.Process}, nil
}

// childProcess is a Process backed by a real child of this process.
type childProcess struct {
	proc *os.Process
	exit *ExitState
}

func (c *childProcess) Pid() int {
	return c.proc.Pid
}

func (c *childProcess) Poll() (*ExitState, error) {
	if c.exit != nil {
		return c.exit, nil
	}

	var ws unix.WaitStatus
	for {
		pid, err := unix.Wait4(c.proc.Pid, &ws, unix.WNOHANG, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("wait4 pid %d: %w", c.proc.Pid, err)
		}
		if pid == 0 {
			return nil, nil
		}
		break
	}

	switch {
	case ws.Exited():
		c.exit = &ExitState{Code: ws.ExitStatus()}
	case ws.Signaled():
		c.exit = &ExitState{Signal: ws.Signal()}
	default:
		// Stop/continue notifications are not requested, so anything else
		// is treated as still running.
		return nil, nil
	}
	return c.exit, nil
}

func (c *childProcess) Kill() error {
	if c.exit != nil {
		return nil
	}
	return c.proc.Signal(unix.SIGKILL)
}

func (c *childProcess) Release() {
	_ = c.proc.Release()
}
