package supervisor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Process is a running child as seen by the supervisor: it can be polled
// for exit and asked to terminate. Nothing else.
type Process interface {
	Pid() int
	// Exited never blocks.
	Exited() (code int, done bool)
	// Terminate requests a graceful stop and returns without waiting.
	Terminate() error
}

// Spawner starts the OS process for a target.
type Spawner interface {
	Spawn(t Target) (Process, error)
}

// ExecSpawner starts children with os/exec. Children share the
// supervisor's process group and inherit its stdout/stderr.
type ExecSpawner struct {
	Stdout io.Writer
	Stderr io.Writer
	Env    []string // nil inherits the supervisor's environment
}

// NewExecSpawner returns a spawner wired to the supervisor's own stdio.
func NewExecSpawner() *ExecSpawner {
	return &ExecSpawner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Spawn starts t. exec.Command rather than CommandContext: cancelling the
// supervisor must not SIGKILL the children.
func (s *ExecSpawner) Spawn(t Target) (Process, error) {
	name, args := t.Command()
	cmd := exec.Command(name, args...)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	cmd.Env = s.Env

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	p := &execProcess{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go p.wait()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	code int // written before done is closed
}

func (p *execProcess) wait() {
	err := p.cmd.Wait()
	p.code = exitCode(p.cmd.ProcessState, err)
	close(p.done)
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Exited() (int, bool) {
	select {
	case <-p.done:
		return p.code, true
	default:
		return 0, false
	}
}

func (p *execProcess) Terminate() error {
	err := terminate(p.cmd.Process)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// exitCode follows the shell convention of 128+signal for children
// killed by a signal.
func exitCode(state *os.ProcessState, err error) int {
	if state == nil {
		return -1
	}
	if code, ok := signalExitCode(state); ok {
		return code
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return state.ExitCode()
}
