package supervisor

import (
	"path/filepath"

	"github.com/psantana5/trinity/internal/observe"
)

// Target is one named, independently supervised child.
type Target struct {
	Name       string
	Executable string
	// Interpreter, when set, runs Executable as its first argument
	// (e.g. "python3 kernel.py").
	Interpreter string
	Args        []string
}

// Dir is the directory the anchors and config are resolved against.
func (t Target) Dir() string {
	return filepath.Dir(t.Executable)
}

// Command returns the program and arguments to exec.
func (t Target) Command() (string, []string) {
	if t.Interpreter == "" {
		return t.Executable, t.Args
	}
	args := make([]string, 0, len(t.Args)+1)
	args = append(args, t.Executable)
	args = append(args, t.Args...)
	return t.Interpreter, args
}

// Layout is the per-target filesystem layout, relative to Target.Dir.
type Layout struct {
	// Anchors must exist and are digested, in this order, on every launch.
	Anchors []string
	// ConfigPath is the gate document. It is also a required file.
	ConfigPath string
}

// Required is the full anchor set checked by integrity.Verify: the
// anchors followed by the config path.
func (l Layout) Required() []string {
	out := make([]string, 0, len(l.Anchors)+1)
	out = append(out, l.Anchors...)
	if l.ConfigPath != "" {
		out = append(out, l.ConfigPath)
	}
	return out
}

// Handle owns exactly one child process. It is never modified after
// Launch returns; when the child exits a new Handle replaces it.
type Handle struct {
	Target Target
	PID    int
	Timing observe.Timing

	proc Process
}

// Exited reports the exit code once the child has exited.
func (h *Handle) Exited() (int, bool) {
	return h.proc.Exited()
}
