//go:build unix

package supervisor

import (
	"os"
	"syscall"
)

// terminate sends SIGTERM for graceful shutdown.
func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

func signalExitCode(state *os.ProcessState) (int, bool) {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return 128 + int(ws.Signal()), true
}
