//go:build windows

package supervisor

import "os"

// terminate kills the process; Windows has no SIGTERM.
func terminate(p *os.Process) error {
	return p.Kill()
}

func signalExitCode(state *os.ProcessState) (int, bool) {
	return 0, false
}
