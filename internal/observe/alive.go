package observe

import (
	"github.com/shirou/gopsutil/v3/process"
)

// PidAlive reports whether pid is still present in the process table.
// A zombie that has not been reaped yet still counts as present.
func PidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return false
	}
	return exists
}

// ProcessName returns the executable name of pid, or "" if it can't be read.
func ProcessName(pid int) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.Name()
	if err != nil {
		return ""
	}
	return name
}
