//go:build unix

package instance

import (
	"fmt"
	"os"
)

// writePID records the holder's PID. flock locks are advisory, so a second
// handle can write while the lock is held.
func writePID(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}
