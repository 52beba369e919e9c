//go:build windows

package instance

// writePID is a no-op: LockFileEx locks are mandatory and would reject a
// write through a second handle.
func writePID(path string) error {
	return nil
}
