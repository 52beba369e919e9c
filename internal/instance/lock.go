// Package instance keeps a second supervisor from starting on the same
// target set while one is already running.
package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another supervisor holds the lock.
var ErrLocked = errors.New("another supervisor is already running")

const retryDelay = 100 * time.Millisecond

// Lock is an exclusive advisory lock on a file.
type Lock struct {
	path  string
	flock *flock.Flock
}

// Acquire takes the lock at path, waiting up to timeout. A zero timeout
// tries once. On unix the PID of the holder is written into the file.
func Acquire(path string, timeout time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	fl := flock.New(path)

	var locked bool
	var err error
	if timeout <= 0 {
		locked, err = fl.TryLock()
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		locked, err = fl.TryLockContext(ctx, retryDelay)
		if errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock: %s)", ErrLocked, path)
	}

	if err := writePID(path); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("writing lock %s: %w", path, err)
	}
	return &Lock{path: path, flock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks. The file is left in place.
func (l *Lock) Release() error {
	return l.flock.Unlock()
}

// Close implements io.Closer.
func (l *Lock) Close() error {
	return l.Release()
}
