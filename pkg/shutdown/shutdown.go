package shutdown

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Manager turns SIGINT/SIGTERM into context cancellation and runs the
// registered hooks once. Hooks are fire-and-forget: there is no timeout
// phase and nothing waits for children to exit.
type Manager struct {
	hooks []func() error
	mu    sync.Mutex
	once  sync.Once
	out   io.Writer
}

// New creates a new shutdown manager
func New() *Manager {
	return &Manager{out: os.Stdout}
}

// SetOutput redirects the manager's own status lines.
func (m *Manager) SetOutput(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = w
}

// Register adds a shutdown hook. Hooks run in reverse order (LIFO).
func (m *Manager) Register(fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Signals returns the signals that trigger shutdown.
func Signals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// Context returns a context cancelled on the first shutdown signal.
// Call stop to release the signal handler.
func (m *Manager) Context(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, Signals()...)
}

// Shutdown runs every registered hook once, newest first. Errors are
// printed and do not stop the remaining hooks.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		for i := len(m.hooks) - 1; i >= 0; i-- {
			if err := m.hooks[i](); err != nil {
				fmt.Fprintf(m.out, "Shutdown hook %d error: %v\n", i, err)
			}
		}
	})
}

// CloseResource creates a shutdown hook for io.Closer
func CloseResource(closer io.Closer, name string) func() error {
	return func() error {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", name, err)
		}
		return nil
	}
}
