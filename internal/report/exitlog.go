package report

import "sync"

// ExitLog keeps the most recent child exits in a fixed-size ring.
type ExitLog struct {
	samples []Result
	maxSize int
	mu      sync.RWMutex
}

// NewExitLog creates an exit log holding at most maxSize entries.
func NewExitLog(maxSize int) *ExitLog {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &ExitLog{
		samples: make([]Result, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record appends r, dropping the oldest entry when full.
func (l *ExitLog) Record(r *Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.samples) >= l.maxSize {
		l.samples = l.samples[1:]
	}
	l.samples = append(l.samples, *r)
}

// Recent returns up to n exits, newest first. n <= 0 means all.
func (l *ExitLog) Recent(n int) []Result {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.samples) {
		n = len(l.samples)
	}

	out := make([]Result, n)
	for i := 0; i < n; i++ {
		out[i] = l.samples[len(l.samples)-1-i]
	}
	return out
}

// Len returns how many exits are held.
func (l *ExitLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.samples)
}
