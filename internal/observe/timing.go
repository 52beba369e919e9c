package observe

import "time"

// Timing records when a child was spawned and when its exit was observed.
// It is a value: Complete returns a new Timing and leaves the receiver alone.
type Timing struct {
	StartedAt   time.Time
	CompletedAt time.Time
}

// NewTiming creates timing with current start time
func NewTiming() Timing {
	return Timing{
		StartedAt: time.Now(),
	}
}

// Complete returns a copy of t that ended at end. An already completed
// Timing is returned unchanged.
func (t Timing) Complete(end time.Time) Timing {
	if t.CompletedAt.IsZero() {
		t.CompletedAt = end
	}
	return t
}

// Duration returns the uptime so far, or the full lifetime once completed.
func (t Timing) Duration() time.Duration {
	if t.CompletedAt.IsZero() {
		return time.Since(t.StartedAt)
	}
	return t.CompletedAt.Sub(t.StartedAt)
}
