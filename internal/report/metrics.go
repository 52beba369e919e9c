package report

import (
	"sync"
	"sync/atomic"
)

// Metrics are plain in-process counters. Nothing is exported; the run
// command prints them when the supervisor stops.
type Metrics struct {
	Launches    atomic.Uint64 // every successful spawn, initial or relaunch
	Restarts    atomic.Uint64 // spawns that replaced an exited handle
	NormalExits atomic.Uint64 // exit_code=0
	Crashes     atomic.Uint64 // exit_code!=0

	mu        sync.Mutex
	perTarget map[string]*TargetCounts
}

// TargetCounts holds the counters for a single target.
type TargetCounts struct {
	Launches    uint64
	NormalExits uint64
	Crashes     uint64
	LastExit    int
}

// NewMetrics returns zeroed counters.
func NewMetrics() *Metrics {
	return &Metrics{perTarget: make(map[string]*TargetCounts)}
}

func (m *Metrics) target(name string) *TargetCounts {
	tc, ok := m.perTarget[name]
	if !ok {
		tc = &TargetCounts{}
		m.perTarget[name] = tc
	}
	return tc
}

// RecordLaunch counts a spawn. restart is true when it replaced an exited handle.
func (m *Metrics) RecordLaunch(target string, restart bool) {
	m.Launches.Add(1)
	if restart {
		m.Restarts.Add(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.target(target).Launches++
}

// RecordResult updates the exit counters from a single Result.
func (m *Metrics) RecordResult(r *Result) {
	if r.Outcome == OutcomeNormal {
		m.NormalExits.Add(1)
	} else {
		m.Crashes.Add(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	tc := m.target(r.Target)
	if r.Outcome == OutcomeNormal {
		tc.NormalExits++
	} else {
		tc.Crashes++
	}
	tc.LastExit = r.ExitCode
}

// Target returns a copy of the counters for name.
func (m *Metrics) Target(name string) TargetCounts {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tc, ok := m.perTarget[name]; ok {
		return *tc
	}
	return TargetCounts{}
}

// Snapshot returns the current totals.
func (m *Metrics) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"launches":     m.Launches.Load(),
		"restarts":     m.Restarts.Load(),
		"normal_exits": m.NormalExits.Load(),
		"crashes":      m.Crashes.Load(),
	}
}
