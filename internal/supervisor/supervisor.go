// Package supervisor launches a fixed set of targets behind the config gate
// and integrity check, and relaunches any target whose process exits.
//
// All state is owned by the goroutine that calls Start, Tick, Run and
// Shutdown. None of these methods are safe for concurrent use.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/psantana5/trinity/internal/integrity"
	"github.com/psantana5/trinity/internal/observe"
	"github.com/psantana5/trinity/internal/pulse"
	"github.com/psantana5/trinity/internal/report"
	"github.com/psantana5/trinity/pkg/logging"
)

// DefaultPollInterval is the monitor loop tick.
const DefaultPollInterval = time.Second

// Options configures a Supervisor. Zero values get defaults in New.
type Options struct {
	Layout       Layout
	Digester     *integrity.Digester
	Spawner      Spawner
	Logger       *logging.Logger
	PollInterval time.Duration
	Metrics      *report.Metrics
	Exits        *report.ExitLog
}

// Supervisor owns one Handle per target.
type Supervisor struct {
	targets []Target
	handles map[string]*Handle

	layout   Layout
	digester *integrity.Digester
	spawner  Spawner
	logger   *logging.Logger
	poll     time.Duration
	metrics  *report.Metrics
	exits    *report.ExitLog

	stopped bool
}

// New validates the target set and returns an unstarted supervisor.
// Targets are launched and polled in the order given.
func New(targets []Target, opts Options) (*Supervisor, error) {
	if len(targets) == 0 {
		return nil, errors.New("no targets configured")
	}
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if t.Name == "" {
			return nil, errors.New("target with empty name")
		}
		if t.Executable == "" {
			return nil, fmt.Errorf("target %s: empty executable path", t.Name)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = true
	}

	s := &Supervisor{
		targets:  append([]Target(nil), targets...),
		handles:  make(map[string]*Handle, len(targets)),
		layout:   opts.Layout,
		digester: opts.Digester,
		spawner:  opts.Spawner,
		logger:   opts.Logger,
		poll:     opts.PollInterval,
		metrics:  opts.Metrics,
		exits:    opts.Exits,
	}
	if s.digester == nil {
		s.digester = integrity.NewDigester(integrity.SHA256)
	}
	if s.spawner == nil {
		s.spawner = NewExecSpawner()
	}
	if s.logger == nil {
		s.logger = logging.NewLogger(logging.INFO, false)
	}
	if s.poll <= 0 {
		s.poll = DefaultPollInterval
	}
	if s.metrics == nil {
		s.metrics = report.NewMetrics()
	}
	if s.exits == nil {
		s.exits = report.NewExitLog(50)
	}
	return s, nil
}

// Launch runs the full launch sequence for t: Preflight (load config,
// authorize, verify anchors, digest), report the digests and pulse, spawn.
func (s *Supervisor) Launch(t Target) (*Handle, error) {
	s.logger.Info(fmt.Sprintf("Launching %s...", t.Name))

	rep, err := Preflight(t, s.layout, s.digester)
	if err != nil {
		return nil, err
	}
	for _, d := range rep.Digests {
		s.logger.Info(fmt.Sprintf("%s %s: %s", d.Label, rep.Algorithm, d.Sum))
	}
	s.logger.Info(fmt.Sprintf("PROFIT-PULSE: %s", pulse.Label(rep.Pulse)))

	proc, err := s.spawner.Spawn(t)
	if err != nil {
		return nil, &FatalError{Target: t.Name, Err: err}
	}

	h := &Handle{
		Target: t,
		PID:    proc.Pid(),
		Timing: observe.NewTiming(),
		proc:   proc,
	}
	s.logger.Debug(fmt.Sprintf("%s started", t.Name), map[string]interface{}{
		"pid":     h.PID,
		"process": observe.ProcessName(h.PID),
	})
	return h, nil
}

// Start launches every target in declared order. The first fatal error
// stops the bootstrap: later targets are never reached and targets already
// launched are left running.
func (s *Supervisor) Start() error {
	for _, t := range s.targets {
		h, err := s.Launch(t)
		if err != nil {
			return err
		}
		s.handles[t.Name] = h
		s.metrics.RecordLaunch(t.Name, false)
	}
	s.logger.Info(fmt.Sprintf("All %d targets launched. Monitoring...", len(s.targets)))
	return nil
}

// Tick polls every handle once, in declared order, and relaunches any
// target whose process has exited, whatever its exit code.
func (s *Supervisor) Tick() error {
	for _, t := range s.targets {
		h, ok := s.handles[t.Name]
		if !ok {
			continue
		}
		code, done := h.Exited()
		if !done {
			continue
		}

		lifetime := h.Timing.Complete(time.Now())
		result := report.NewResult(t.Name, h.PID, code, lifetime.StartedAt, lifetime.CompletedAt)
		result.LogSummary(s.logger)
		s.metrics.RecordResult(result)
		s.exits.Record(result)

		next, err := s.Launch(t)
		if err != nil {
			return err
		}
		s.handles[t.Name] = next
		s.metrics.RecordLaunch(t.Name, true)
	}
	return nil
}

// Run polls every PollInterval until ctx is cancelled or a relaunch fails.
// On cancellation it calls Shutdown and returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return nil
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				return err
			}
		}
	}
}

// Shutdown asks every child that is still running to terminate. It does
// not wait for them to exit.
func (s *Supervisor) Shutdown() {
	if s.stopped {
		return
	}
	s.stopped = true

	s.logger.Info("Shutting down all targets...")
	for _, t := range s.targets {
		h, ok := s.handles[t.Name]
		if !ok {
			continue
		}
		if _, done := h.Exited(); done {
			continue
		}
		if err := h.proc.Terminate(); err != nil {
			s.logger.Warn(fmt.Sprintf("%s: terminate failed: %v", t.Name, err), map[string]interface{}{"pid": h.PID})
		}
	}
}

// Handles returns the current handles in declared order. Targets that were
// never launched are skipped.
func (s *Supervisor) Handles() []*Handle {
	out := make([]*Handle, 0, len(s.handles))
	for _, t := range s.targets {
		if h, ok := s.handles[t.Name]; ok {
			out = append(out, h)
		}
	}
	return out
}

// Metrics returns the supervisor's counters.
func (s *Supervisor) Metrics() *report.Metrics {
	return s.metrics
}

// Exits returns the recent exit history.
func (s *Supervisor) Exits() *report.ExitLog {
	return s.exits
}
