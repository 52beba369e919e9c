package report

import (
	"fmt"
	"time"

	"github.com/psantana5/trinity/pkg/logging"
)

// Outcome classifies a child exit. Both outcomes lead to the same relaunch;
// the distinction is only reported.
type Outcome string

const (
	OutcomeNormal Outcome = "normal"
	OutcomeCrash  Outcome = "crash"
)

// Classify maps an exit code to its Outcome.
func Classify(exitCode int) Outcome {
	if exitCode == 0 {
		return OutcomeNormal
	}
	return OutcomeCrash
}

// Result is the immutable record of one child lifetime, from spawn to the
// tick that observed its exit.
type Result struct {
	Target    string        `json:"target"`
	PID       int           `json:"pid"`
	ExitCode  int           `json:"exit_code"`
	Outcome   Outcome       `json:"outcome"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"uptime"`
}

// NewResult creates an immutable result
func NewResult(target string, pid int, exitCode int, startTime, endTime time.Time) *Result {
	return &Result{
		Target:    target,
		PID:       pid,
		ExitCode:  exitCode,
		Outcome:   Classify(exitCode),
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  endTime.Sub(startTime),
	}
}

// Message is the tagged one-line description of the exit.
func (r *Result) Message() string {
	if r.Outcome == OutcomeCrash {
		return fmt.Sprintf("[GRID-LOCK] %s: crashed (code %d), restarting...", r.Target, r.ExitCode)
	}
	return fmt.Sprintf("[INFO] %s: exited normally (code %d), restarting...", r.Target, r.ExitCode)
}

// LogSummary writes Message at ERROR for crashes and INFO otherwise.
func (r *Result) LogSummary(logger *logging.Logger) {
	fields := map[string]interface{}{
		"pid":    r.PID,
		"uptime": r.Duration.Round(time.Millisecond).String(),
	}
	if r.Outcome == OutcomeCrash {
		logger.Error(r.Message(), fields)
		return
	}
	logger.Info(r.Message(), fields)
}
