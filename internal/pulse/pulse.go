// Package pulse derives the display-only profit pulse flag from a target
// config. It never affects whether a target launches.
package pulse

import "github.com/psantana5/trinity/internal/gate"

const (
	ActiveSignal       = "ACTIVE"
	ResonanceThreshold = 0.98
)

// Evaluate is true iff profit_signal is "ACTIVE" and resonance >= 0.98.
func Evaluate(cfg gate.Config) bool {
	signal, ok := cfg.String("profit_signal")
	if !ok || signal != ActiveSignal {
		return false
	}
	resonance, ok, err := cfg.Float("resonance")
	if !ok || err != nil {
		return false
	}
	return resonance >= ResonanceThreshold
}

// Label renders the flag for the PROFIT-PULSE status line.
func Label(active bool) string {
	if active {
		return "ACTIVE"
	}
	return "IDLE"
}
