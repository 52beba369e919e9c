package supervisor

import (
	"path/filepath"
	"strings"

	"github.com/psantana5/trinity/internal/gate"
	"github.com/psantana5/trinity/internal/integrity"
	"github.com/psantana5/trinity/internal/pulse"
)

// AnchorDigest is the digest of one anchor file.
type AnchorDigest struct {
	Path  string `json:"path"`
	Label string `json:"label"`
	Sum   string `json:"sum"`
}

// AnchorLabel names an anchor for the status log: its base name without
// extension, upper-cased when it looks like an abbreviation.
// "constants/kjv.txt" is "KJV", "constants/constitution.txt" is "Constitution".
func AnchorLabel(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		return base
	}
	if len(name) <= 3 {
		return strings.ToUpper(name)
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// PreflightReport is what the gate learned about a target that passed.
type PreflightReport struct {
	Target    string         `json:"target"`
	Config    gate.Config    `json:"config"`
	Algorithm string         `json:"algorithm"`
	Digests   []AnchorDigest `json:"digests"`
	Pulse     bool           `json:"pulse"`
}

// Preflight runs the gate for t without spawning anything: load the config,
// authorize it, verify the anchors (config path included), digest the
// anchors and evaluate the pulse. The config is loaded before the anchors
// are checked, so a missing config file surfaces as a gate.ParseError.
func Preflight(t Target, layout Layout, digester *integrity.Digester) (*PreflightReport, error) {
	dir := t.Dir()

	cfg, err := gate.Load(filepath.Join(dir, layout.ConfigPath))
	if err != nil {
		return nil, &FatalError{Target: t.Name, Err: err}
	}
	if err := gate.Authorize(cfg); err != nil {
		return nil, &FatalError{Target: t.Name, Err: err}
	}
	if err := integrity.Verify(dir, layout.Required()); err != nil {
		return nil, &FatalError{Target: t.Name, Err: err}
	}

	rep := &PreflightReport{
		Target:    t.Name,
		Config:    cfg,
		Algorithm: digester.Algorithm.Label(),
		Pulse:     pulse.Evaluate(cfg),
	}
	for _, anchor := range layout.Anchors {
		sum, err := digester.Digest(filepath.Join(dir, anchor))
		if err != nil {
			return nil, &FatalError{Target: t.Name, Err: err}
		}
		rep.Digests = append(rep.Digests, AnchorDigest{Path: anchor, Label: AnchorLabel(anchor), Sum: sum})
	}
	return rep, nil
}
