// Package targets holds the static table of supervised targets and the
// per-target file layout.
package targets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/psantana5/trinity/internal/integrity"
	"github.com/psantana5/trinity/internal/supervisor"
)

// Table is the complete target configuration
type Table struct {
	Targets []TargetConfig `yaml:"targets"`

	// Layout, relative to each target's directory
	Anchors    []string `yaml:"anchors"`
	ConfigPath string   `yaml:"config_path"`

	DigestAlgorithm string `yaml:"digest_algorithm"` // "sha256" or "blake3"
}

// TargetConfig is one entry of the table
type TargetConfig struct {
	Name        string   `yaml:"name"`
	Path        string   `yaml:"path"`        // executable; its directory holds anchors and config
	Interpreter string   `yaml:"interpreter"` // optional, e.g. "python3"
	Args        []string `yaml:"args,omitempty"`
}

const (
	defaultConfigPath = "configs/config.json"
	defaultAlgorithm  = "sha256"
)

var defaultAnchors = []string{"constants/constitution.txt", "constants/kjv.txt"}

// Default returns the built-in table: the three kernels under $HOME.
func Default() *Table {
	t := &Table{
		Targets: []TargetConfig{
			{Name: "Reese-Kernel", Path: "~/Reese-Kernel/kernel.py", Interpreter: "python3"},
			{Name: "Trinity-Kernel", Path: "~/Trinity-Kernel/kernel.py", Interpreter: "python3"},
			{Name: "Ghostwalker-Kernel", Path: "~/Ghostwalker-Kernel/kernel.py", Interpreter: "python3"},
		},
	}
	t.setDefaults()
	return t
}

// LoadTable loads a target table from a YAML file
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}

	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse targets file: %w", err)
	}

	table.setDefaults()

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &table, nil
}

func (t *Table) setDefaults() {
	if len(t.Anchors) == 0 {
		t.Anchors = append([]string(nil), defaultAnchors...)
	}
	if t.ConfigPath == "" {
		t.ConfigPath = defaultConfigPath
	}
	if t.DigestAlgorithm == "" {
		t.DigestAlgorithm = defaultAlgorithm
	}
}

// Validate checks names are unique and every target has a path.
func (t *Table) Validate() error {
	if len(t.Targets) == 0 {
		return fmt.Errorf("no targets defined")
	}
	seen := make(map[string]bool, len(t.Targets))
	for i, tc := range t.Targets {
		if tc.Name == "" {
			return fmt.Errorf("target %d: name is required", i)
		}
		if seen[tc.Name] {
			return fmt.Errorf("duplicate target name %q", tc.Name)
		}
		seen[tc.Name] = true
		if tc.Path == "" {
			return fmt.Errorf("target %s: path is required", tc.Name)
		}
	}
	for _, a := range t.Anchors {
		if filepath.IsAbs(a) {
			return fmt.Errorf("anchor %q must be relative to the target directory", a)
		}
	}
	if filepath.IsAbs(t.ConfigPath) {
		return fmt.Errorf("config_path %q must be relative to the target directory", t.ConfigPath)
	}
	if _, err := integrity.ParseAlgorithm(t.DigestAlgorithm); err != nil {
		return err
	}
	return nil
}

// SupervisorTargets converts the table into supervisor targets, in
// declared order, with "~" expanded.
func (t *Table) SupervisorTargets() ([]supervisor.Target, error) {
	out := make([]supervisor.Target, 0, len(t.Targets))
	for _, tc := range t.Targets {
		path, err := ExpandHome(tc.Path)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", tc.Name, err)
		}
		out = append(out, supervisor.Target{
			Name:        tc.Name,
			Executable:  path,
			Interpreter: tc.Interpreter,
			Args:        tc.Args,
		})
	}
	return out, nil
}

// Layout returns the per-target layout.
func (t *Table) Layout() supervisor.Layout {
	return supervisor.Layout{
		Anchors:    append([]string(nil), t.Anchors...),
		ConfigPath: t.ConfigPath,
	}
}

// Digester returns the digester for the configured algorithm.
func (t *Table) Digester() (*integrity.Digester, error) {
	algo, err := integrity.ParseAlgorithm(t.DigestAlgorithm)
	if err != nil {
		return nil, err
	}
	return integrity.NewDigester(algo), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ExampleConfig is printed by `trinity config example`.
const ExampleConfig = `# trinity target table

# Targets are launched in this order at startup and polled in this order.
targets:
  - name: Reese-Kernel
    path: ~/Reese-Kernel/kernel.py
    interpreter: python3
  - name: Trinity-Kernel
    path: ~/Trinity-Kernel/kernel.py
    interpreter: python3
  - name: Ghostwalker-Kernel
    path: ~/Ghostwalker-Kernel/kernel.py
    interpreter: python3
    args: []

# Files that must exist next to every target before it launches.
# Each one is digested and reported on every launch.
anchors:
  - constants/constitution.txt
  - constants/kjv.txt

# Gate document. Needs truth_integrity >= 0.75; profit_signal and
# resonance feed the PROFIT-PULSE line.
config_path: configs/config.json

# sha256 or blake3
digest_algorithm: sha256
`
