package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/psantana5/trinity/internal/gate"
	"github.com/psantana5/trinity/internal/integrity"
	"github.com/psantana5/trinity/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLayout = Layout{
	Anchors:    []string{"constants/constitution.txt", "constants/kjv.txt"},
	ConfigPath: "configs/config.json",
}

type fakeProcess struct {
	pid        int
	code       int
	done       bool
	terminated int
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Exited() (int, bool) { return p.code, p.done }

func (p *fakeProcess) Terminate() error {
	p.terminated++
	return nil
}

func (p *fakeProcess) exit(code int) {
	p.code = code
	p.done = true
}

type fakeSpawner struct {
	nextPID int
	order   []string
	procs   map[string][]*fakeProcess
	fail    map[string]error
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{
		nextPID: 1000,
		procs:   make(map[string][]*fakeProcess),
		fail:    make(map[string]error),
	}
}

func (s *fakeSpawner) Spawn(t Target) (Process, error) {
	if err := s.fail[t.Name]; err != nil {
		return nil, err
	}
	s.nextPID++
	p := &fakeProcess{pid: s.nextPID}
	s.order = append(s.order, t.Name)
	s.procs[t.Name] = append(s.procs[t.Name], p)
	return p, nil
}

func (s *fakeSpawner) latest(name string) *fakeProcess {
	procs := s.procs[name]
	return procs[len(procs)-1]
}

// makeTarget lays out root/name with both anchors and a config file.
func makeTarget(t *testing.T, root, name string, truthIntegrity float64) Target {
	t.Helper()
	dir := filepath.Join(root, name)
	files := map[string]string{
		"kernel.py":                  "print('hi')\n",
		"constants/constitution.txt": "We the People\n",
		"constants/kjv.txt":          "In the beginning\n",
	}
	for rel, body := range files {
		writeFile(t, filepath.Join(dir, rel), body)
	}
	writeConfig(t, dir, truthIntegrity)
	return Target{Name: name, Executable: filepath.Join(dir, "kernel.py"), Interpreter: "python3"}
}

func writeConfig(t *testing.T, dir string, truthIntegrity float64) {
	t.Helper()
	body := fmt.Sprintf(`{"truth_integrity": %g, "profit_signal": "ACTIVE", "resonance": 0.99}`, truthIntegrity)
	writeFile(t, filepath.Join(dir, "configs", "config.json"), body)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func newTestSupervisor(t *testing.T, targets []Target, spawner Spawner) (*Supervisor, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.INFO, false)
	logger.SetOutput(&buf)

	s, err := New(targets, Options{
		Layout:       testLayout,
		Spawner:      spawner,
		Logger:       logger,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return s, &buf
}

func threeTargets(t *testing.T) []Target {
	root := t.TempDir()
	return []Target{
		makeTarget(t, root, "A", 0.9),
		makeTarget(t, root, "B", 0.9),
		makeTarget(t, root, "C", 0.9),
	}
}

func TestStartLaunchesInDeclaredOrder(t *testing.T) {
	spawner := newFakeSpawner()
	s, logs := newTestSupervisor(t, threeTargets(t), spawner)

	require.NoError(t, s.Start())
	assert.Equal(t, []string{"A", "B", "C"}, spawner.order)

	handles := s.Handles()
	require.Len(t, handles, 3)
	for i, name := range []string{"A", "B", "C"} {
		assert.Equal(t, name, handles[i].Target.Name)
		assert.Equal(t, spawner.latest(name).pid, handles[i].PID)
	}

	out := logs.String()
	assert.Contains(t, out, "Launching A...")
	assert.Contains(t, out, "Constitution SHA256: ")
	assert.Contains(t, out, "KJV SHA256: ")
	assert.Contains(t, out, "PROFIT-PULSE: ACTIVE")
	assert.Equal(t, uint64(3), s.Metrics().Launches.Load())
}

func TestLaunchReportsDigests(t *testing.T) {
	root := t.TempDir()
	target := makeTarget(t, root, "A", 1)
	s, logs := newTestSupervisor(t, []Target{target}, newFakeSpawner())

	_, err := s.Launch(target)
	require.NoError(t, err)

	want, err := integrity.Digest(filepath.Join(target.Dir(), "constants/kjv.txt"))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "KJV SHA256: "+want)
}

func TestStartAbortsOnGateFailure(t *testing.T) {
	root := t.TempDir()
	targets := []Target{
		makeTarget(t, root, "A", 0.9),
		makeTarget(t, root, "B", 0.5),
		makeTarget(t, root, "C", 0.9),
	}
	spawner := newFakeSpawner()
	s, _ := newTestSupervisor(t, targets, spawner)

	err := s.Start()
	require.Error(t, err)

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "B", fatal.Target)
	var below *gate.IntegrityBelowThresholdError
	require.ErrorAs(t, err, &below)
	assert.Equal(t, 0.5, below.Value)

	// A was already running and stays so; C is never reached.
	assert.Equal(t, []string{"A"}, spawner.order)
	assert.Zero(t, spawner.latest("A").terminated)
	require.Len(t, s.Handles(), 1)
}

func TestGateFailureOnFirstTargetSpawnsNothing(t *testing.T) {
	root := t.TempDir()
	targets := []Target{
		makeTarget(t, root, "A", 0.5),
		makeTarget(t, root, "B", 0.9),
	}
	spawner := newFakeSpawner()
	s, _ := newTestSupervisor(t, targets, spawner)

	require.Error(t, s.Start())
	assert.Empty(t, spawner.order)
}

func TestMissingConfigIsAParseError(t *testing.T) {
	root := t.TempDir()
	target := makeTarget(t, root, "A", 0.9)
	require.NoError(t, os.Remove(filepath.Join(target.Dir(), "configs", "config.json")))
	spawner := newFakeSpawner()
	s, _ := newTestSupervisor(t, []Target{target}, spawner)

	_, err := s.Launch(target)

	// The config is loaded before the anchor check, so this is reported
	// by the gate even though the config is also an anchor.
	var perr *gate.ParseError
	require.ErrorAs(t, err, &perr)
	assert.False(t, integrity.IsMissing(err))
	assert.Empty(t, spawner.order)
}

func TestMissingAnchorIsFatal(t *testing.T) {
	root := t.TempDir()
	target := makeTarget(t, root, "A", 0.9)
	require.NoError(t, os.Remove(filepath.Join(target.Dir(), "constants", "kjv.txt")))
	spawner := newFakeSpawner()
	s, logs := newTestSupervisor(t, []Target{target}, spawner)

	_, err := s.Launch(target)

	var missing *integrity.MissingFileError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "constants/kjv.txt", missing.Path)
	assert.Empty(t, spawner.order)
	assert.NotContains(t, logs.String(), "PROFIT-PULSE")
}

func TestSpawnFailureIsFatal(t *testing.T) {
	root := t.TempDir()
	target := makeTarget(t, root, "A", 0.9)
	spawner := newFakeSpawner()
	spawner.fail["A"] = errors.New("exec: not found")
	s, _ := newTestSupervisor(t, []Target{target}, spawner)

	err := s.Start()
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Contains(t, err.Error(), "A: exec: not found")
}

func TestTickReplacesOnlyExitedHandle(t *testing.T) {
	spawner := newFakeSpawner()
	s, logs := newTestSupervisor(t, threeTargets(t), spawner)
	require.NoError(t, s.Start())

	before := s.Handles()
	oldB := spawner.latest("B")
	oldB.exit(137)
	exitedB := *before[1]

	require.NoError(t, s.Tick())
	assert.Equal(t, exitedB, *before[1], "exited handle must not be modified")
	assert.True(t, before[1].Timing.CompletedAt.IsZero())

	after := s.Handles()
	assert.Same(t, before[0], after[0], "A must be untouched")
	assert.Same(t, before[2], after[2], "C must be untouched")
	assert.NotSame(t, before[1], after[1])
	require.Len(t, spawner.procs["B"], 2)
	assert.Equal(t, spawner.latest("B").pid, after[1].PID)
	assert.NotEqual(t, oldB.pid, after[1].PID)

	assert.Contains(t, logs.String(), "[GRID-LOCK] B: crashed (code 137), restarting...")
	assert.Equal(t, 2, strings.Count(logs.String(), "Launching B..."), "relaunch runs the full sequence")

	assert.Equal(t, uint64(1), s.Metrics().Crashes.Load())
	assert.Equal(t, uint64(1), s.Metrics().Restarts.Load())
	recent := s.Exits().Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "B", recent[0].Target)
	assert.Equal(t, 137, recent[0].ExitCode)
	assert.False(t, recent[0].EndTime.IsZero())
}

func TestTickNormalExitAlsoRelaunches(t *testing.T) {
	spawner := newFakeSpawner()
	s, logs := newTestSupervisor(t, threeTargets(t), spawner)
	require.NoError(t, s.Start())

	spawner.latest("A").exit(0)
	require.NoError(t, s.Tick())

	assert.Len(t, spawner.procs["A"], 2)
	assert.Contains(t, logs.String(), "[INFO] A: exited normally (code 0), restarting...")
	assert.Equal(t, uint64(1), s.Metrics().NormalExits.Load())
}

func TestTickWithNoExitsIsANoop(t *testing.T) {
	spawner := newFakeSpawner()
	s, _ := newTestSupervisor(t, threeTargets(t), spawner)
	require.NoError(t, s.Start())

	require.NoError(t, s.Tick())
	assert.Len(t, spawner.order, 3)
}

func TestRelaunchReloadsConfig(t *testing.T) {
	targets := threeTargets(t)
	spawner := newFakeSpawner()
	s, _ := newTestSupervisor(t, targets, spawner)
	require.NoError(t, s.Start())

	// Config edits between launches are picked up on the next gate check.
	writeConfig(t, targets[1].Dir(), 0.5)
	spawner.latest("B").exit(1)

	err := s.Tick()
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "B", fatal.Target)
	var below *gate.IntegrityBelowThresholdError
	assert.ErrorAs(t, err, &below)
	assert.Len(t, spawner.procs["B"], 1)
}

func TestShutdownTerminatesLiveChildrenOnly(t *testing.T) {
	spawner := newFakeSpawner()
	s, logs := newTestSupervisor(t, threeTargets(t), spawner)
	require.NoError(t, s.Start())

	spawner.latest("B").exit(0)
	s.Shutdown()

	assert.Equal(t, 1, spawner.latest("A").terminated)
	assert.Equal(t, 0, spawner.latest("B").terminated)
	assert.Equal(t, 1, spawner.latest("C").terminated)
	assert.Contains(t, logs.String(), "Shutting down all targets...")

	s.Shutdown()
	assert.Equal(t, 1, spawner.latest("A").terminated, "second Shutdown is a no-op")
}

func TestRunStopsOnCancel(t *testing.T) {
	spawner := newFakeSpawner()
	s, _ := newTestSupervisor(t, threeTargets(t), spawner)
	require.NoError(t, s.Start())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Run(ctx))
	for _, name := range []string{"A", "B", "C"} {
		assert.Equal(t, 1, spawner.latest(name).terminated, name)
	}
}

func TestRunRelaunchesUntilFatal(t *testing.T) {
	targets := threeTargets(t)
	spawner := newFakeSpawner()
	s, _ := newTestSupervisor(t, targets, spawner)
	require.NoError(t, s.Start())

	spawner.latest("C").exit(3)
	require.NoError(t, os.Remove(filepath.Join(targets[2].Dir(), "constants", "constitution.txt")))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Run(ctx)
	var missing *integrity.MissingFileError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "constants/constitution.txt", missing.Path)
	assert.NoError(t, ctx.Err(), "Run must return on the fatal error, not the timeout")
}

func TestNewValidatesTargets(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)

	_, err = New([]Target{{Name: "A", Executable: "/a"}, {Name: "A", Executable: "/b"}}, Options{})
	assert.ErrorContains(t, err, "duplicate")

	_, err = New([]Target{{Name: "A"}}, Options{})
	assert.ErrorContains(t, err, "empty executable")

	_, err = New([]Target{{Executable: "/a"}}, Options{})
	assert.ErrorContains(t, err, "empty name")
}

func TestTargetCommand(t *testing.T) {
	name, args := Target{Executable: "/k/kernel.py", Interpreter: "python3", Args: []string{"-v"}}.Command()
	assert.Equal(t, "python3", name)
	assert.Equal(t, []string{"/k/kernel.py", "-v"}, args)

	name, args = Target{Executable: "/k/kernel"}.Command()
	assert.Equal(t, "/k/kernel", name)
	assert.Empty(t, args)

	assert.Equal(t, "/k", Target{Executable: "/k/kernel"}.Dir())
}

func TestLayoutRequired(t *testing.T) {
	assert.Equal(t,
		[]string{"constants/constitution.txt", "constants/kjv.txt", "configs/config.json"},
		testLayout.Required())
}

func TestPreflightReport(t *testing.T) {
	root := t.TempDir()
	target := makeTarget(t, root, "A", 0.8)

	rep, err := Preflight(target, testLayout, integrity.NewDigester(integrity.BLAKE3))
	require.NoError(t, err)

	assert.Equal(t, "A", rep.Target)
	assert.Equal(t, "BLAKE3", rep.Algorithm)
	assert.True(t, rep.Pulse)
	require.Len(t, rep.Digests, 2)
	assert.Equal(t, "constants/constitution.txt", rep.Digests[0].Path)
	assert.Equal(t, "Constitution", rep.Digests[0].Label)
	assert.Equal(t, "KJV", rep.Digests[1].Label)
	assert.Len(t, rep.Digests[0].Sum, 64)
	assert.NotEqual(t, rep.Digests[0].Sum, rep.Digests[1].Sum)
}

func TestAnchorLabel(t *testing.T) {
	cases := map[string]string{
		"constants/constitution.txt": "Constitution",
		"constants/kjv.txt":          "KJV",
		"anchors/manifest":           "Manifest",
		".hidden":                    ".hidden",
	}
	for path, want := range cases {
		assert.Equal(t, want, AnchorLabel(path), path)
	}
}
