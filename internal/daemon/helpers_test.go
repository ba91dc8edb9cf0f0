package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/driverd/internal/controller"
	"git.home.luguber.info/inful/driverd/internal/driver/drivertest"
	"git.home.luguber.info/inful/driverd/internal/metrics"
)

// countingRecorder keeps the calls tests assert on.
type countingRecorder struct {
	metrics.NoopRecorder

	mu        sync.Mutex
	results   map[string]map[metrics.ResultLabel]int
	shutdowns map[string]int
	faults    map[string]int
	active    int
	lifecycle map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		results:   map[string]map[metrics.ResultLabel]int{},
		shutdowns: map[string]int{},
		faults:    map[string]int{},
		lifecycle: map[string]int{},
	}
}

func (r *countingRecorder) IncPhaseResult(phase string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results[phase] == nil {
		r.results[phase] = map[metrics.ResultLabel]int{}
	}
	r.results[phase][result]++
}

func (r *countingRecorder) IncShutdown(reason string) {
	r.mu.Lock()
	r.shutdowns[reason]++
	r.mu.Unlock()
}

func (r *countingRecorder) IncUncaughtFault(origin string) {
	r.mu.Lock()
	r.faults[origin]++
	r.mu.Unlock()
}

func (r *countingRecorder) SetActiveDrivers(n int) {
	r.mu.Lock()
	r.active = n
	r.mu.Unlock()
}

func (r *countingRecorder) IncDriverLifecycle(op string, success bool) {
	key := op
	if !success {
		key += "-failed"
	}
	r.mu.Lock()
	r.lifecycle[key]++
	r.mu.Unlock()
}

func (r *countingRecorder) result(phase string, label metrics.ResultLabel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[phase][label]
}

func (r *countingRecorder) totalShutdowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.shutdowns {
		n += c
	}
	return n
}

func (r *countingRecorder) faultCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.faults {
		n += c
	}
	return n
}

// recordingController wraps Local and counts LoadWorkspace calls.
type recordingController struct {
	*controller.Local

	mu    sync.Mutex
	loads []string
}

func newRecordingController() *recordingController {
	return &recordingController{Local: controller.NewLocal(nil)}
}

func (c *recordingController) LoadWorkspace(ctx context.Context, path string) error {
	c.mu.Lock()
	c.loads = append(c.loads, path)
	c.mu.Unlock()
	return c.Local.LoadWorkspace(ctx, path)
}

func (c *recordingController) loadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.loads)
}

// holdingController blocks in Start until release is closed and tracks
// whether it is live.
type holdingController struct {
	*recordingController

	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	live  bool
	stops int
}

func newHoldingController() *holdingController {
	return &holdingController{
		recordingController: newRecordingController(),
		entered:             make(chan struct{}),
		release:             make(chan struct{}),
	}
}

func (c *holdingController) Start(context.Context) error {
	close(c.entered)
	<-c.release
	c.mu.Lock()
	c.live = true
	c.mu.Unlock()
	return nil
}

func (c *holdingController) Stop(context.Context) error {
	c.mu.Lock()
	c.live = false
	c.stops++
	c.mu.Unlock()
	return nil
}

func (c *holdingController) state() (live bool, stops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live, c.stops
}

type fixture struct {
	root       string
	driverDir  string
	workspace  string
	identity   string
	pool       *drivertest.Pool
	recorder   *countingRecorder
	controller *recordingController
}

func newFixture(t *testing.T, prepare func(*drivertest.Fake)) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:       root,
		driverDir:  filepath.Join(root, "drivers"),
		workspace:  filepath.Join(root, "workspaces"),
		identity:   filepath.Join(root, "daemon.yaml"),
		pool:       drivertest.NewPool(prepare),
		recorder:   newCountingRecorder(),
		controller: newRecordingController(),
	}
	require.NoError(t, os.MkdirAll(f.driverDir, 0o750))
	require.NoError(t, os.WriteFile(f.identity, []byte("name: testd\nversion: 1.2.3\n"), 0o600))
	return f
}

func (f *fixture) addDriver(t *testing.T, dir, name, version string) {
	t.Helper()
	drivertest.WriteDriver(t, f.driverDir, dir, "name: "+name+"\nversion: "+version+"\ntype: fake\n")
}

func (f *fixture) options() Options {
	return Options{
		IdentityFile:  f.identity,
		DriverDir:     f.driverDir,
		Catalog:       f.pool.Catalog(),
		WorkspaceRoot: f.workspace,
		Controller:    f.controller,
		Recorder:      f.recorder,
	}
}

func (f *fixture) daemon(t *testing.T, mutate func(*Options)) *Daemon {
	t.Helper()
	opts := f.options()
	if mutate != nil {
		mutate(&opts)
	}
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

// runAsync starts d.Run and returns a channel yielding its result.
func runAsync(ctx context.Context, d *Daemon) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()
	return errc
}

func waitPhase(t *testing.T, d *Daemon, phase Phase) {
	t.Helper()
	require.Eventually(t, func() bool { return d.State().Phase() == phase },
		5*time.Second, 5*time.Millisecond, "daemon never reached %s", phase)
}

func waitResult(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}
