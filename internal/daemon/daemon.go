package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/driverd/internal/controller"
	"git.home.luguber.info/inful/driverd/internal/driver"
	"git.home.luguber.info/inful/driverd/internal/eventstore"
	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
	"git.home.luguber.info/inful/driverd/internal/logfields"
	"git.home.luguber.info/inful/driverd/internal/metrics"
	"git.home.luguber.info/inful/driverd/internal/observability"
	"git.home.luguber.info/inful/driverd/internal/version"
	"git.home.luguber.info/inful/driverd/internal/workspace"
)

// Options configures a Daemon. Catalog and Controller are required.
type Options struct {
	// IdentityFile is read once by Run; failure is fatal.
	IdentityFile string
	// LockFile, when set, is held for the lifetime of Run.
	LockFile string

	DriverDir     string
	MetadataFiles []string
	Catalog       *driver.Catalog

	WorkspaceRoot   string
	WatchWorkspaces bool

	Controller controller.Controller

	Logger   *slog.Logger
	Recorder metrics.Recorder
	Journal  eventstore.Store

	// HTTPAddr serves /healthz and /metrics when set.
	HTTPAddr string
	// PromRegistry is served on /metrics; nil serves the default registry.
	PromRegistry *prom.Registry
	// HealthInterval schedules the periodic driver sweep; zero disables it.
	HealthInterval time.Duration

	// InstallSignals registers OS signal handlers during boot.
	InstallSignals bool
}

// Daemon is the explicit context object of one daemon run: state, registry
// and collaborators are created once and shared by every phase.
type Daemon struct {
	opts       Options
	runID      string
	identity   version.Identity
	startTime  time.Time
	logger     *slog.Logger
	recorder   metrics.Recorder
	journal    *journal
	state      *State
	registry   *driver.Registry
	controller controller.Controller

	provisioner *workspace.Provisioner
	faults      *FaultHandler
	signals     *SignalHandler
	httpServer  *HTTPServer

	// bgMu guards the services started after boot.
	bgMu      sync.Mutex
	watcher   *workspace.Watcher
	scheduler *Scheduler

	lock *instanceLock

	// active is the set handed to the controller by register-drivers.
	active []driver.Entry

	done chan struct{}
}

// New validates opts and builds a daemon ready to Run.
func New(opts Options) (*Daemon, error) {
	if opts.Catalog == nil {
		return nil, dberrors.DaemonError("driver catalog is required").Build()
	}
	if opts.Controller == nil {
		return nil, dberrors.DaemonError("controller is required").Build()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	runID := uuid.NewString()
	logger := opts.Logger.With(logfields.RunID(runID))

	d := &Daemon{
		opts:        opts,
		runID:       runID,
		logger:      logger,
		recorder:    opts.Recorder,
		journal:     newJournal(opts.Journal, runID, logger),
		state:       newState(),
		registry:    driver.NewRegistry(logger),
		controller:  opts.Controller,
		provisioner: workspace.NewProvisioner(logger),
		done:        make(chan struct{}),
	}
	d.faults = NewFaultHandler(logger, opts.Recorder)
	d.signals = newSignalHandler(logger, d.faults, d.Shutdown)
	if opts.HTTPAddr != "" {
		d.httpServer = NewHTTPServer(opts.HTTPAddr, d, opts.PromRegistry)
	}
	return d, nil
}

// RunID identifies this daemon run in logs and the journal.
func (d *Daemon) RunID() string { return d.runID }

// Identity returns the identity loaded by Run.
func (d *Daemon) Identity() version.Identity { return d.identity }

// State returns the shared daemon state.
func (d *Daemon) State() *State { return d.state }

// Registry returns the driver registry.
func (d *Daemon) Registry() *driver.Registry { return d.registry }

// Done is closed when the shutdown sequence has completed.
func (d *Daemon) Done() <-chan struct{} { return d.done }

// Run loads the daemon identity, boots, and blocks until shutdown completes.
// A fatal boot error triggers shutdown and is returned once it finished.
// Cancelling ctx requests shutdown.
func (d *Daemon) Run(ctx context.Context) (err error) {
	ctx = observability.WithRunID(ctx, d.runID)
	d.startTime = time.Now()
	defer func() {
		// Exit hook: report only.
		d.logger.Info("Daemon exit",
			slog.String("phase", string(d.state.Phase())),
			slog.Duration("uptime", time.Since(d.startTime)))
	}()

	if err := d.acquireLock(); err != nil {
		d.finish()
		return err
	}
	defer d.releaseLock()

	identity, err := version.LoadIdentity(d.opts.IdentityFile)
	if err != nil {
		logError(ctx, d.logger, slog.LevelError, "Cannot read daemon identity", err)
		d.finish()
		return err
	}
	d.identity = identity
	d.journal.daemonStarted(ctx, identity)
	d.logger.Info("Starting daemon",
		logfields.Name(identity.Name),
		logfields.Version(identity.Version),
		slog.Int("pid", os.Getpid()))

	if d.httpServer != nil {
		if err := d.httpServer.Start(ctx); err != nil {
			logError(ctx, d.logger, slog.LevelWarn, "HTTP server unavailable", err)
		}
	}

	bootErr := d.Boot(ctx)
	if bootErr != nil {
		logError(ctx, d.logger, slog.LevelError, "Boot aborted", bootErr)
		d.Shutdown(ctx, "boot-failure")
	}

	select {
	case <-d.done:
	case <-ctx.Done():
		d.Shutdown(context.WithoutCancel(ctx), "context-canceled")
		<-d.done
	}

	d.signals.Uninstall()
	return bootErr
}

// finish marks a run that never booted as stopped.
func (d *Daemon) finish() {
	if d.state.requestShutdown() {
		d.state.setPhase(PhaseStopped)
		close(d.done)
	}
}

func (d *Daemon) acquireLock() error {
	if d.opts.LockFile == "" {
		return nil
	}
	lock, err := acquireInstanceLock(d.opts.LockFile)
	if err != nil {
		return fmt.Errorf("single instance lock: %w", err)
	}
	d.lock = lock
	return nil
}

func (d *Daemon) releaseLock() {
	if d.lock == nil {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("Failed to release instance lock", logfields.Error(err))
	}
}
