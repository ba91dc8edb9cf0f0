package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/driverd/internal/driver"
	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
	"git.home.luguber.info/inful/driverd/internal/logfields"
	"git.home.luguber.info/inful/driverd/internal/metrics"
	"git.home.luguber.info/inful/driverd/internal/observability"
	"git.home.luguber.info/inful/driverd/internal/workspace"
)

// Boot phase names, in execution order.
const (
	PhaseInstallHandlers    = "install-handlers"
	PhaseDiscoverDrivers    = "discover-drivers"
	PhaseStartDrivers       = "start-drivers"
	PhaseRegisterDrivers    = "register-drivers"
	PhaseProvisionWorkspace = "provision-workspace"
	PhaseLoadWorkspaces     = "load-workspaces"
	PhaseStartController    = "start-controller"
)

// bootPhase returns a result label and, for fatal conditions only, an error.
type bootPhase struct {
	name string
	run  func(ctx context.Context) (metrics.ResultLabel, error)
}

func (d *Daemon) phases() []bootPhase {
	return []bootPhase{
		{PhaseInstallHandlers, d.installHandlers},
		{PhaseDiscoverDrivers, d.discoverDrivers},
		{PhaseStartDrivers, d.startDrivers},
		{PhaseRegisterDrivers, d.registerDrivers},
		{PhaseProvisionWorkspace, d.provisionWorkspace},
		{PhaseLoadWorkspaces, d.loadWorkspaces},
		{PhaseStartController, d.startController},
	}
}

// Boot runs the boot phases in order. It returns the first fatal error; the
// caller is responsible for shutting down after one.
func (d *Daemon) Boot(ctx context.Context) error {
	bootStart := time.Now()

	for i, p := range d.phases() {
		phaseCtx := observability.WithPhase(ctx, p.name)
		if i > 0 && d.state.ShutdownRequested() {
			d.logger.DebugContext(phaseCtx, "Skipping boot phase, shutdown requested", logfields.Phase(p.name))
			d.recorder.IncPhaseResult(p.name, metrics.ResultSkipped)
			continue
		}

		start := time.Now()
		result, err := p.run(phaseCtx)
		elapsed := time.Since(start)

		d.recorder.ObservePhaseDuration(p.name, elapsed)
		d.recorder.IncPhaseResult(p.name, result)
		d.journal.phaseCompleted(phaseCtx, p.name, string(result), elapsed, err)
		d.logger.DebugContext(phaseCtx, "Boot phase completed",
			logfields.Phase(p.name),
			slog.String("result", string(result)),
			logfields.DurationMS(float64(elapsed.Microseconds())/1000))

		if err != nil && dberrors.IsFatal(err) {
			return err
		}
	}

	d.recorder.ObserveBootDuration(time.Since(bootStart))
	if d.state.ShutdownRequested() {
		return nil
	}

	d.afterBoot(ctx)
	if !d.state.transition(PhaseBooting, PhaseRunning) {
		return nil
	}
	d.logger.InfoContext(ctx, d.identity.String()+" is now running",
		logfields.Name(d.identity.Name),
		logfields.Version(d.identity.Version),
		logfields.Count(len(d.active)))
	return nil
}

func (d *Daemon) installHandlers(ctx context.Context) (metrics.ResultLabel, error) {
	if d.opts.InstallSignals {
		d.signals.Install(ctx)
	}
	return metrics.ResultSuccess, nil
}

func (d *Daemon) discoverDrivers(ctx context.Context) (metrics.ResultLabel, error) {
	loader := &driver.Loader{
		Catalog:       d.opts.Catalog,
		MetadataFiles: d.opts.MetadataFiles,
		Logger:        d.logger,
		Guard:         d.faults.Guard,
		OnResult: func(c driver.Candidate, outcome driver.Outcome, skipped bool) {
			label := outcome.String()
			name := c.Descriptor.Name
			if skipped {
				label = "skipped"
			}
			if name == "" {
				name = filepath.Base(c.Dir)
			}
			d.recorder.IncDriverRegistration(label)
			d.journal.driverRegistered(ctx, name, string(c.Descriptor.Version), label)
		},
	}

	report, err := loader.Load(ctx, d.opts.DriverDir, d.registry)
	if err != nil {
		return metrics.ResultFatal, err
	}

	d.logger.InfoContext(ctx, "Driver discovery complete",
		logfields.Path(d.opts.DriverDir),
		slog.Int("candidates", report.Candidates),
		slog.Int("skipped", report.Skipped),
		logfields.Count(d.registry.Count()))
	if report.Skipped > 0 {
		return metrics.ResultWarning, nil
	}
	return metrics.ResultSuccess, nil
}

func (d *Daemon) startDrivers(ctx context.Context) (metrics.ResultLabel, error) {
	entries := d.registry.List()
	if len(entries) == 0 {
		d.logger.InfoContext(ctx, "No drivers registered, nothing to start")
		return metrics.ResultSuccess, nil
	}

	var failed atomic.Int32
	barrier := NewBarrier(d.faults)
	for _, e := range entries {
		barrier.Go("driver-start:"+e.Name(), func() {
			if !d.startDriver(ctx, e) {
				failed.Add(1)
			}
		})
	}
	barrier.Wait()

	if failed.Load() > 0 {
		return metrics.ResultWarning, nil
	}
	return metrics.ResultSuccess, nil
}

// startDriver starts e once. When shutdown was requested while the start was
// pending, the driver is stopped right away regardless of the start result.
func (d *Daemon) startDriver(ctx context.Context, e driver.Entry) bool {
	opCtx := observability.WithDriver(context.WithoutCancel(ctx), e.Name())

	err := e.Driver.Start(opCtx)
	d.recorder.IncDriverLifecycle("start", err == nil)
	d.journal.driverLifecycle(opCtx, e.Name(), "start", err)
	if err != nil {
		logError(opCtx, d.logger, slog.LevelError, "Driver failed to start",
			dberrors.DriverStartError(e.Name(), err), logfields.Driver(e.Name()))
	} else {
		d.logger.InfoContext(opCtx, "Driver started",
			logfields.Driver(e.Name()), logfields.Version(string(e.Descriptor.Version)))
	}

	if d.state.ShutdownRequested() {
		d.logger.InfoContext(opCtx, "Shutdown requested during start, stopping driver", logfields.Driver(e.Name()))
		d.stopDriver(ctx, e)
	}
	return err == nil
}

func (d *Daemon) registerDrivers(ctx context.Context) (metrics.ResultLabel, error) {
	running := d.registry.Running()
	for _, e := range running {
		d.controller.AddDriver(e.Name(), e.Driver)
	}
	d.active = running
	d.recorder.SetActiveDrivers(len(running))

	if len(running) == 0 {
		d.logger.WarnContext(ctx, "No drivers running, unable to serve requests",
			logfields.Count(d.registry.Count()))
		return metrics.ResultWarning, nil
	}
	d.logger.InfoContext(ctx, "Drivers handed to controller", logfields.Count(len(running)))
	return metrics.ResultSuccess, nil
}

func (d *Daemon) provisionWorkspace(ctx context.Context) (metrics.ResultLabel, error) {
	created, err := d.provisioner.EnsureDirectory(d.opts.WorkspaceRoot)
	if err != nil {
		logError(ctx, d.logger, slog.LevelWarn, "Workspace root unavailable, continuing degraded",
			dberrors.ProvisionError(d.opts.WorkspaceRoot, err))
		return metrics.ResultWarning, nil
	}
	if created > 0 {
		d.logger.InfoContext(ctx, "Created workspace root",
			logfields.Path(d.opts.WorkspaceRoot), logfields.Count(created))
	}
	return metrics.ResultSuccess, nil
}

func (d *Daemon) loadWorkspaces(ctx context.Context) (metrics.ResultLabel, error) {
	paths, err := workspace.ListEntries(d.opts.WorkspaceRoot)
	if err != nil {
		logError(ctx, d.logger, slog.LevelWarn, "Cannot enumerate workspaces",
			dberrors.WorkspaceLoadError(d.opts.WorkspaceRoot, err))
		return metrics.ResultWarning, nil
	}
	if len(paths) == 0 {
		d.logger.InfoContext(ctx, "No workspaces to load", logfields.Path(d.opts.WorkspaceRoot))
		return metrics.ResultSuccess, nil
	}

	var failed atomic.Int32
	barrier := NewBarrier(d.faults)
	for _, path := range paths {
		barrier.Go("workspace-load", func() {
			if !d.loadWorkspace(ctx, path) {
				failed.Add(1)
			}
		})
	}
	barrier.Wait()

	d.logger.InfoContext(ctx, "Workspaces loaded",
		logfields.Count(len(paths)-int(failed.Load())),
		slog.Int("failed", int(failed.Load())))
	if failed.Load() > 0 {
		return metrics.ResultWarning, nil
	}
	return metrics.ResultSuccess, nil
}

func (d *Daemon) loadWorkspace(ctx context.Context, path string) bool {
	err := d.controller.LoadWorkspace(context.WithoutCancel(ctx), path)
	d.recorder.IncWorkspaceLoad(err == nil)
	d.journal.workspaceLoaded(ctx, path, err)
	if err != nil {
		logError(ctx, d.logger, slog.LevelError, "Workspace load failed",
			dberrors.WorkspaceLoadError(path, err), logfields.Workspace(path))
		return false
	}
	return true
}

// startController starts the controller once. Like startDriver, a shutdown
// that arrived while Start was pending is followed by a stop.
func (d *Daemon) startController(ctx context.Context) (metrics.ResultLabel, error) {
	opCtx := context.WithoutCancel(ctx)
	err := d.controller.Start(opCtx)
	if err != nil {
		logError(ctx, d.logger, slog.LevelError, "Controller failed to start",
			dberrors.WrapError(err, dberrors.CategoryController, "controller start failed").Build())
	}

	if d.state.ShutdownRequested() {
		d.logger.InfoContext(ctx, "Shutdown requested during controller start, stopping controller")
		d.stopController(opCtx)
	}
	if err != nil {
		return metrics.ResultWarning, nil
	}
	return metrics.ResultSuccess, nil
}

// afterBoot starts the optional background services unless shutdown has
// already begun.
func (d *Daemon) afterBoot(ctx context.Context) {
	d.bgMu.Lock()
	defer d.bgMu.Unlock()
	if d.state.ShutdownRequested() {
		return
	}

	if d.opts.HealthInterval > 0 {
		s, err := NewScheduler(d.logger)
		if err == nil {
			err = s.ScheduleHealthSweep(d.opts.HealthInterval, d.sweepDrivers)
		}
		if err != nil {
			d.logger.WarnContext(ctx, "Health sweep disabled", logfields.Error(err))
		} else {
			s.Start()
			d.scheduler = s
		}
	}

	if d.opts.WatchWorkspaces {
		w, err := workspace.NewWatcher(d.opts.WorkspaceRoot, func(wctx context.Context, path string) {
			d.faults.Guard("workspace-watch", func() { d.loadWorkspace(wctx, path) })
		}, d.logger)
		if err == nil {
			err = w.Start(context.WithoutCancel(ctx))
			if err != nil {
				_ = w.Stop()
			}
		}
		if err != nil {
			d.logger.WarnContext(ctx, "Workspace watcher disabled", logfields.Error(err))
		} else {
			d.watcher = w
		}
	}
}
