package daemon

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/driverd/internal/driver"
	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
	"git.home.luguber.info/inful/driverd/internal/logfields"
	"git.home.luguber.info/inful/driverd/internal/observability"
)

// Shutdown runs the shutdown sequence once. The first caller sets the
// shutdown flag and performs the sequence; every later call returns false
// without side effects. It returns after Done is closed.
func (d *Daemon) Shutdown(ctx context.Context, reason string) bool {
	if !d.state.requestShutdown() {
		return false
	}
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	d.state.setPhase(PhaseShuttingDown)
	d.logger.InfoContext(ctx, "Shutting down", logfields.Reason(reason))

	d.stopBackground(ctx)
	d.stopDrivers(ctx)

	d.stopController(ctx)

	if d.httpServer != nil {
		if err := d.httpServer.Stop(ctx); err != nil {
			d.logger.WarnContext(ctx, "HTTP server stop failed", logfields.Error(err))
		}
	}

	elapsed := time.Since(start)
	d.recorder.IncShutdown(reason)
	d.recorder.SetActiveDrivers(0)
	d.journal.shutdownCompleted(ctx, reason, elapsed)

	d.state.setPhase(PhaseStopped)
	d.logger.InfoContext(ctx, "Shutdown complete",
		logfields.Reason(reason),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	close(d.done)
	return true
}

func (d *Daemon) stopController(ctx context.Context) {
	if err := d.controller.Stop(ctx); err != nil {
		logError(ctx, d.logger, slog.LevelWarn, "Controller stop failed",
			dberrors.WrapError(err, dberrors.CategoryController, "controller stop failed").Build())
	}
}

func (d *Daemon) stopBackground(ctx context.Context) {
	d.bgMu.Lock()
	defer d.bgMu.Unlock()
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.logger.WarnContext(ctx, "Workspace watcher stop failed", logfields.Error(err))
		}
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			d.logger.WarnContext(ctx, "Scheduler stop failed", logfields.Error(err))
		}
	}
}

// stopDrivers stops every running driver concurrently and waits for all of
// them. Drivers that are not running are left alone and count as stopped.
func (d *Daemon) stopDrivers(ctx context.Context) {
	barrier := NewBarrier(d.faults)
	for _, e := range d.registry.List() {
		if !e.Driver.Running() {
			continue
		}
		barrier.Go("driver-stop:"+e.Name(), func() { d.stopDriver(ctx, e) })
	}
	issued := barrier.Issued()
	barrier.Wait()
	d.logger.InfoContext(ctx, "All drivers stopped", logfields.Count(issued))
}

func (d *Daemon) stopDriver(ctx context.Context, e driver.Entry) {
	opCtx := observability.WithDriver(context.WithoutCancel(ctx), e.Name())
	err := e.Driver.Stop(opCtx)
	d.recorder.IncDriverLifecycle("stop", err == nil)
	d.journal.driverLifecycle(opCtx, e.Name(), "stop", err)
	if err != nil {
		logError(opCtx, d.logger, slog.LevelError, "Driver failed to stop",
			dberrors.DriverStopError(e.Name(), err), logfields.Driver(e.Name()))
		return
	}
	d.logger.InfoContext(opCtx, "Driver stopped", logfields.Driver(e.Name()))
}
