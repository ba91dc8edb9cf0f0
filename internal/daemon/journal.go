package daemon

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/driverd/internal/eventstore"
	"git.home.luguber.info/inful/driverd/internal/logfields"
	"git.home.luguber.info/inful/driverd/internal/observability"
	"git.home.luguber.info/inful/driverd/internal/version"
)

// journal persists lifecycle events of one run. A nil store disables it and
// append failures are logged, never propagated.
type journal struct {
	store  eventstore.Store
	runID  string
	logger *slog.Logger
	daemon atomic.Value // string, set by daemonStarted
}

func newJournal(store eventstore.Store, runID string, logger *slog.Logger) *journal {
	return &journal{store: store, runID: runID, logger: logger}
}

func (j *journal) emit(ctx context.Context, eventType string, data any) {
	if j == nil || j.store == nil {
		return
	}
	event, err := eventstore.NewEvent(j.runID, eventType, data)
	if err == nil {
		err = j.store.Append(context.WithoutCancel(ctx), event.RunID(), event.Type(), event.Payload(), j.metadata(ctx))
	}
	if err != nil {
		j.logger.Warn("Failed to journal lifecycle event", slog.String("event", eventType), logfields.Error(err))
	}
}

// metadata tags an event with the daemon name and the phase or driver
// carried by ctx.
func (j *journal) metadata(ctx context.Context) map[string]string {
	meta := map[string]string{}
	if name, _ := j.daemon.Load().(string); name != "" {
		meta[eventstore.MetaDaemon] = name
	}
	lc := observability.GetContext(ctx)
	if lc.Phase != "" {
		meta[eventstore.MetaPhase] = lc.Phase
	}
	if lc.Driver != "" {
		meta[eventstore.MetaDriver] = lc.Driver
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (j *journal) daemonStarted(ctx context.Context, id version.Identity) {
	if j != nil {
		j.daemon.Store(id.Name)
	}
	j.emit(ctx, eventstore.TypeDaemonStarted, eventstore.DaemonStartedData{
		Name: id.Name, Version: id.Version, PID: os.Getpid(),
	})
}

func (j *journal) phaseCompleted(ctx context.Context, phase, result string, d time.Duration, err error) {
	j.emit(ctx, eventstore.TypePhaseCompleted, eventstore.PhaseCompletedData{
		Phase: phase, Result: result, DurationMS: d.Milliseconds(), Error: errString(err),
	})
}

func (j *journal) driverRegistered(ctx context.Context, name, version, outcome string) {
	j.emit(ctx, eventstore.TypeDriverRegistered, eventstore.DriverRegisteredData{
		Name: name, Version: version, Outcome: outcome,
	})
}

func (j *journal) driverLifecycle(ctx context.Context, name, op string, err error) {
	j.emit(ctx, eventstore.TypeDriverLifecycle, eventstore.DriverLifecycleData{
		Name: name, Op: op, Error: errString(err),
	})
}

func (j *journal) workspaceLoaded(ctx context.Context, path string, err error) {
	j.emit(ctx, eventstore.TypeWorkspaceLoaded, eventstore.WorkspaceLoadedData{
		Path: path, Error: errString(err),
	})
}

func (j *journal) shutdownCompleted(ctx context.Context, reason string, d time.Duration) {
	j.emit(ctx, eventstore.TypeShutdownCompleted, eventstore.ShutdownCompletedData{
		Reason: reason, DurationMS: d.Milliseconds(),
	})
}
