package daemon

import (
	"context"
	"log/slog"
	"runtime/debug"

	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
	"git.home.luguber.info/inful/driverd/internal/metrics"
)

// FaultHandler is the catch-all for panics in daemon goroutines. A recovered
// fault is logged and counted; it never terminates the process and never
// triggers shutdown. Isolation of faults is left to drivers and the controller.
type FaultHandler struct {
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewFaultHandler creates a fault handler.
func NewFaultHandler(logger *slog.Logger, recorder metrics.Recorder) *FaultHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &FaultHandler{logger: logger, recorder: recorder}
}

// Guard runs fn and recovers a panic from it. It reports whether fn panicked.
func (f *FaultHandler) Guard(origin string, fn func()) (faulted bool) {
	defer func() {
		if r := recover(); r != nil {
			faulted = true
			f.report(origin, r)
		}
	}()
	fn()
	return false
}

// Go runs fn in a new goroutine under Guard.
func (f *FaultHandler) Go(origin string, fn func()) {
	go f.Guard(origin, fn)
}

func (f *FaultHandler) report(origin string, recovered any) {
	err := dberrors.UncaughtFault(origin, recovered)
	logError(context.Background(), f.logger, slog.LevelError, "Unmanaged fault recovered", err,
		slog.String("stack", string(debug.Stack())))
	f.recorder.IncUncaughtFault(origin)
}
