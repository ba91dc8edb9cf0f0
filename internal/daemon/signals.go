package daemon

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"git.home.luguber.info/inful/driverd/internal/logfields"
)

// TerminationSignals trigger a graceful shutdown.
var TerminationSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// SignalHandler maps termination signals to a single shutdown request.
// Signals after the first are logged and otherwise ignored.
type SignalHandler struct {
	logger   *slog.Logger
	faults   *FaultHandler
	shutdown func(ctx context.Context, reason string) bool

	mu        sync.Mutex
	ch        chan os.Signal
	installed bool
	stop      chan struct{}
	wg        sync.WaitGroup
}

func newSignalHandler(logger *slog.Logger, faults *FaultHandler, shutdown func(context.Context, string) bool) *SignalHandler {
	return &SignalHandler{
		logger:   logger,
		faults:   faults,
		shutdown: shutdown,
		ch:       make(chan os.Signal, 2),
		stop:     make(chan struct{}),
	}
}

// Install registers the OS handlers. Calling it twice is a no-op.
func (h *SignalHandler) Install(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.installed {
		return
	}
	h.installed = true

	signal.Notify(h.ch, TerminationSignals...)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.loop(context.WithoutCancel(ctx))
	}()
	h.logger.Debug("Signal handlers installed", slog.Int("signals", len(TerminationSignals)))
}

// Uninstall stops signal delivery and waits for the handler loop to exit.
func (h *SignalHandler) Uninstall() {
	h.mu.Lock()
	if !h.installed {
		h.mu.Unlock()
		return
	}
	h.installed = false
	signal.Stop(h.ch)
	close(h.stop)
	h.mu.Unlock()

	h.wg.Wait()
}

// deliver injects a signal as if the OS had sent it.
func (h *SignalHandler) deliver(sig os.Signal) {
	h.ch <- sig
}

func (h *SignalHandler) loop(ctx context.Context) {
	for {
		select {
		case <-h.stop:
			return
		case sig := <-h.ch:
			h.logger.Info("Termination signal received", logfields.Signal(sig.String()))
			// The first signal runs the whole shutdown on a separate goroutine so
			// later signals are still drained and reported.
			h.faults.Go("signal-handler", func() {
				if !h.shutdown(ctx, sig.String()) {
					h.logger.Info("Shutdown already in progress, ignoring signal", logfields.Signal(sig.String()))
				}
			})
		}
	}
}
