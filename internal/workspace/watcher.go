package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/driverd/internal/logfields"
)

// Handler receives the path of a workspace directory created after boot.
type Handler func(ctx context.Context, path string)

// Watcher reports new workspace directories under the root. Removals are
// logged and otherwise ignored.
type Watcher struct {
	root    string
	handler Handler
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	stopChan chan struct{}
	stopped  bool
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for root. handler is called from the watcher goroutine.
func NewWatcher(root string, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		root:     filepath.Clean(root),
		handler:  handler,
		logger:   logger,
		watcher:  fw,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching. It returns once the root is registered.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch workspace root %s: %w", w.root, err)
	}
	w.logger.Info("Watching workspace root", logfields.Path(w.root))

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop ends the watch loop and waits for it. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopChan)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Workspace watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if filepath.Dir(event.Name) != w.root {
		return
	}
	switch {
	case event.Has(fsnotify.Create):
		entries, err := ListEntries(w.root)
		if err != nil {
			w.logger.Warn("Cannot list workspace root", logfields.Error(err))
			return
		}
		for _, e := range entries {
			if e == event.Name {
				w.logger.Info("New workspace detected", logfields.Workspace(e))
				w.handler(ctx, e)
				return
			}
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.logger.Warn("Workspace removed from root", logfields.Workspace(event.Name))
	}
}
