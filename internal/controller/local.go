package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"git.home.luguber.info/inful/driverd/internal/driver"
	"git.home.luguber.info/inful/driverd/internal/logfields"
)

// Local is an in-process controller that keeps the handed-over drivers and
// workspaces and reports them through Snapshot.
type Local struct {
	logger *slog.Logger

	mu         sync.RWMutex
	drivers    map[string]driver.Driver
	workspaces map[string]struct{}
	started    bool
	stopped    bool
}

// NewLocal creates an empty local controller.
func NewLocal(logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		logger:     logger,
		drivers:    make(map[string]driver.Driver),
		workspaces: make(map[string]struct{}),
	}
}

func (l *Local) AddDriver(name string, drv driver.Driver) {
	l.mu.Lock()
	l.drivers[name] = drv
	l.mu.Unlock()
	l.logger.Debug("Controller accepted driver", logfields.Driver(name))
}

// LoadWorkspace accepts path when it is a readable directory.
func (l *Local) LoadWorkspace(_ context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat workspace: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace %s is not a directory", path)
	}

	l.mu.Lock()
	l.workspaces[path] = struct{}{}
	l.mu.Unlock()
	l.logger.Debug("Controller loaded workspace", logfields.Workspace(path))
	return nil
}

func (l *Local) Start(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return fmt.Errorf("controller already stopped")
	}
	l.started = true
	l.logger.Info("Controller started",
		logfields.Count(len(l.drivers)),
		slog.Int("workspaces", len(l.workspaces)))
	return nil
}

func (l *Local) Stop(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = false
	l.stopped = true
	l.logger.Info("Controller stopped")
	return nil
}

// Snapshot returns the current drivers and workspaces, sorted.
func (l *Local) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Snapshot{
		Started:    l.started,
		Drivers:    make([]string, 0, len(l.drivers)),
		Running:    []string{},
		Workspaces: make([]string, 0, len(l.workspaces)),
	}
	for name, drv := range l.drivers {
		s.Drivers = append(s.Drivers, name)
		if drv != nil && drv.Running() {
			s.Running = append(s.Running, name)
		}
	}
	for ws := range l.workspaces {
		s.Workspaces = append(s.Workspaces, ws)
	}
	sort.Strings(s.Drivers)
	sort.Strings(s.Running)
	sort.Strings(s.Workspaces)
	return s
}
