// Package process implements a driver that supervises an external command
// named in the driver descriptor.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"git.home.luguber.info/inful/driverd/internal/driver"
	"git.home.luguber.info/inful/driverd/internal/logfields"
)

// Type is the catalog key for this driver.
const Type = "process"

// Driver runs desc.Command as a child process for as long as it is started.
type Driver struct {
	desc   driver.Descriptor
	logger *slog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// Factory returns a driver.Factory for process drivers.
func Factory(logger *slog.Logger) driver.Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(desc driver.Descriptor) (driver.Driver, error) {
		if desc.Command == "" {
			return nil, fmt.Errorf("process driver %s has no command", desc.Name)
		}
		return &Driver{desc: desc, logger: logger.With(logfields.Driver(desc.Name))}, nil
	}
}

// Start launches the command. The process is not bound to ctx; only Stop ends it.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running() {
		return nil
	}

	cmd := exec.Command(d.commandPath(), d.desc.Args...) //nolint:gosec // command comes from operator-controlled driver metadata
	cmd.Dir = d.desc.Dir
	cmd.Env = d.environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", d.desc.Command, err)
	}

	done := make(chan struct{})
	d.cmd, d.done, d.err = cmd, done, nil
	go func() {
		err := cmd.Wait()
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		close(done)
		if err != nil {
			d.logger.Debug("Driver process exited", logfields.Error(err))
		}
	}()

	d.logger.Info("Driver process started", slog.Int("pid", cmd.Process.Pid))
	return nil
}

// Stop sends SIGTERM and waits for the process to exit. If ctx ends first the
// process is killed.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	cmd, done := d.cmd, d.done
	d.mu.Unlock()

	if cmd == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	default:
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal %s: %w", d.desc.Name, err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
	}
	return nil
}

// Running reports whether the child process is alive.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running()
}

func (d *Driver) running() bool {
	if d.done == nil {
		return false
	}
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}

// ExitErr returns the error from the last process exit, if any.
func (d *Driver) ExitErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Driver) commandPath() string {
	c := d.desc.Command
	if filepath.IsAbs(c) || d.desc.Dir == "" {
		return c
	}
	// ./bin/x style commands are relative to the driver package.
	if filepath.Base(c) != c {
		return filepath.Join(d.desc.Dir, c)
	}
	return c
}

func (d *Driver) environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(d.desc.Env))
	for k := range d.desc.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+os.ExpandEnv(d.desc.Env[k]))
	}
	return append(env,
		"DRIVERD_DRIVER_NAME="+d.desc.Name,
		"DRIVERD_DRIVER_VERSION="+string(d.desc.Version))
}
