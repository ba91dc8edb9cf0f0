package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/driverd/internal/config"
	"git.home.luguber.info/inful/driverd/internal/controller"
	"git.home.luguber.info/inful/driverd/internal/daemon"
	"git.home.luguber.info/inful/driverd/internal/driver"
	"git.home.luguber.info/inful/driverd/internal/driver/process"
	"git.home.luguber.info/inful/driverd/internal/eventstore"
	"git.home.luguber.info/inful/driverd/internal/logfields"
	"git.home.luguber.info/inful/driverd/internal/metrics"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	HTTPAddr string `name:"http-addr" help:"Health and metrics listen address; overrides the config file"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, logger, err := root.loadConfig()
	if err != nil {
		return err
	}
	if d.HTTPAddr != "" {
		cfg.HTTP.Addr = d.HTTPAddr
	}
	return RunDaemon(context.Background(), cfg, logger)
}

// RunDaemon wires the configured collaborators into a daemon and runs it
// until it has shut down.
func RunDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	opts, cleanup, err := BuildOptions(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	d, err := daemon.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	return d.Run(ctx)
}

// BuildOptions translates cfg into daemon options. cleanup releases the
// journal and must be called once the daemon has stopped.
func BuildOptions(cfg *config.Config, logger *slog.Logger) (daemon.Options, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctrl, err := NewController(cfg, logger)
	if err != nil {
		return daemon.Options{}, nil, err
	}

	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := daemon.Options{
		IdentityFile:    cfg.IdentityFile,
		LockFile:        cfg.LockFile,
		DriverDir:       cfg.Drivers.Dir,
		MetadataFiles:   cfg.Drivers.MetadataFiles,
		Catalog:         NewCatalog(logger),
		WorkspaceRoot:   cfg.Workspace.Path,
		WatchWorkspaces: cfg.Workspace.Watch,
		Controller:      ctrl,
		Logger:          logger,
		Recorder:        metrics.NewPrometheusRecorder(reg),
		HTTPAddr:        cfg.HTTP.Addr,
		PromRegistry:    reg,
		HealthInterval:  cfg.Health.Interval,
		InstallSignals:  true,
	}

	cleanup := func() {}
	if cfg.Journal.Path != "" {
		store, err := eventstore.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			return daemon.Options{}, nil, fmt.Errorf("open journal: %w", err)
		}
		opts.Journal = store
		cleanup = func() { closeJournal(store, logger) }
	}
	return opts, cleanup, nil
}

func closeJournal(store io.Closer, logger *slog.Logger) {
	if err := store.Close(); err != nil {
		logger.Warn("Failed to close journal", logfields.Error(err))
	}
}

// NewCatalog returns the catalog of driver kinds this binary can build.
func NewCatalog(logger *slog.Logger) *driver.Catalog {
	c := driver.NewCatalog()
	c.MustRegister(process.Type, process.Factory(logger))
	return c
}

// NewController builds the configured controller.
func NewController(cfg *config.Config, logger *slog.Logger) (controller.Controller, error) {
	switch cfg.Controller.Type {
	case config.ControllerNATS:
		n, err := controller.NewNATS(controller.NATSOptions{
			URL:           cfg.Controller.NATS.URL,
			SubjectPrefix: cfg.Controller.NATS.SubjectPrefix,
			ClientName:    cfg.Controller.NATS.ClientName,
		}, logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	case config.ControllerLocal, "":
		return controller.NewLocal(logger), nil
	default:
		return nil, fmt.Errorf("unknown controller type %q", cfg.Controller.Type)
	}
}
