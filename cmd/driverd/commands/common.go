package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/driverd/internal/config"
	"git.home.luguber.info/inful/driverd/internal/observability"
)

// Global is shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	// Out receives user-facing command output.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"driverd.yaml" env:"DRIVERD_CONFIG"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format (auto, text, json); overrides the config file"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Daemon  DaemonCmd  `cmd:"" default:"withargs" help:"Boot drivers and run until terminated"`
	Drivers DriversCmd `cmd:"" help:"List discovered driver packages without starting them"`
	Journal JournalCmd `cmd:"" help:"Show the lifecycle journal of a daemon run"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; sets up the process logger once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(c.newLogger(nil))
	return nil
}

// newLogger builds the logger from flags, falling back to cfg.
func (c *CLI) newLogger(cfg *config.Config) *slog.Logger {
	opts := observability.LoggerOptions{Level: "info", Format: c.LogFormat}
	if cfg != nil {
		opts.Level = cfg.Logging.Level
		if opts.Format == "" {
			opts.Format = cfg.Logging.Format
		}
	}
	if c.Verbose {
		opts.Level = "debug"
	}
	return observability.NewLogger(opts)
}

// loadConfig loads the configuration and re-applies its logging section.
func (c *CLI) loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, nil, err
	}
	logger := c.newLogger(cfg)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
