// Package config loads the driverd YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
)

// Config represents the daemon configuration.
type Config struct {
	// IdentityFile names the daemon identity descriptor (name, version).
	IdentityFile string `yaml:"identity_file"`
	// LockFile guards against two daemons sharing one workspace root.
	LockFile string `yaml:"lock_file,omitempty"`

	Drivers    DriversConfig    `yaml:"drivers"`
	Workspace  WorkspaceConfig  `yaml:"workspace"`
	Controller ControllerConfig `yaml:"controller"`
	Logging    LoggingConfig    `yaml:"logging"`
	HTTP       HTTPConfig       `yaml:"http,omitempty"`
	Journal    JournalConfig    `yaml:"journal,omitempty"`
	Health     HealthConfig     `yaml:"health,omitempty"`
}

// DriversConfig locates driver packages.
type DriversConfig struct {
	Dir string `yaml:"dir"`
	// MetadataFiles are tried in order inside each driver directory.
	MetadataFiles []string `yaml:"metadata_files,omitempty"`
}

// WorkspaceConfig locates the workspace root.
type WorkspaceConfig struct {
	Path string `yaml:"path"`
	// Watch hands workspace directories created after boot to the controller.
	Watch bool `yaml:"watch,omitempty"`
}

// ControllerType selects the controller implementation.
type ControllerType string

const (
	ControllerLocal ControllerType = "local"
	ControllerNATS  ControllerType = "nats"
)

// ControllerConfig selects and configures the controller.
type ControllerConfig struct {
	Type ControllerType `yaml:"type"`
	NATS NATSConfig     `yaml:"nats,omitempty"`
}

// NATSConfig configures the NATS controller.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
	// ClientName defaults to the daemon identity name.
	ClientName string `yaml:"client_name,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// HTTPConfig configures the optional health/metrics listener.
type HTTPConfig struct {
	// Addr is the listen address, e.g. ":9464". Empty disables the listener.
	Addr string `yaml:"addr,omitempty"`
}

// JournalConfig configures the lifecycle journal.
type JournalConfig struct {
	// Path is the SQLite file. Empty disables the journal.
	Path string `yaml:"path,omitempty"`
}

// HealthConfig configures the periodic driver health sweep.
type HealthConfig struct {
	// Interval between sweeps. Zero disables the sweep.
	Interval time.Duration `yaml:"interval,omitempty"`
}

// Load reads, expands, defaults and validates the configuration at configPath.
// Relative paths inside the file are resolved against the file's directory.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dberrors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				WithCause(err).
				Build()
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, dberrors.WrapError(err, dberrors.CategoryConfig, "invalid configuration").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg.resolvePaths(filepath.Dir(absPath))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML content after ${VAR} expansion and applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func (c *Config) resolvePaths(baseDir string) {
	c.IdentityFile = resolve(baseDir, c.IdentityFile)
	c.LockFile = resolve(baseDir, c.LockFile)
	c.Drivers.Dir = resolve(baseDir, c.Drivers.Dir)
	c.Workspace.Path = resolve(baseDir, c.Workspace.Path)
	c.Journal.Path = resolve(baseDir, c.Journal.Path)
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		IdentityFile: DefaultIdentityFile,
		LockFile:     "driverd.lock",
		Drivers: DriversConfig{
			Dir: "drivers",
		},
		Workspace: WorkspaceConfig{
			Path: "/var/lib/driverd/workspaces",
		},
		Controller: ControllerConfig{
			Type: ControllerLocal,
			NATS: NATSConfig{
				URL:           "${NATS_URL}",
				SubjectPrefix: DefaultSubjectPrefix,
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
		HTTP:    HTTPConfig{Addr: ":9464"},
		Health:  HealthConfig{Interval: DefaultHealthInterval},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
