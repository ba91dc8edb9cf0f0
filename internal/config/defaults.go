package config

import (
	"time"

	"git.home.luguber.info/inful/driverd/internal/foundation"
)

const (
	DefaultIdentityFile   = "daemon.yaml"
	DefaultSubjectPrefix  = "driverd"
	DefaultHealthInterval = time.Minute
)

// DefaultMetadataFiles are the descriptor names looked up in each driver directory.
var DefaultMetadataFiles = []string{"driver.yaml", "driver.yml", "driver.json"}

var controllerTypes = foundation.NewEnum("controller type", map[string]ControllerType{
	"local":  ControllerLocal,
	"inproc": ControllerLocal,
	"nats":   ControllerNATS,
})

var logFormats = foundation.NewEnum("log format", map[string]string{
	"auto": "auto",
	"text": "text",
	"json": "json",
})

func applyDefaults(cfg *Config) {
	if cfg.IdentityFile == "" {
		cfg.IdentityFile = DefaultIdentityFile
	}
	if len(cfg.Drivers.MetadataFiles) == 0 {
		cfg.Drivers.MetadataFiles = append([]string(nil), DefaultMetadataFiles...)
	}
	if cfg.Controller.Type == "" {
		cfg.Controller.Type = ControllerLocal
	}
	// Unrecognized values are kept so Validate can report them.
	cfg.Controller.Type = controllerTypes.ParseOr(string(cfg.Controller.Type), cfg.Controller.Type)
	if cfg.Controller.NATS.SubjectPrefix == "" {
		cfg.Controller.NATS.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "auto"
	}
	cfg.Logging.Format = logFormats.ParseOr(cfg.Logging.Format, cfg.Logging.Format)
}
