package config

import (
	"path/filepath"
	"strings"

	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
)

func required(field string) error {
	return dberrors.ConfigError("missing required field").
		WithContext("field", field).
		Build()
}

func invalid(field, reason string) error {
	return dberrors.ValidationError(reason).
		WithContext("field", field).
		Build()
}

// Validate checks the configuration after defaults and path resolution.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Drivers.Dir) == "" {
		return required("drivers.dir")
	}
	if strings.TrimSpace(c.Workspace.Path) == "" {
		return required("workspace.path")
	}
	if !filepath.IsAbs(c.Workspace.Path) {
		return invalid("workspace.path", "workspace path must be absolute")
	}

	ctype, err := controllerTypes.Parse(string(c.Controller.Type))
	if err != nil {
		return invalid("controller.type", err.Error())
	}
	if ctype == ControllerNATS && strings.TrimSpace(c.Controller.NATS.URL) == "" {
		return required("controller.nats.url")
	}

	if _, err := logFormats.Parse(c.Logging.Format); err != nil {
		return invalid("logging.format", err.Error())
	}

	if c.Health.Interval < 0 {
		return invalid("health.interval", "health interval must not be negative")
	}
	return nil
}
