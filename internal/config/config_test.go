package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "driverd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaultsAndResolvesPaths(t *testing.T) {
	wsRoot := t.TempDir()
	path := writeConfig(t, `
drivers:
  dir: drivers
workspace:
  path: `+wsRoot+`
health:
  interval: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	base := filepath.Dir(path)
	assert.Equal(t, filepath.Join(base, DefaultIdentityFile), cfg.IdentityFile)
	assert.Equal(t, filepath.Join(base, "drivers"), cfg.Drivers.Dir)
	assert.Equal(t, wsRoot, cfg.Workspace.Path)
	assert.Equal(t, DefaultMetadataFiles, cfg.Drivers.MetadataFiles)
	assert.Equal(t, ControllerLocal, cfg.Controller.Type)
	assert.Equal(t, DefaultSubjectPrefix, cfg.Controller.NATS.SubjectPrefix)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "auto", cfg.Logging.Format)
	assert.Equal(t, 30*time.Second, cfg.Health.Interval)
	assert.Empty(t, cfg.Journal.Path)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("DRIVERD_TEST_NATS", "nats://127.0.0.1:4222")
	path := writeConfig(t, `
drivers:
  dir: /opt/drivers
workspace:
  path: /srv/ws
controller:
  type: nats
  nats:
    url: ${DRIVERD_TEST_NATS}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ControllerNATS, cfg.Controller.Type)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Controller.NATS.URL)
}

func TestParse_NormalizesEnumerations(t *testing.T) {
	cfg, err := Parse([]byte("controller:\n  type: \" NATS \"\nlogging:\n  format: JSON\n"))
	require.NoError(t, err)
	assert.Equal(t, ControllerNATS, cfg.Controller.Type)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, dberrors.HasCategory(err, dberrors.CategoryConfig))
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "drivers: [unterminated\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, dberrors.HasCategory(err, dberrors.CategoryConfig))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Parse([]byte("drivers:\n  dir: /d\nworkspace:\n  path: /w\n"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		category dberrors.ErrorCategory
	}{
		{"ok", func(*Config) {}, ""},
		{"missing drivers dir", func(c *Config) { c.Drivers.Dir = "" }, dberrors.CategoryConfig},
		{"missing workspace", func(c *Config) { c.Workspace.Path = " " }, dberrors.CategoryConfig},
		{"relative workspace", func(c *Config) { c.Workspace.Path = "ws" }, dberrors.CategoryValidation},
		{"nats without url", func(c *Config) { c.Controller.Type = ControllerNATS }, dberrors.CategoryConfig},
		{"unknown controller", func(c *Config) { c.Controller.Type = "grpc" }, dberrors.CategoryValidation},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, dberrors.CategoryValidation},
		{"negative interval", func(c *Config) { c.Health.Interval = -time.Second }, dberrors.CategoryValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.category == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.category, dberrors.GetCategory(err))
		})
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driverd.yaml")
	require.NoError(t, Init(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "identity_file: daemon.yaml")
	assert.Contains(t, string(data), "interval: 1m0s")

	assert.Error(t, Init(path, false), "existing file must not be overwritten")
	assert.NoError(t, Init(path, true))
}
