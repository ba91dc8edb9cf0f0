package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("bad flag").Build(), expected: 2},
		{name: "config", err: ConfigError("bad config").Build(), expected: 7},
		{name: "identity", err: IdentityReadError("/etc/driverd/daemon.yaml", stderrors.New("missing")), expected: 8},
		{name: "discovery", err: DiscoveryError("/opt/drivers", stderrors.New("denied")), expected: 9},
		{name: "wrapped discovery", err: fmt.Errorf("boot: %w", DiscoveryError("/opt/drivers", nil)), expected: 9},
		{name: "unclassified", err: stderrors.New("boom"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logs, out bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(IdentityReadError("/etc/driverd/daemon.yaml", stderrors.New("no such file")))

	require.Equal(t, 8, code)
	assert.Contains(t, out.String(), "daemon identity unreadable (/etc/driverd/daemon.yaml)")
	assert.Contains(t, logs.String(), "error_category=identity")
	assert.Contains(t, logs.String(), "cause=\"no such file\"")
}

func TestCLIErrorAdapter_FormatVerbose(t *testing.T) {
	adapter := NewCLIErrorAdapter(true, nil)
	err := ProvisionError("/srv/ws", stderrors.New("read-only file system"))

	assert.Equal(t, "[filesystem:warning] workspace provisioning failed: read-only file system", adapter.FormatError(err))
	assert.Equal(t, "Error: boom", adapter.FormatError(stderrors.New("boom")))
}
