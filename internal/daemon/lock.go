package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
)

// instanceLock keeps two daemons from sharing one workspace root.
type instanceLock struct {
	f *flock.Flock
}

func acquireInstanceLock(path string) (*instanceLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f := flock.New(path)
	ok, err := f.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, dberrors.DaemonError("another driverd instance holds the lock").
			WithContext("path", path).
			Build()
	}
	return &instanceLock{f: f}, nil
}

func (l *instanceLock) Unlock() error {
	return l.f.Unlock()
}
