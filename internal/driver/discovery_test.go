package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/driverd/internal/driver"
	"git.home.luguber.info/inful/driverd/internal/driver/drivertest"
	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
)

func TestLoader_TwoDistinctDrivers(t *testing.T) {
	root := t.TempDir()
	drivertest.WriteDriver(t, root, "A", "name: A\nversion: 1\ntype: fake\n")
	drivertest.WriteDriver(t, root, "B", "name: B\nversion: 1\ntype: fake\n")

	pool := drivertest.NewPool(nil)
	loader := &driver.Loader{Catalog: pool.Catalog()}
	reg := driver.NewRegistry(nil)

	report, err := loader.Load(context.Background(), root, reg)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 2, reg.Count())
}

func TestLoader_SameNameKeepsHighestVersion(t *testing.T) {
	root := t.TempDir()
	drivertest.WriteDriver(t, root, "a-v1", "name: A\nversion: 1\ntype: fake\n")
	drivertest.WriteDriver(t, root, "a-v2", "name: A\nversion: 2\ntype: fake\n")

	loader := &driver.Loader{Catalog: drivertest.NewPool(nil).Catalog()}
	reg := driver.NewRegistry(nil)

	report, err := loader.Load(context.Background(), root, reg)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Count())
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.Replaced+report.Discarded)

	e, ok := reg.Get("A")
	require.True(t, ok)
	assert.Equal(t, driver.Version("2"), e.Descriptor.Version)
	assert.Equal(t, filepath.Join(root, "a-v2"), e.Descriptor.Dir)
}

func TestLoader_SkipsBadCandidates(t *testing.T) {
	root := t.TempDir()
	drivertest.WriteDriver(t, root, "good", "name: good\nversion: 1.0\ntype: fake\n")
	drivertest.WriteDriver(t, root, "noname", "version: 1\ntype: fake\n")
	drivertest.WriteDriver(t, root, "broken", "name: [oops\n")
	drivertest.WriteDriver(t, root, "unknown", "name: unknown\nversion: 1\ntype: nope\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("not a driver"), 0o600))

	loader := &driver.Loader{Catalog: drivertest.NewPool(nil).Catalog()}
	reg := driver.NewRegistry(nil)

	report, err := loader.Load(context.Background(), root, reg)
	require.NoError(t, err, "bad candidates are never fatal")
	assert.Equal(t, 5, report.Candidates)
	assert.Equal(t, 4, report.Skipped)
	assert.Equal(t, 1, reg.Count())
}

func TestLoader_JSONMetadata(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "json")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "driver.json"),
		[]byte(`{"name": "jsondrv", "version": 3, "type": "fake", "args": ["-v"]}`), 0o600))

	candidates, err := (&driver.Loader{}).Discover(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.NoError(t, candidates[0].Err)
	assert.Equal(t, "jsondrv", candidates[0].Descriptor.Name)
	assert.Equal(t, driver.Version("3"), candidates[0].Descriptor.Version)
	assert.Equal(t, []string{"-v"}, candidates[0].Descriptor.Args)
}

func TestLoader_Discover_ReportsMetadataErrors(t *testing.T) {
	root := t.TempDir()
	drivertest.WriteDriver(t, root, "noname", "version: 1\n")

	candidates, err := (&driver.Loader{}).Discover(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.True(t, dberrors.HasCategory(candidates[0].Err, dberrors.CategoryMetadata))
}

func TestLoader_UnlistableDirectoryIsFatal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := (&driver.Loader{}).Load(context.Background(), missing, driver.NewRegistry(nil))
	require.Error(t, err)
	assert.True(t, dberrors.IsFatal(err))
	assert.Equal(t, dberrors.CategoryDiscovery, dberrors.GetCategory(err))
}

func TestLoader_GuardSkipsPanickingFactory(t *testing.T) {
	root := t.TempDir()
	drivertest.WriteDriver(t, root, "a", "name: A\nversion: 1\ntype: fake\n")
	drivertest.WriteDriver(t, root, "b", "name: B\nversion: 1\ntype: fake\n")

	pool := drivertest.NewPool(func(f *drivertest.Fake) {
		if f.Descriptor.Name == "A" {
			panic("factory exploded")
		}
	})
	var faulted []string
	var mu sync.Mutex
	loader := &driver.Loader{
		Catalog: pool.Catalog(),
		Guard: func(origin string, fn func()) (panicked bool) {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					faulted = append(faulted, origin)
					mu.Unlock()
					panicked = true
				}
			}()
			fn()
			return false
		},
	}
	reg := driver.NewRegistry(nil)

	report, err := loader.Load(context.Background(), root, reg)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, []string{"driver-register:a"}, faulted)

	_, ok := reg.Get("A")
	assert.False(t, ok)
	_, ok = reg.Get("B")
	assert.True(t, ok)
}
