package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFS records every Mkdir it forwards to the OS.
type countingFS struct {
	osFS
	mu     sync.Mutex
	mkdirs []string
}

func (c *countingFS) Mkdir(name string, perm fs.FileMode) error {
	c.mu.Lock()
	c.mkdirs = append(c.mkdirs, name)
	c.mu.Unlock()
	return os.Mkdir(name, perm)
}

func newCountingProvisioner() (*Provisioner, *countingFS) {
	cfs := &countingFS{}
	p := NewProvisioner(nil)
	p.fs = cfs
	return p, cfs
}

func TestEnsureDirectory_ExistingPathMutatesNothing(t *testing.T) {
	root := t.TempDir()
	p, cfs := newCountingProvisioner()

	created, err := p.EnsureDirectory(root)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, cfs.mkdirs)
}

func TestEnsureDirectory_CreatesMissingTrailingSegments(t *testing.T) {
	for k := 1; k <= 3; k++ {
		t.Run(string(rune('0'+k)), func(t *testing.T) {
			base := t.TempDir()
			target := base
			var want []string
			for i := range k {
				target = filepath.Join(target, "seg"+string(rune('a'+i)))
				want = append(want, target)
			}

			p, cfs := newCountingProvisioner()
			created, err := p.EnsureDirectory(target)
			require.NoError(t, err)
			assert.Equal(t, k, created)
			assert.Equal(t, want, cfs.mkdirs, "segments are created root to leaf")
			assert.DirExists(t, target)

			created, err = p.EnsureDirectory(target)
			require.NoError(t, err)
			assert.Zero(t, created, "second call is idempotent")
		})
	}
}

func TestEnsureDirectory_FileInTheWay(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := EnsureDirectory(filepath.Join(blocker, "ws"))
	assert.Error(t, err)

	_, err = EnsureDirectory(blocker)
	assert.Error(t, err)
}

func TestEnsureDirectory_ConcurrentCallers(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "c")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = EnsureDirectory(target)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.DirExists(t, target)
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{"/", "/a", "/a/b"}, ancestors("/a/b"))
	assert.Equal(t, []string{"/"}, ancestors("/"))
}

func TestListEntries(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"beta", "alpha", ".hidden"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0o750))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), nil, 0o600))

	entries, err := ListEntries(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, ".hidden"),
		filepath.Join(root, "alpha"),
		filepath.Join(root, "beta"),
	}, entries)

	empty, err := ListEntries(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ListEntries(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestWatcher_ReportsNewWorkspaces(t *testing.T) {
	root := t.TempDir()
	seen := make(chan string, 4)

	w, err := NewWatcher(root, func(_ context.Context, path string) { seen <- path }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), nil, 0o600))
	ws := filepath.Join(root, "project")
	require.NoError(t, os.Mkdir(ws, 0o750))

	select {
	case got := <-seen:
		assert.Equal(t, ws, got)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report new workspace")
	}

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop(), "stop is idempotent")
}
