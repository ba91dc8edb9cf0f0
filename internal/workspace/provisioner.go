package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/driverd/internal/logfields"
)

const dirPermissions = 0o750

// fileSystem is the subset of os the provisioner mutates through.
type fileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	Mkdir(name string, perm fs.FileMode) error
}

type osFS struct{}

func (osFS) Stat(name string) (fs.FileInfo, error)     { return os.Stat(name) }
func (osFS) Mkdir(name string, perm fs.FileMode) error { return os.Mkdir(name, perm) }

// Provisioner creates workspace directories.
type Provisioner struct {
	fs     fileSystem
	logger *slog.Logger
}

// NewProvisioner returns a provisioner backed by the OS filesystem.
func NewProvisioner(logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{fs: osFS{}, logger: logger}
}

// EnsureDirectory makes sure path exists as a directory, creating each missing
// segment from the filesystem root down. It returns how many directories it
// created. A segment created concurrently by someone else is not an error.
func (p *Provisioner) EnsureDirectory(path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("workspace path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}

	if info, err := p.fs.Stat(abs); err == nil {
		if !info.IsDir() {
			return 0, fmt.Errorf("%s exists and is not a directory", abs)
		}
		return 0, nil
	}

	created := 0
	for _, segment := range ancestors(abs) {
		info, err := p.fs.Stat(segment)
		switch {
		case err == nil:
			if !info.IsDir() {
				return created, fmt.Errorf("%s exists and is not a directory", segment)
			}
			continue
		case !errors.Is(err, fs.ErrNotExist):
			return created, fmt.Errorf("stat %s: %w", segment, err)
		}

		if err := p.fs.Mkdir(segment, dirPermissions); err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return created, fmt.Errorf("create %s: %w", segment, err)
		}
		created++
		p.logger.Debug("Created workspace directory", logfields.Path(segment))
	}

	p.logger.Info("Provisioned workspace root", logfields.Path(abs), logfields.Count(created))
	return created, nil
}

// ancestors returns every path from the filesystem root down to path, inclusive.
func ancestors(path string) []string {
	var chain []string
	for p := path; ; p = filepath.Dir(p) {
		chain = append(chain, p)
		if parent := filepath.Dir(p); parent == p {
			break
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// EnsureDirectory provisions path with a default provisioner.
func EnsureDirectory(path string) (int, error) {
	return NewProvisioner(nil).EnsureDirectory(path)
}

// ListEntries returns the absolute paths of the immediate subdirectories of
// root, sorted. Files are ignored; dot-directories are workspaces like any
// other.
func ListEntries(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list workspaces in %s: %w", root, err)
	}

	var out []string
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if !isDir(entry, path) {
			continue
		}
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

func isDir(entry fs.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
