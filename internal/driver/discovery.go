package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
	"git.home.luguber.info/inful/driverd/internal/logfields"
)

// DefaultMetadataFiles are tried in order inside each driver directory.
var DefaultMetadataFiles = []string{"driver.yaml", "driver.yml", "driver.json"}

// Candidate is the outcome of reading one driver directory.
type Candidate struct {
	Dir        string
	Descriptor Descriptor
	// Err is a MetadataParseError when the candidate must be skipped.
	Err error
}

// Loader discovers driver packages and registers them.
type Loader struct {
	Catalog       *Catalog
	MetadataFiles []string
	Logger        *slog.Logger
	// OnResult, when set, is called once per candidate after it was
	// registered or skipped. Calls arrive concurrently.
	OnResult func(c Candidate, outcome Outcome, skipped bool)
	// Guard, when set, wraps every discovery goroutine and every driver
	// construction; it reports whether fn panicked. A candidate whose
	// construction panicked is skipped. Without a Guard panics propagate.
	Guard func(origin string, fn func()) bool
}

// LoadReport summarizes a Load call.
type LoadReport struct {
	Candidates int
	Skipped    int
	Inserted   int
	Replaced   int
	Discarded  int
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Loader) guard(origin string, fn func()) bool {
	if l.Guard == nil {
		fn()
		return false
	}
	return l.Guard(origin, fn)
}

func (l *Loader) metadataFiles() []string {
	if len(l.MetadataFiles) > 0 {
		return l.MetadataFiles
	}
	return DefaultMetadataFiles
}

// Discover reads every driver directory under dir without instantiating
// anything. Only an unlistable dir fails; bad candidates carry Err.
func (l *Loader) Discover(ctx context.Context, dir string) ([]Candidate, error) {
	var (
		mu  sync.Mutex
		out []Candidate
	)
	err := l.scan(ctx, dir, func(c Candidate) {
		mu.Lock()
		out = append(out, c)
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dir < out[j].Dir })
	return out, nil
}

// Load discovers drivers under dir, builds each through the catalog and
// registers it as soon as its metadata read completes.
func (l *Loader) Load(ctx context.Context, dir string, reg *Registry) (LoadReport, error) {
	var (
		mu     sync.Mutex
		report LoadReport
	)
	log := l.logger()

	err := l.scan(ctx, dir, func(c Candidate) {
		var (
			outcome Outcome
			skipped bool
		)
		if l.guard("driver-register:"+filepath.Base(c.Dir), func() {
			outcome, skipped = l.register(ctx, c, reg, log)
		}) {
			log.Warn("Skipping driver candidate, construction panicked", logfields.Path(c.Dir))
			outcome, skipped = 0, true
		}
		if l.OnResult != nil {
			l.OnResult(c, outcome, skipped)
		}

		mu.Lock()
		defer mu.Unlock()
		report.Candidates++
		if skipped {
			report.Skipped++
			return
		}
		switch outcome {
		case Inserted:
			report.Inserted++
		case Replaced:
			report.Replaced++
		case Discarded:
			report.Discarded++
		}
	})
	return report, err
}

func (l *Loader) register(ctx context.Context, c Candidate, reg *Registry, log *slog.Logger) (Outcome, bool) {
	if c.Err != nil {
		log.Warn("Skipping driver candidate", logfields.Path(c.Dir), logfields.Error(c.Err))
		return 0, true
	}
	if l.Catalog == nil {
		log.Warn("Skipping driver candidate, no catalog configured", logfields.Path(c.Dir))
		return 0, true
	}

	drv, err := l.Catalog.New(c.Descriptor)
	if err != nil {
		log.Warn("Skipping driver candidate",
			logfields.Path(c.Dir),
			logfields.DriverType(c.Descriptor.FactoryKey()),
			logfields.Error(dberrors.MetadataParseError(c.Dir, err)))
		return 0, true
	}
	return reg.Register(ctx, c.Descriptor, drv), false
}

// scan lists dir and reads every subdirectory's metadata concurrently,
// calling fn from each read's goroutine. It returns once all reads completed.
func (l *Loader) scan(ctx context.Context, dir string, fn func(Candidate)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dberrors.DiscoveryError(dir, err)
	}

	files := l.metadataFiles()
	var wg sync.WaitGroup
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !isDir(entry, path) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.guard("driver-discover:"+entry.Name(), func() {
				desc, err := ReadDescriptor(path, files)
				if err != nil {
					fn(Candidate{Dir: path, Err: dberrors.MetadataParseError(path, err)})
					return
				}
				fn(Candidate{Dir: path, Descriptor: desc})
			})
		}()
	}
	wg.Wait()
	return nil
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

// ReadDescriptor reads the first metadata file present in dir. YAML and JSON
// are both accepted.
func ReadDescriptor(dir string, files []string) (Descriptor, error) {
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Descriptor{}, err
		}

		var desc Descriptor
		if err := yaml.Unmarshal(data, &desc); err != nil {
			return Descriptor{}, fmt.Errorf("parse %s: %w", name, err)
		}
		if err := desc.Validate(); err != nil {
			return Descriptor{}, fmt.Errorf("%s: %w", name, err)
		}
		desc.Dir = dir
		return desc, nil
	}
	return Descriptor{}, fmt.Errorf("no metadata file (tried %v)", files)
}
