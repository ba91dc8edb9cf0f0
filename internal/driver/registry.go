package driver

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"git.home.luguber.info/inful/driverd/internal/logfields"
)

// Outcome reports what Register did with a candidate.
type Outcome int

const (
	// Inserted means the name was new.
	Inserted Outcome = iota
	// Replaced means the candidate outranked the existing entry.
	Replaced
	// Discarded means the existing entry's version was equal or higher.
	Discarded
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Registry holds the active driver set, at most one entry per name.
//
// Register is serialized, so regardless of the order concurrent registrations
// arrive in, the stored entry is always the highest version seen.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger uses slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]Entry),
		logger:  logger,
	}
}

// Register inserts desc/drv, replaces a lower-versioned entry of the same
// name, or discards the candidate. A superseded driver that is still running
// is stopped after the swap.
func (r *Registry) Register(ctx context.Context, desc Descriptor, drv Driver) Outcome {
	r.mu.Lock()
	existing, ok := r.entries[desc.Name]
	var outcome Outcome
	switch {
	case !ok:
		outcome = Inserted
	case existing.Descriptor.Version.Less(desc.Version):
		outcome = Replaced
	default:
		outcome = Discarded
	}
	if outcome != Discarded {
		r.entries[desc.Name] = Entry{Descriptor: desc, Driver: drv}
	}
	r.mu.Unlock()

	switch outcome {
	case Inserted:
		r.logger.Debug("Driver registered",
			logfields.Driver(desc.Name), logfields.Version(string(desc.Version)))
	case Replaced:
		r.logger.Info("Driver superseded by newer version",
			logfields.Driver(desc.Name),
			slog.String("previous_version", string(existing.Descriptor.Version)),
			logfields.Version(string(desc.Version)))
		r.stopSuperseded(ctx, existing)
	case Discarded:
		r.logger.Info("Driver candidate discarded, registered version is not lower",
			logfields.Driver(desc.Name),
			logfields.Version(string(desc.Version)),
			slog.String("registered_version", string(existing.Descriptor.Version)))
	}
	return outcome
}

func (r *Registry) stopSuperseded(ctx context.Context, old Entry) {
	if old.Driver == nil || !old.Driver.Running() {
		return
	}
	if err := old.Driver.Stop(context.WithoutCancel(ctx)); err != nil {
		r.logger.Warn("Failed to stop superseded driver",
			logfields.Driver(old.Name()),
			logfields.Version(string(old.Descriptor.Version)),
			logfields.Error(err))
	}
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// List returns all entries sorted by name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Running returns the entries whose driver currently reports Running.
func (r *Registry) Running() []Entry {
	var out []Entry
	for _, e := range r.List() {
		if e.Driver != nil && e.Driver.Running() {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of registered drivers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
