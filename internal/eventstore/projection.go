package eventstore

import (
	"context"
	"sort"
	"time"
)

// RunSummary is a read model of one daemon run.
type RunSummary struct {
	RunID      string               `json:"run_id"`
	Daemon     string               `json:"daemon,omitempty"`
	Version    string               `json:"version,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	StoppedAt  *time.Time           `json:"stopped_at,omitempty"`
	Phases     []PhaseCompletedData `json:"phases"`
	Drivers    map[string]string    `json:"drivers"` // name -> last lifecycle state
	Workspaces int                  `json:"workspaces"`
	Failures   int                  `json:"failures"`
	Reason     string               `json:"shutdown_reason,omitempty"`
}

// Summarize replays events of one run into a RunSummary. Events with
// undecodable payloads are skipped.
func Summarize(runID string, events []Event) *RunSummary {
	s := &RunSummary{RunID: runID, Drivers: map[string]string{}}
	for _, e := range events {
		if s.StartedAt.IsZero() {
			s.StartedAt = e.Timestamp()
		}
		if s.Daemon == "" {
			s.Daemon = e.Metadata()[MetaDaemon]
		}
		switch e.Type() {
		case TypeDaemonStarted:
			var d DaemonStartedData
			if Decode(e, &d) == nil {
				s.Daemon, s.Version = d.Name, d.Version
				s.StartedAt = e.Timestamp()
			}
		case TypePhaseCompleted:
			var d PhaseCompletedData
			if Decode(e, &d) == nil {
				s.Phases = append(s.Phases, d)
			}
		case TypeDriverRegistered:
			var d DriverRegisteredData
			if Decode(e, &d) == nil && d.Outcome != "discarded" {
				s.Drivers[d.Name] = "registered"
			}
		case TypeDriverLifecycle:
			var d DriverLifecycleData
			if Decode(e, &d) == nil {
				state := d.Op
				if d.Error != "" {
					state = d.Op + "-failed"
					s.Failures++
				}
				s.Drivers[d.Name] = state
			}
		case TypeWorkspaceLoaded:
			var d WorkspaceLoadedData
			if Decode(e, &d) == nil {
				if d.Error != "" {
					s.Failures++
				} else {
					s.Workspaces++
				}
			}
		case TypeShutdownCompleted:
			var d ShutdownCompletedData
			if Decode(e, &d) == nil {
				s.Reason = d.Reason
				ts := e.Timestamp()
				s.StoppedAt = &ts
			}
		}
	}
	return s
}

// DriverNames returns the summary's driver names, sorted.
func (s *RunSummary) DriverNames() []string {
	names := make([]string, 0, len(s.Drivers))
	for n := range s.Drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadRun reads and summarizes runID from store.
func LoadRun(ctx context.Context, store Store, runID string) (*RunSummary, error) {
	events, err := store.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return Summarize(runID, events), nil
}

// SummarizeRuns groups events by run and summarizes each run, in order of
// each run's first event. A run cut off by a time window keeps its daemon
// from event metadata.
func SummarizeRuns(events []Event) []*RunSummary {
	var order []string
	byRun := map[string][]Event{}
	for _, e := range events {
		if _, seen := byRun[e.RunID()]; !seen {
			order = append(order, e.RunID())
		}
		byRun[e.RunID()] = append(byRun[e.RunID()], e)
	}

	out := make([]*RunSummary, 0, len(order))
	for _, runID := range order {
		out = append(out, Summarize(runID, byRun[runID]))
	}
	return out
}

// LoadRange summarizes every run with events between start and end.
func LoadRange(ctx context.Context, store Store, start, end time.Time) ([]*RunSummary, error) {
	events, err := store.GetRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return SummarizeRuns(events), nil
}
