package metrics

import "time"

// ResultLabel enumerates boot phase result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultWarning ResultLabel = "warning"
	ResultFatal   ResultLabel = "fatal"
	ResultSkipped ResultLabel = "skipped"
)

// Recorder defines observability hooks for the daemon lifecycle.
type Recorder interface {
	ObservePhaseDuration(phase string, d time.Duration)
	IncPhaseResult(phase string, result ResultLabel)
	ObserveBootDuration(d time.Duration)
	IncDriverRegistration(outcome string) // inserted|replaced|discarded|skipped
	IncDriverLifecycle(op string, success bool)
	SetActiveDrivers(n int)
	IncWorkspaceLoad(success bool)
	IncUncaughtFault(origin string)
	IncShutdown(reason string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePhaseDuration(string, time.Duration) {}
func (NoopRecorder) IncPhaseResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveBootDuration(time.Duration)          {}
func (NoopRecorder) IncDriverRegistration(string)               {}
func (NoopRecorder) IncDriverLifecycle(string, bool)            {}
func (NoopRecorder) SetActiveDrivers(int)                       {}
func (NoopRecorder) IncWorkspaceLoad(bool)                      {}
func (NoopRecorder) IncUncaughtFault(string)                    {}
func (NoopRecorder) IncShutdown(string)                         {}
