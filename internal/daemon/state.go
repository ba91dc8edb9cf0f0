package daemon

import (
	"sync/atomic"
)

// Phase is the daemon's lifecycle phase.
type Phase string

const (
	PhaseBooting      Phase = "booting"
	PhaseRunning      Phase = "running"
	PhaseShuttingDown Phase = "shutting_down"
	PhaseStopped      Phase = "stopped"
)

// State is the daemon state shared by the boot sequencer, the shutdown
// coordinator and the signal handler.
type State struct {
	phase             atomic.Value // Phase
	shutdownRequested atomic.Bool
}

func newState() *State {
	s := &State{}
	s.phase.Store(PhaseBooting)
	return s
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	p, ok := s.phase.Load().(Phase)
	if !ok {
		return PhaseBooting
	}
	return p
}

func (s *State) setPhase(p Phase) { s.phase.Store(p) }

// transition moves from one phase to another and reports whether it did.
func (s *State) transition(from, to Phase) bool {
	return s.phase.CompareAndSwap(from, to)
}

// ShutdownRequested reports whether shutdown has been requested.
func (s *State) ShutdownRequested() bool { return s.shutdownRequested.Load() }

// requestShutdown sets the flag and reports whether this call set it.
func (s *State) requestShutdown() bool {
	return s.shutdownRequested.CompareAndSwap(false, true)
}
