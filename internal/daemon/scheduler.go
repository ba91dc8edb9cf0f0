package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/driverd/internal/logfields"
)

// Scheduler wraps a gocron scheduler for the daemon's periodic tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// ScheduleHealthSweep runs sweep every interval.
func (s *Scheduler) ScheduleHealthSweep(interval time.Duration, sweep func(context.Context)) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { sweep(context.Background()) }),
		gocron.WithName("driver-health-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create health sweep job: %w", err)
	}
	return nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Debug("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down and waits for running jobs.
func (s *Scheduler) Stop() error {
	s.logger.Debug("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// sweepDrivers logs drivers handed to the controller that have since stopped
// running and refreshes the active driver gauge.
func (d *Daemon) sweepDrivers(ctx context.Context) {
	if d.state.ShutdownRequested() {
		return
	}
	running := 0
	for _, e := range d.active {
		if e.Driver.Running() {
			running++
			continue
		}
		d.logger.WarnContext(ctx, "Driver no longer running", logfields.Driver(e.Name()))
	}
	d.recorder.SetActiveDrivers(running)
}
