package daemon

import (
	"encoding/json"
	"net/http"
	"time"

	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
	"git.home.luguber.info/inful/driverd/internal/version"
)

// HealthStatus represents the overall health of the daemon.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single health check.
type HealthCheck struct {
	Name        string        `json:"name"`
	Status      HealthStatus  `json:"status"`
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration"`
	LastChecked time.Time     `json:"last_checked"`
}

// HealthResponse represents the complete health check response.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Daemon    string        `json:"daemon,omitempty"`
	Version   string        `json:"version"`
	Checks    []HealthCheck `json:"checks"`
}

// PerformHealthChecks evaluates the daemon phase and the driver set.
// The worst check determines the overall status.
func (d *Daemon) PerformHealthChecks() *HealthResponse {
	checks := []HealthCheck{d.checkDaemonHealth(), d.checkDriverHealth()}

	overall := HealthStatusHealthy
	for _, c := range checks {
		overall = worse(overall, c.Status)
	}

	resp := &HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Version:   version.Version,
		Checks:    checks,
	}
	if !d.startTime.IsZero() {
		resp.Uptime = time.Since(d.startTime).Round(time.Second).String()
	}
	if d.identity.Name != "" {
		resp.Daemon = d.identity.String()
	}
	return resp
}

func worse(a, b HealthStatus) HealthStatus {
	rank := map[HealthStatus]int{HealthStatusHealthy: 0, HealthStatusDegraded: 1, HealthStatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func (d *Daemon) checkDaemonHealth() HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: "daemon_phase", LastChecked: start}

	switch d.state.Phase() {
	case PhaseRunning:
		check.Status = HealthStatusHealthy
		check.Message = "Daemon is running"
	case PhaseBooting:
		check.Status = HealthStatusDegraded
		check.Message = "Daemon is still booting"
	case PhaseShuttingDown:
		check.Status = HealthStatusUnhealthy
		check.Message = "Daemon is shutting down"
	default:
		check.Status = HealthStatusUnhealthy
		check.Message = "Daemon is stopped"
	}
	check.Duration = time.Since(start)
	return check
}

// checkDriverHealth compares the drivers handed to the controller with the
// ones still running.
func (d *Daemon) checkDriverHealth() HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: "drivers", LastChecked: start}

	running := len(d.registry.Running())
	switch {
	case running == 0:
		check.Status = HealthStatusDegraded
		check.Message = "No drivers running, unable to serve requests"
	case running < d.registry.Count():
		check.Status = HealthStatusDegraded
		check.Message = "Some registered drivers are not running"
	default:
		check.Status = HealthStatusHealthy
		check.Message = "All registered drivers are running"
	}
	check.Duration = time.Since(start)
	return check
}

// HealthHandler serves PerformHealthChecks as JSON. Unhealthy maps to 503.
func (d *Daemon) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	health := d.PerformHealthChecks()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if health.Status == HealthStatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if err := json.NewEncoder(w).Encode(health); err != nil {
		e := dberrors.WrapError(err, dberrors.CategoryInternal, "failed to encode health response").Build()
		d.logger.Warn(e.Error())
	}
}
