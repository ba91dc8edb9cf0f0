package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "driverd"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	phaseDuration  *prom.HistogramVec
	phaseResults   *prom.CounterVec
	bootDuration   prom.Histogram
	registrations  *prom.CounterVec
	lifecycle      *prom.CounterVec
	activeDrivers  prom.Gauge
	workspaceLoads *prom.CounterVec
	uncaughtFaults *prom.CounterVec
	shutdowns      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics into reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.phaseDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "boot_phase_duration_seconds",
			Help:      "Duration of individual boot phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"})
		pr.phaseResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "boot_phase_results_total",
			Help:      "Boot phase result counts by outcome",
		}, []string{"phase", "result"})
		pr.bootDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "boot_duration_seconds",
			Help:      "Total boot sequence duration",
			Buckets:   prom.DefBuckets,
		})
		pr.registrations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "driver_registrations_total",
			Help:      "Driver candidates by registry outcome",
		}, []string{"outcome"})
		pr.lifecycle = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "driver_lifecycle_total",
			Help:      "Driver start/stop calls by result",
		}, []string{"op", "result"})
		pr.activeDrivers = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "active_drivers",
			Help:      "Drivers handed to the controller",
		})
		pr.workspaceLoads = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "workspace_loads_total",
			Help:      "Workspace handoffs by result",
		}, []string{"result"})
		pr.uncaughtFaults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "uncaught_faults_total",
			Help:      "Recovered panics by origin",
		}, []string{"origin"})
		pr.shutdowns = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "shutdowns_total",
			Help:      "Shutdown sequences by trigger",
		}, []string{"reason"})
		reg.MustRegister(pr.phaseDuration, pr.phaseResults, pr.bootDuration, pr.registrations,
			pr.lifecycle, pr.activeDrivers, pr.workspaceLoads, pr.uncaughtFaults, pr.shutdowns)
	})
	return pr
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

func (p *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	if p == nil || p.phaseDuration == nil {
		return
	}
	p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPhaseResult(phase string, result ResultLabel) {
	if p == nil || p.phaseResults == nil {
		return
	}
	p.phaseResults.WithLabelValues(phase, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBootDuration(d time.Duration) {
	if p == nil || p.bootDuration == nil {
		return
	}
	p.bootDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDriverRegistration(outcome string) {
	if p == nil || p.registrations == nil {
		return
	}
	p.registrations.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncDriverLifecycle(op string, success bool) {
	if p == nil || p.lifecycle == nil {
		return
	}
	p.lifecycle.WithLabelValues(op, resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) SetActiveDrivers(n int) {
	if p == nil || p.activeDrivers == nil {
		return
	}
	p.activeDrivers.Set(float64(n))
}

func (p *PrometheusRecorder) IncWorkspaceLoad(success bool) {
	if p == nil || p.workspaceLoads == nil {
		return
	}
	p.workspaceLoads.WithLabelValues(resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncUncaughtFault(origin string) {
	if p == nil || p.uncaughtFaults == nil {
		return
	}
	p.uncaughtFaults.WithLabelValues(origin).Inc()
}

func (p *PrometheusRecorder) IncShutdown(reason string) {
	if p == nil || p.shutdowns == nil {
		return
	}
	p.shutdowns.WithLabelValues(reason).Inc()
}
