// Package metrics records run counters in a Prometheus registry.
//
// A CLI run is short-lived, so nothing is served over HTTP: the registry is
// dumped to a node_exporter textfile at the end of the run when
// metrics.textfile is configured. A nil *Recorder is valid and records
// nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"certiflow/internal/status"
)

const namespace = "certiflow"

// Step results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder holds the certiflow collectors.
type Recorder struct {
	registry      *prometheus.Registry
	stepRuns      *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	objectives    *prometheus.CounterVec
	dossierStatus *prometheus.GaugeVec
}

// NewRecorder creates a recorder backed by its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_executions_total",
			Help:      "Number of step executions by result.",
		}, []string{"step", "result"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Step execution time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"step"}),
		objectives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objective_status_total",
			Help:      "Number of objective evaluations by final status.",
		}, []string{"status"}),
		dossierStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dossier_status",
			Help:      "Current dossier status (1 for the active value).",
		}, []string{"status"}),
	}
	r.registry.MustRegister(r.stepRuns, r.stepDuration, r.objectives, r.dossierStatus)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveStep records one step execution.
func (r *Recorder) ObserveStep(stepID string, ok bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := ResultSuccess
	if !ok {
		result = ResultFailure
	}
	r.stepRuns.WithLabelValues(stepID, result).Inc()
	r.stepDuration.WithLabelValues(stepID).Observe(elapsed.Seconds())
}

// ObserveObjective records the final status of one objective evaluation.
func (r *Recorder) ObserveObjective(s status.Objective) {
	if r == nil {
		return
	}
	r.objectives.WithLabelValues(s.String()).Inc()
}

// SetDossierStatus sets the gauge of s to 1 and every other status to 0.
func (r *Recorder) SetDossierStatus(s status.Dossier) {
	if r == nil {
		return
	}
	for _, v := range status.DossierValues() {
		value := 0.0
		if v == s {
			value = 1
		}
		r.dossierStatus.WithLabelValues(v.String()).Set(value)
	}
}

// WriteTextfile writes the registry in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
