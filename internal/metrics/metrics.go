// Package metrics provides Prometheus instrumentation for a stress test run.
// Each run owns its registry; nothing is registered globally.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"portfolioStress/internal/finance"
)

// Run collects the metrics of one pipeline execution.
type Run struct {
	registry *prometheus.Registry

	// StageDuration tracks wall time per pipeline stage.
	StageDuration *prometheus.HistogramVec
	// PathsSimulated counts simulated value paths.
	PathsSimulated prometheus.Counter
	// MedianFinalValue, VaRThreshold and MaxLoss mirror the risk metrics.
	MedianFinalValue prometheus.Gauge
	VaRThreshold     prometheus.Gauge
	MaxLoss          prometheus.Gauge
	// ExpectedShortfall is the mean outcome at or below the VaR threshold.
	ExpectedShortfall prometheus.Gauge
}

// NewRun creates and registers the run metrics, labelled with runID.
func NewRun(runID string) *Run {
	reg := prometheus.NewRegistry()
	r := &Run{
		registry: reg,
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stress",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}, []string{"stage"}),
		PathsSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stress",
			Name:      "paths_simulated_total",
			Help:      "Number of simulated portfolio value paths",
		}),
		MedianFinalValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stress",
			Name:      "median_final_value",
			Help:      "Median terminal portfolio value",
		}),
		VaRThreshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stress",
			Name:      "var_threshold",
			Help:      "Terminal portfolio value at the VaR percentile",
		}),
		MaxLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stress",
			Name:      "max_loss",
			Help:      "Initial capital minus the VaR threshold",
		}),
		ExpectedShortfall: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stress",
			Name:      "expected_shortfall",
			Help:      "Mean terminal value at or below the VaR threshold",
		}),
	}

	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"run_id": runID}, reg)
	wrapped.MustRegister(
		r.StageDuration,
		r.PathsSimulated,
		r.MedianFinalValue,
		r.VaRThreshold,
		r.MaxLoss,
		r.ExpectedShortfall,
	)
	return r
}

// ObserveStage implements finance.Recorder.
func (r *Run) ObserveStage(stage string, elapsed time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordOutcome implements finance.Recorder.
func (r *Run) RecordOutcome(o *finance.Outcome) {
	r.PathsSimulated.Add(float64(o.Result.NumSims))
	r.MedianFinalValue.Set(o.Metrics.MedianFinalValue)
	r.VaRThreshold.Set(o.Metrics.VaRThreshold)
	r.MaxLoss.Set(o.Metrics.MaxLoss)
	r.ExpectedShortfall.Set(o.ExpectedShortfall)
}

// Registry exposes the run registry for gathering.
func (r *Run) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes the metrics in the node-exporter textfile format.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

var _ finance.Recorder = (*Run)(nil)
