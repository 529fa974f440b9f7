// Package telemetry exposes Prometheus metrics for sync runs and detection
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync run outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics holds every collector the server reports
type Metrics struct {
	registry *prometheus.Registry

	// SyncRuns counts sync runs by outcome
	SyncRuns *prometheus.CounterVec
	// SyncDuration observes the wall time of completed runs
	SyncDuration prometheus.Histogram
	// RowsUpserted counts metric rows written by series
	RowsUpserted *prometheus.CounterVec
	// RowsDeleted counts metric rows removed by retention by series
	RowsDeleted *prometheus.CounterVec
	// OpportunitiesDetected reports the last detection result by type
	OpportunitiesDetected *prometheus.GaugeVec
	// LastSuccess is the Unix time of the last successful run
	LastSuccess prometheus.Gauge
}

// New creates the collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsearch",
			Name:      "sync_runs_total",
			Help:      "Total number of sync runs by outcome",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wsearch",
			Name:      "sync_duration_seconds",
			Help:      "Time to complete a sync run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		RowsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsearch",
			Name:      "metric_rows_upserted_total",
			Help:      "Total number of metric rows written by series",
		}, []string{"series"}),
		RowsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsearch",
			Name:      "metric_rows_deleted_total",
			Help:      "Total number of metric rows removed by retention by series",
		}, []string{"series"}),
		OpportunitiesDetected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wsearch",
			Name:      "opportunities_detected",
			Help:      "Opportunities written by the last detection pass by type",
		}, []string{"type"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wsearch",
			Name:      "sync_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sync run",
		}),
	}

	reg.MustRegister(
		m.SyncRuns,
		m.SyncDuration,
		m.RowsUpserted,
		m.RowsDeleted,
		m.OpportunitiesDetected,
		m.LastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Gatherer returns the registry for export
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one finished run. Methods are safe on a nil receiver so
// telemetry stays optional for callers and tests.
func (m *Metrics) ObserveRun(outcome string, started, finished time.Time) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSkipped {
		return
	}
	m.SyncDuration.Observe(finished.Sub(started).Seconds())
	if outcome == OutcomeSuccess {
		m.LastSuccess.Set(float64(finished.Unix()))
	}
}

// AddUpserted counts rows written to a series
func (m *Metrics) AddUpserted(series string, n int) {
	if m == nil {
		return
	}
	m.RowsUpserted.WithLabelValues(series).Add(float64(n))
}

// AddDeleted counts rows removed from a series
func (m *Metrics) AddDeleted(series string, n int64) {
	if m == nil {
		return
	}
	m.RowsDeleted.WithLabelValues(series).Add(float64(n))
}

// SetDetected records the size of the last detection pass for a type
func (m *Metrics) SetDetected(typ string, n int) {
	if m == nil {
		return
	}
	m.OpportunitiesDetected.WithLabelValues(typ).Set(float64(n))
}
