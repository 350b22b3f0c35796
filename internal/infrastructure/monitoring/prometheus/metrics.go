package prometheus

import (
	"strconv"
	"time"

	"github.com/turtacn/npl-scorer/internal/application/scoring"
)

var (
	MoleculeDurationBuckets = []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5}
	BatchDurationBuckets    = []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900}
	BatchSizeBuckets        = []float64{1, 10, 50, 100, 500, 1000, 5000}
	HTTPDurationBuckets     = []float64{.001, .005, .01, .05, .1, .5, 1}
)

// NPLMetrics holds the scorer's metrics.  It implements scoring.Metrics.
type NPLMetrics struct {
	MoleculesTotal   CounterVec
	MoleculeDuration HistogramVec
	BatchesTotal     CounterVec
	BatchDuration    HistogramVec
	BatchSize        HistogramVec
	FragmentsCreated CounterVec
	ActiveWorkers    GaugeVec

	OpsRequestsTotal   CounterVec
	OpsRequestDuration HistogramVec
	HealthCheckStatus  GaugeVec
}

var _ scoring.Metrics = (*NPLMetrics)(nil)

// NewNPLMetrics registers all scorer metrics on collector.
func NewNPLMetrics(collector MetricsCollector) *NPLMetrics {
	m := &NPLMetrics{}

	m.MoleculesTotal = collector.RegisterCounter("molecules_total", "Molecules processed, by outcome", "status")
	m.MoleculeDuration = collector.RegisterHistogram("molecule_duration_seconds", "Per-molecule scoring duration", MoleculeDurationBuckets, "status")
	m.BatchesTotal = collector.RegisterCounter("batches_total", "Batches finished, by result", "result")
	m.BatchDuration = collector.RegisterHistogram("batch_duration_seconds", "Batch duration", BatchDurationBuckets, "result")
	m.BatchSize = collector.RegisterHistogram("batch_size", "Molecules per batch", BatchSizeBuckets, "result")
	m.FragmentsCreated = collector.RegisterCounter("fragments_created_total", "Fragment signatures seen for the first time")
	m.ActiveWorkers = collector.RegisterGauge("active_workers", "Scoring workers currently running")

	m.OpsRequestsTotal = collector.RegisterCounter("ops_requests_total", "Ops HTTP requests", "method", "path", "status_code")
	m.OpsRequestDuration = collector.RegisterHistogram("ops_request_duration_seconds", "Ops HTTP request duration", HTTPDurationBuckets, "method", "path")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Dependency health (1=up, 0=down)", "component")

	return m
}

func (m *NPLMetrics) ObserveMolecule(status string, d time.Duration) {
	m.MoleculesTotal.WithLabelValues(status).Inc()
	m.MoleculeDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *NPLMetrics) ObserveBatch(result string, size int, d time.Duration) {
	m.BatchesTotal.WithLabelValues(result).Inc()
	m.BatchDuration.WithLabelValues(result).Observe(d.Seconds())
	m.BatchSize.WithLabelValues(result).Observe(float64(size))
}

func (m *NPLMetrics) AddFragmentsCreated(n int) {
	if n > 0 {
		m.FragmentsCreated.WithLabelValues().Add(float64(n))
	}
}

func (m *NPLMetrics) SetActiveWorkers(n int) {
	m.ActiveWorkers.WithLabelValues().Set(float64(n))
}

// RecordHTTPRequest records one ops endpoint request.
func (m *NPLMetrics) RecordHTTPRequest(method, path string, statusCode int, d time.Duration) {
	m.OpsRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.OpsRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordHealth sets a component's health gauge.
func (m *NPLMetrics) RecordHealth(component string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}
