package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "unit"}, logging.NewNopLogger())
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
}

func TestNewMetricsCollector_WithProcessMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", EnableProcessMetrics: true, EnableGoMetrics: true}, logging.NewNopLogger())
	require.NoError(t, err)
	output := scrapeMetrics(t, c)
	assert.Contains(t, output, "go_goroutines")
}

func TestRegisterCounter_WithLabels(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("requests_total", "Requests", "method").WithLabelValues("GET").Add(5)

	expected := `
# HELP test_unit_requests_total Requests
# TYPE test_unit_requests_total counter
test_unit_requests_total{method="GET"} 5
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected), "test_unit_requests_total"))
}

func TestRegisterCounter_DuplicateSharesVector(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("dup_total", "help").WithLabelValues().Inc()
	c.RegisterCounter("dup_total", "help").WithLabelValues().Inc()

	expected := `
# HELP test_unit_dup_total help
# TYPE test_unit_dup_total counter
test_unit_dup_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected), "test_unit_dup_total"))
}

func TestRegisterGauge(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("workers", "Workers")
	g.WithLabelValues().Set(4)
	g.WithLabelValues().Dec()

	expected := `
# HELP test_unit_workers Workers
# TYPE test_unit_workers gauge
test_unit_workers 3
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected), "test_unit_workers"))
}

func TestRegisterHistogram_DefaultBuckets(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterHistogram("latency_seconds", "Latency", nil).WithLabelValues().Observe(0.1)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_latency_seconds_bucket{le="0.1"} 1`)
}

func TestTypeConflictReturnsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("conflict", "help").WithLabelValues().Inc()

	g := c.RegisterGauge("conflict", "help")
	assert.NotPanics(t, func() { g.WithLabelValues().Set(10) })

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, "# TYPE test_unit_conflict counter")
}

func TestConcurrentRegistration(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("concurrent_total", "help", "id").WithLabelValues("1").Inc()
		}()
	}
	wg.Wait()

	expected := `
# HELP test_unit_concurrent_total help
# TYPE test_unit_concurrent_total counter
test_unit_concurrent_total{id="1"} 50
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected), "test_unit_concurrent_total"))
}
