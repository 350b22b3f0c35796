package prometheus

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/application/scoring"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
)

func newTestNPLMetrics(t *testing.T) (*NPLMetrics, MetricsCollector) {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "npl"}, logging.NewNopLogger())
	require.NoError(t, err)
	return NewNPLMetrics(c), c
}

func TestObserveMolecule(t *testing.T) {
	m, c := newTestNPLMetrics(t)
	m.ObserveMolecule("scored", 2*time.Millisecond)
	m.ObserveMolecule("scored", 3*time.Millisecond)
	m.ObserveMolecule("parse_error", time.Millisecond)

	expected := `
# HELP npl_molecules_total Molecules processed, by outcome
# TYPE npl_molecules_total counter
npl_molecules_total{status="parse_error"} 1
npl_molecules_total{status="scored"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected), "npl_molecules_total"))

	n, err := testutil.GatherAndCount(c.Gatherer(), "npl_molecule_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestObserveBatch(t *testing.T) {
	m, c := newTestNPLMetrics(t)
	m.ObserveBatch(scoring.BatchCompleted, 100, time.Second)
	m.ObserveBatch(scoring.BatchResubmitted, 40, time.Second)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `npl_batches_total{result="`+scoring.BatchCompleted+`"} 1`)
	assert.Contains(t, output, `npl_batch_size_sum{result="`+scoring.BatchResubmitted+`"} 40`)
}

func TestFragmentsAndWorkers(t *testing.T) {
	m, c := newTestNPLMetrics(t)
	m.AddFragmentsCreated(3)
	m.AddFragmentsCreated(0)
	m.AddFragmentsCreated(2)
	m.SetActiveWorkers(8)

	expected := `
# HELP npl_active_workers Scoring workers currently running
# TYPE npl_active_workers gauge
npl_active_workers 8
# HELP npl_fragments_created_total Fragment signatures seen for the first time
# TYPE npl_fragments_created_total counter
npl_fragments_created_total 5
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected),
		"npl_active_workers", "npl_fragments_created_total"))
}

func TestRecordHTTPRequestAndHealth(t *testing.T) {
	m, c := newTestNPLMetrics(t)
	m.RecordHTTPRequest("GET", "/healthz", 200, 5*time.Millisecond)
	m.RecordHealth("postgres", true)
	m.RecordHealth("redis", false)

	expected := `
# HELP npl_health_check_status Dependency health (1=up, 0=down)
# TYPE npl_health_check_status gauge
npl_health_check_status{component="postgres"} 1
npl_health_check_status{component="redis"} 0
# HELP npl_ops_requests_total Ops HTTP requests
# TYPE npl_ops_requests_total counter
npl_ops_requests_total{method="GET",path="/healthz",status_code="200"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected),
		"npl_health_check_status", "npl_ops_requests_total"))
}
