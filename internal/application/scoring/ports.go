package scoring

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/npl-scorer/pkg/errors"
)

// EventType names a scoring event published to the message bus.
type EventType string

const (
	EventMoleculeScored       EventType = "molecule.scored"
	EventBatchCompleted       EventType = "batch.completed"
	EventRemainderResubmitted EventType = "batch.resubmitted"
	EventRunCompleted         EventType = "run.completed"
)

// Event is the payload of every scoring event.  Fields that do not apply to
// an event type are left empty.
type Event struct {
	Type        EventType `json:"type"`
	RunID       string    `json:"run_id"`
	BatchID     string    `json:"batch_id,omitempty"`
	MoleculeID  string    `json:"molecule_id,omitempty"`
	Attempt     int       `json:"attempt,omitempty"`
	Size        int       `json:"size,omitempty"`
	Remaining   int       `json:"remaining,omitempty"`
	NPLScore    *float64  `json:"npl_score,omitempty"`
	SugarStatus string    `json:"sugar_status,omitempty"`
	Summary     *Summary  `json:"summary,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventPublisher delivers scoring events.  Publishing is best effort; a
// failure is logged and never stops a batch.
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

// ReportArchiver stores the summary of a finished run and returns where it
// was written.
type ReportArchiver interface {
	Archive(ctx context.Context, s *Summary) (string, error)
}

// Archivers writes a summary to every archiver in order.  The returned
// location joins the successful locations with ","; an error is returned only
// when every archiver fails.
type Archivers []ReportArchiver

func (as Archivers) Archive(ctx context.Context, s *Summary) (string, error) {
	var (
		locs    []string
		lastErr error
	)
	for _, a := range as {
		loc, err := a.Archive(ctx, s)
		if err != nil {
			lastErr = err
			continue
		}
		if loc != "" {
			locs = append(locs, loc)
		}
	}
	if len(locs) == 0 && lastErr != nil {
		return "", errors.Wrap(lastErr, errors.ErrCodeReportArchive, "all report archivers failed")
	}
	return strings.Join(locs, ","), nil
}

// Metrics receives orchestrator measurements.
type Metrics interface {
	ObserveMolecule(status string, d time.Duration)
	ObserveBatch(result string, size int, d time.Duration)
	AddFragmentsCreated(n int)
	SetActiveWorkers(n int)
}

// Batch results reported to Metrics.ObserveBatch.
const (
	BatchCompleted   = "completed"
	BatchResubmitted = "resubmitted"
	BatchFailed      = "failed"
)

type nopMetrics struct{}

func (nopMetrics) ObserveMolecule(string, time.Duration)   {}
func (nopMetrics) ObserveBatch(string, int, time.Duration) {}
func (nopMetrics) AddFragmentsCreated(int)                 {}
func (nopMetrics) SetActiveWorkers(int)                    {}
