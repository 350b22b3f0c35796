package scoring

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	domainScoring "github.com/turtacn/npl-scorer/internal/domain/scoring"
)

// Summary is the user-visible result of one orchestrator run.
type Summary struct {
	RunID            string                      `json:"run_id"`
	StartedAt        time.Time                   `json:"started_at"`
	FinishedAt       time.Time                   `json:"finished_at"`
	Duration         time.Duration               `json:"duration_ns"`
	Batches          int                         `json:"batches"`
	Scored           int                         `json:"scored"`
	Skipped          map[molecule.SkipReason]int `json:"skipped"`
	SugarStatus      map[string]int              `json:"sugar_status"`
	Resubmitted      int                         `json:"resubmitted"`
	Failed           int                         `json:"failed"`
	FragmentsCreated int                         `json:"fragments_created"`
	ReportLocation   string                      `json:"report_location,omitempty"`
	Error            string                      `json:"error,omitempty"`
}

func newSummary(runID string, started time.Time) *Summary {
	return &Summary{
		RunID:       runID,
		StartedAt:   started.UTC(),
		Skipped:     make(map[molecule.SkipReason]int),
		SugarStatus: make(map[string]int),
	}
}

// SkippedTotal returns the number of skipped records over all reasons.
func (s *Summary) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Processed returns scored plus skipped records.
func (s *Summary) Processed() int { return s.Scored + s.SkippedTotal() }

// WriteJSON writes the summary as indented JSON.
func (s *Summary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteTable writes the summary as a two-column table.
func (s *Summary) WriteTable(w io.Writer) error {
	rows := [][2]string{
		{"run", s.RunID},
		{"duration", s.Duration.Round(time.Millisecond).String()},
		{"batches", fmt.Sprint(s.Batches)},
		{"scored", fmt.Sprint(s.Scored)},
		{"skipped", fmt.Sprint(s.SkippedTotal())},
	}
	reasons := lo.Keys(s.Skipped)
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, r := range reasons {
		rows = append(rows, [2]string{"  " + string(r), fmt.Sprint(s.Skipped[r])})
	}
	statuses := lo.Keys(s.SugarStatus)
	sort.Strings(statuses)
	for _, st := range statuses {
		rows = append(rows, [2]string{"sugar " + st, fmt.Sprint(s.SugarStatus[st])})
	}
	rows = append(rows,
		[2]string{"resubmitted", fmt.Sprint(s.Resubmitted)},
		[2]string{"failed", fmt.Sprint(s.Failed)},
		[2]string{"fragments created", fmt.Sprint(s.FragmentsCreated)},
	)
	if s.ReportLocation != "" {
		rows = append(rows, [2]string{"report", s.ReportLocation})
	}
	if s.Error != "" {
		rows = append(rows, [2]string{"error", s.Error})
	}
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	for _, r := range rows {
		if err := table.Append([]string{r[0], r[1]}); err != nil {
			return err
		}
	}
	return table.Render()
}

// tally accumulates a Summary from concurrent workers.
type tally struct {
	mu sync.Mutex
	s  *Summary
}

func (t *tally) record(out domainScoring.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if out.Skipped != molecule.SkipNone {
		t.s.Skipped[out.Skipped]++
		return
	}
	t.s.Scored++
	t.s.SugarStatus[out.SugarStatus.String()]++
}

func (t *tally) fragments(n int) {
	t.mu.Lock()
	t.s.FragmentsCreated += n
	t.mu.Unlock()
}

func (t *tally) batch() {
	t.mu.Lock()
	t.s.Batches++
	t.mu.Unlock()
}

func (t *tally) resubmitted() {
	t.mu.Lock()
	t.s.Resubmitted++
	t.mu.Unlock()
}

func (t *tally) failed(n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Failed += n
	if err != nil {
		t.s.Error = err.Error()
	}
}

func (t *tally) finish(at time.Time) *Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.FinishedAt = at.UTC()
	t.s.Duration = t.s.FinishedAt.Sub(t.s.StartedAt)
	out := *t.s
	out.Skipped = lo.Assign(t.s.Skipped)
	out.SugarStatus = lo.Assign(t.s.SugarStatus)
	return &out
}
