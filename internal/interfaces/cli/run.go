package cli

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/turtacn/npl-scorer/internal/app"
	"github.com/turtacn/npl-scorer/internal/application/scoring"
)

// SummaryView renders a run summary.
type SummaryView struct {
	*scoring.Summary
}

func (v SummaryView) TableHeaders() []string { return []string{"Field", "Value"} }

func (v SummaryView) TableRows() [][]string {
	s := v.Summary
	rows := [][]string{
		{"run_id", s.RunID},
		{"started_at", s.StartedAt.Format(time.RFC3339)},
		{"duration", s.Duration.Round(time.Millisecond).String()},
		{"batches", strconv.Itoa(s.Batches)},
		{"scored", strconv.Itoa(s.Scored)},
		{"skipped", strconv.Itoa(s.SkippedTotal())},
	}
	reasons := lo.Keys(s.Skipped)
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, r := range reasons {
		rows = append(rows, []string{"skipped." + string(r), strconv.Itoa(s.Skipped[r])})
	}
	statuses := lo.Keys(s.SugarStatus)
	sort.Strings(statuses)
	for _, st := range statuses {
		rows = append(rows, []string{"sugar." + st, strconv.Itoa(s.SugarStatus[st])})
	}
	rows = append(rows,
		[]string{"resubmitted", strconv.Itoa(s.Resubmitted)},
		[]string{"failed", failedCell(s.Failed)},
		[]string{"fragments_created", strconv.Itoa(s.FragmentsCreated)},
	)
	if s.ReportLocation != "" {
		rows = append(rows, []string{"report", s.ReportLocation})
	}
	if s.Error != "" {
		rows = append(rows, []string{"error", color.RedString(s.Error)})
	}
	return rows
}

func failedCell(n int) string {
	if n > 0 {
		return color.RedString(strconv.Itoa(n))
	}
	return strconv.Itoa(n)
}

// NewRunCmd executes one orchestrator run over the configured corpus.
func NewRunCmd() *cobra.Command {
	var includeScored bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score every pending molecule of the corpus once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			cfg := cliCtx.Config
			if includeScored {
				cfg.Scoring.IncludeScored = true
			}
			in, err := cliCtx.Connect(ctx, app.Options{Publish: true, Archive: true})
			if err != nil {
				return err
			}
			defer in.Close()

			engine, err := app.NewEngine(cfg.Scoring, in.Fragments, cliCtx.Logger)
			if err != nil {
				return err
			}
			orch, err := in.NewOrchestrator(engine)
			if err != nil {
				return err
			}
			sum, err := orch.Run(ctx)
			if sum != nil {
				if perr := PrintResult(cmd, SummaryView{sum}); perr != nil {
					return perr
				}
			}
			if err != nil {
				return fmt.Errorf("run %s: %w", runID(sum), err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeScored, "rescore", false, "rescore molecules that already have scores")
	return cmd
}

func runID(s *scoring.Summary) string {
	if s == nil {
		return "(none)"
	}
	return s.RunID
}
