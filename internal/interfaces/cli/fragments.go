package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/npl-scorer/internal/app"
	"github.com/turtacn/npl-scorer/internal/domain/fragment"
)

// FragmentStats counts fragment entries per sugar context.
type FragmentStats struct {
	Store        string `json:"store"`
	WithSugar    int64  `json:"with_sugar"`
	WithoutSugar int64  `json:"without_sugar"`
	Total        int64  `json:"total"`
}

func (s FragmentStats) TableHeaders() []string {
	return []string{"Store", "With sugar", "Without sugar", "Total"}
}

func (s FragmentStats) TableRows() [][]string {
	return [][]string{{
		s.Store,
		strconv.FormatInt(s.WithSugar, 10),
		strconv.FormatInt(s.WithoutSugar, 10),
		strconv.FormatInt(s.Total, 10),
	}}
}

func collectFragmentStats(ctx context.Context, store string, stats fragment.Stats) (FragmentStats, error) {
	counts, err := stats.CountByContext(ctx)
	if err != nil {
		return FragmentStats{}, err
	}
	out := FragmentStats{
		Store:        store,
		WithSugar:    counts[fragment.WithSugar],
		WithoutSugar: counts[fragment.WithoutSugar],
	}
	out.Total = out.WithSugar + out.WithoutSugar
	return out, nil
}

// NewFragmentsCmd groups fragment table inspection commands.
func NewFragmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fragments",
		Short: "Inspect the fragment frequency table",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Count fragment entries per sugar context",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			in, err := cliCtx.Connect(ctx, app.Options{})
			if err != nil {
				return err
			}
			defer in.Close()

			stats, err := collectFragmentStats(ctx, cliCtx.Config.Scoring.Store, in.FragmentStats)
			if err != nil {
				return fmt.Errorf("count fragments: %w", err)
			}
			return PrintResult(cmd, stats)
		},
	})
	return cmd
}
