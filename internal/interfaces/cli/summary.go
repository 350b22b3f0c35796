package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/npl-scorer/internal/infrastructure/database/redis"
	"github.com/turtacn/npl-scorer/internal/infrastructure/storage/minio"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// NewSummaryCmd prints the last run summary shared through Redis.
func NewSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the most recent run summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			client, err := redis.NewClient(cliCtx.Config.Redis, cliCtx.Logger.Named("redis"))
			if err != nil {
				return err
			}
			defer client.Close()

			cache := redis.NewSummaryCache(redis.NewCache(client, cliCtx.Logger.Named("cache")), 0)
			sum, err := cache.Last(ctx)
			if err != nil {
				return err
			}
			if sum == nil {
				return errors.NotFound("no run summary has been recorded")
			}
			return PrintResult(cmd, SummaryView{sum})
		},
	}
}

// ReportList is a page of archived run reports.
type ReportList struct {
	Reports []minio.ReportInfo `json:"reports"`
}

func (l ReportList) TableHeaders() []string { return []string{"Run", "Key", "Size", "Modified"} }

func (l ReportList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Reports))
	for _, r := range l.Reports {
		rows = append(rows, []string{r.RunID, r.Key, strconv.FormatInt(r.Size, 10), r.LastModified.Format(time.RFC3339)})
	}
	return rows
}

// NewReportsCmd groups archived report commands.
func NewReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Browse run reports archived in object storage",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List archived run reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1, got %d", limit)
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			client, err := minio.NewMinIOClient(cliCtx.Config.MinIO, cliCtx.Logger.Named("minio"))
			if err != nil {
				return err
			}
			defer client.Close()

			reports, err := minio.NewReportArchiver(client, cliCtx.Logger.Named("reports")).List(ctx, limit)
			if err != nil {
				return err
			}
			return PrintResult(cmd, ReportList{Reports: reports})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of reports")
	cmd.AddCommand(list)
	return cmd
}
