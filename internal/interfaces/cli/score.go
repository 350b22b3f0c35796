package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/npl-scorer/internal/app"
	"github.com/turtacn/npl-scorer/internal/config"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
)

// NewScoreCmd scores the structures of one file and prints every resulting
// record as a JSON line.
func NewScoreCmd() *cobra.Command {
	var (
		input string
		store string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a structure file",
		Long: "Score every structure in a .smi or .sdf file and print one JSON record per line.\n" +
			"With --store memory no database is needed and the fragment table lives only\n" +
			"for the duration of the command.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			recs, err := readCorpusFile(input)
			if err != nil {
				return err
			}

			cfg := *cliCtx.Config
			if store != "" {
				cfg.Scoring.Store = store
				if store == config.StoreMemory && cfg.Scoring.StoreLock == config.LockRedis {
					cfg.Scoring.StoreLock = config.LockLocal
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			in, err := app.NewInfrastructure(ctx, &cfg, cliCtx.Logger, app.Options{})
			if err != nil {
				return err
			}
			defer in.Close()

			inserted, err := in.Molecules.Import(ctx, recs)
			if err != nil {
				return err
			}
			engine, err := app.NewEngine(cfg.Scoring, in.Fragments, cliCtx.Logger)
			if err != nil {
				return err
			}
			orch, err := in.NewOrchestrator(engine)
			if err != nil {
				return err
			}
			sum, err := orch.Run(ctx)
			if err != nil {
				return err
			}
			cliCtx.Logger.Info("scored input file",
				logging.String("file", input),
				logging.Int("read", len(recs)),
				logging.Int("new", inserted),
				logging.Int("scored", sum.Scored),
				logging.Int("skipped", sum.SkippedTotal()))

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range recs {
				scored, err := in.Molecules.FindByID(ctx, r.ID)
				if err != nil {
					return err
				}
				if err := enc.Encode(scored); err != nil {
					return fmt.Errorf("write record %s: %w", r.ID, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "structure file (.smi or .sdf)")
	cmd.Flags().StringVar(&store, "store", config.StoreMemory, "fragment store (memory, postgres, redis)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
