package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/npl-scorer/internal/infrastructure/messaging/kafka"
)

var errTailLimit = stderrors.New("tail limit reached")

// NewEventsCmd groups scoring event commands.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Read scoring events from Kafka",
	}
	cmd.AddCommand(newEventsTailCmd())
	return cmd
}

func newEventsTailCmd() *cobra.Command {
	var (
		group         string
		fromBeginning bool
		limit         int
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print scoring events as JSON lines until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			if group == "" {
				host, _ := os.Hostname()
				group = "nplscore-tail-" + host
			}
			kc := cliCtx.Config.Kafka
			consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:       kc.Brokers,
				GroupID:       group,
				Topic:         kc.Topic,
				FromBeginning: fromBeginning,
			}, cliCtx.Logger.Named("kafka"))
			if err != nil {
				return err
			}
			defer consumer.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			seen := 0
			err = consumer.Run(ctx, func(_ context.Context, env *kafka.EventEnvelope) error {
				if err := enc.Encode(env); err != nil {
					return err
				}
				seen++
				if limit > 0 && seen >= limit {
					return errTailLimit
				}
				return nil
			})
			if stderrors.Is(err, errTailLimit) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "consumer group id (nplscore-tail-<hostname> when empty)")
	cmd.Flags().BoolVar(&fromBeginning, "from-beginning", false, "start a new group at the oldest event")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many events (0 runs until interrupted)")
	return cmd
}
