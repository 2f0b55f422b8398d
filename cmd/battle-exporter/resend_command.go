package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter/mongodb"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter/splashcat"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/logging"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/metadata"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/report"
)

func newResendCommand(c *commandContext) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "resend",
		Short: "Upload every battle stored in MongoDB to Splashcat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if c.cfg.Splashcat.APIKey == "" {
				return errors.New("splashcat API key not set")
			}

			m, err := c.connectMongo(ctx)
			if err != nil {
				return fmt.Errorf("connect mongodb: %w", err)
			}
			defer m.Close(context.WithoutCancel(ctx))

			ledger := c.ledger(ctx)
			defer ledger.Close()

			runID := logging.GenerateCorrelationID()
			ctx = logging.WithCorrelationID(ctx, runID)
			if err := ledger.StartRun(ctx, metadata.RunInfo{
				RunID:           runID,
				Command:         "resend",
				Exporters:       []string{splashcat.Name},
				SourceLocation:  c.cfg.Mongo.Database,
				ProducerVersion: "battle-exporter@" + exporter.Version,
				StartedAt:       time.Now().UTC(),
			}); err != nil {
				c.metrics.IncMetadataErrors()
			}

			rep := report.New(runID)
			r := splashcat.NewResender(splashcat.NewClient(splashcat.ClientConfig{
				BaseURL:   c.cfg.Splashcat.BaseURL,
				APIKey:    c.cfg.Splashcat.APIKey,
				UserAgent: c.userAgent(),
			}), rep)

			runErr := m.EachBattle(ctx, func(b mongodb.StoredBattle) error {
				return r.Send(ctx, b.RawID, b.GameID, b.Detail)
			})

			if _, err := ledger.FinishRun(context.WithoutCancel(ctx), runID); err != nil {
				c.metrics.IncMetadataErrors()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent=%d failed=%d\n", r.Sent, r.Failed)
			if rep.Len() > 0 {
				if err := rep.Save(reportPath); err != nil {
					return errors.Join(runErr, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d failures written to %s\n", rep.Len(), reportPath)
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", "resend-errors.json", "Where to write failed uploads")
	return cmd
}
