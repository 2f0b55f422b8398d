package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter/mongodb"
)

func newBackfillCommand(c *commandContext) *cobra.Command {
	var cutoff string

	cmd := &cobra.Command{
		Use:   "backfill-game-ids",
		Short: "Set gameId on MongoDB documents exported before game ids were stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			before := mongodb.LegacyCutoff
			if cutoff != "" {
				t, err := time.Parse(time.RFC3339, cutoff)
				if err != nil {
					return fmt.Errorf("parse --before: %w", err)
				}
				before = t
			}

			m, err := c.connectMongo(ctx)
			if err != nil {
				return fmt.Errorf("connect mongodb: %w", err)
			}
			defer m.Close(context.WithoutCancel(ctx))

			stats, err := m.BackfillGameIDs(ctx, before)
			fmt.Fprintf(cmd.OutOrStdout(), "matched=%d updated=%d failed=%d\n", stats.Matched, stats.Updated, stats.Failed)
			if err != nil {
				return err
			}
			log.Printf("[backfill] done")
			return nil
		},
	}
	cmd.Flags().StringVar(&cutoff, "before", "", "Only documents exported at or before this RFC 3339 time (default: the legacy cutoff)")
	return cmd
}
