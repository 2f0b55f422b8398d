package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter/archive"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter/mongodb"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter/splashcat"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/logging"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/report"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/source"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/storage"
)

func newExportCommand(c *commandContext) *cobra.Command {
	var retry bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every record in the source directory to the selected exporters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var only []string
			if retry {
				prev, err := report.Load(c.cfg.Report.Path)
				if err != nil {
					return fmt.Errorf("load report for retry: %w", err)
				}
				only = prev.IDs("")
				if len(only) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to retry")
					return nil
				}
				log.Printf("[main] retrying %d records from %s", len(only), c.cfg.Report.Path)
			}

			src, err := source.NewLocalSource(c.cfg.Source.Dir)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer src.Close()

			exporters, closeAll, err := c.openExporters(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			ledger := c.ledger(ctx)
			defer ledger.Close()

			runID := logging.GenerateCorrelationID()
			rep := report.New(runID)
			runner := exporter.NewRunner(exporter.RunnerConfig{
				RunID:   runID,
				Command: "export",
				Only:    only,
				Ledger:  ledger,
				Metrics: c.metrics,
				Report:  rep,
			}, src, exporters...)

			stats, runErr := runner.Run(ctx)
			printStats(cmd, stats)

			if rep.Len() > 0 || retry {
				if err := rep.Save(c.cfg.Report.Path); err != nil {
					runErr = errors.Join(runErr, err)
				} else if rep.Len() > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%d failures written to %s\n", rep.Len(), c.cfg.Report.Path)
				}
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&retry, "retry", false, "Only export the records listed in the last failure report")
	return cmd
}

// openExporters builds the selected exporters in config order. The returned
// func closes every exporter opened so far.
func (c *commandContext) openExporters(ctx context.Context) ([]exporter.Exporter, func(), error) {
	var (
		out     []exporter.Exporter
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, name := range c.cfg.Exporters {
		switch name {
		case mongodb.Name:
			m, err := c.connectMongo(ctx)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("connect mongodb: %w", err)
			}
			closers = append(closers, func() {
				if err := m.Close(context.WithoutCancel(ctx)); err != nil {
					log.Printf("[mongodb] disconnect: %v", err)
				}
			})
			out = append(out, m)

		case splashcat.Name:
			client := splashcat.NewClient(splashcat.ClientConfig{
				BaseURL:   c.cfg.Splashcat.BaseURL,
				APIKey:    c.cfg.Splashcat.APIKey,
				UserAgent: c.userAgent(),
			})
			out = append(out, splashcat.New(client))

		case archive.Name:
			store, err := storage.NewStore(ctx, storage.StorageConfig{
				Backend:    c.cfg.Archive.Backend,
				LocalDir:   c.cfg.Archive.LocalDir,
				Bucket:     c.cfg.Archive.Bucket,
				S3Endpoint: c.cfg.Archive.Endpoint,
				S3Region:   c.cfg.Archive.Region,
				Prefix:     c.cfg.Archive.Prefix,
			})
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("open archive store: %w", err)
			}
			a, err := archive.New(store, c.toolVersion())
			if err != nil {
				store.Close()
				closeAll()
				return nil, nil, err
			}
			closers = append(closers, func() {
				if err := a.Close(); err != nil {
					log.Printf("[archive] close: %v", err)
				}
			})
			out = append(out, a)

		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown exporter %q", name)
		}
	}
	return out, closeAll, nil
}

func (c *commandContext) userAgent() string {
	return fmt.Sprintf("%s/%s", c.cfg.Splashcat.UserAgent, exporter.Version)
}

func printStats(cmd *cobra.Command, stats []exporter.Stats) {
	out := cmd.OutOrStdout()
	for _, s := range stats {
		fmt.Fprintf(out, "%-10s exported=%d skipped=%d failed=%d already=%d duplicates=%d summaries=%d stages=%d\n",
			s.Exporter, s.Exported, s.Skipped, s.Failed, s.AlreadyExported, s.Duplicates, s.Summaries, s.Stages)
	}
}
