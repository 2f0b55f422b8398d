package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/config"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter/mongodb"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/logging"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/metadata"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/metrics"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/translate"
)

// commandContext carries what every subcommand shares.
type commandContext struct {
	configPath string
	cfg        config.Config
	metrics    *metrics.Metrics
}

func newRootCommand() *cobra.Command {
	c := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "battle-exporter",
		Short:         "Export SplatNet 3 battles and jobs to MongoDB, Splashcat and blob archives",
		Version:       fmt.Sprintf("%s (%s)", exporter.Version, exporter.GitSHA),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "profile.yaml", "Configuration profile path")

	rootCmd.AddCommand(newExportCommand(c))
	rootCmd.AddCommand(newBackfillCommand(c))
	rootCmd.AddCommand(newResendCommand(c))
	return rootCmd
}

func (c *commandContext) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logging.Setup(logging.Config{Format: cfg.Logging.Format, Level: cfg.Logging.Level})
	log.Printf("[main] battle-exporter %s (%s)", exporter.Version, exporter.GitSHA)

	c.metrics = metrics.Init("battle_exporter")
	if cfg.Metrics.Enabled {
		go func() {
			log.Printf("[metrics] serving on %s", cfg.Metrics.Address)
			if err := c.metrics.StartServer(cfg.Metrics.Address); err != nil {
				log.Printf("[metrics] server stopped: %v", err)
			}
		}()
	}
	return nil
}

func (c *commandContext) toolVersion() translate.ToolVersion {
	return translate.ToolVersion{
		NsoVersion:      c.cfg.Versions.NsoVersion,
		AgentVersion:    c.cfg.Versions.AgentVersion,
		ExporterVersion: exporter.Version,
	}
}

func (c *commandContext) ledger(ctx context.Context) metadata.Writer {
	w, err := metadata.NewWriter(ctx, metadata.CatalogConfig{
		PostgresDSN: c.cfg.Catalog.PostgresDSN,
		Namespace:   c.cfg.Catalog.Namespace,
	})
	if err != nil {
		log.Printf("[metadata] ledger disabled: %v", err)
		c.metrics.IncMetadataErrors()
		return metadata.NoopWriter{}
	}
	return w
}

func (c *commandContext) connectMongo(ctx context.Context) (*mongodb.Exporter, error) {
	if c.cfg.Mongo.URI == "" {
		return nil, errors.New("mongodb URI not set")
	}
	return mongodb.Connect(ctx, mongodb.Config{
		URI:        c.cfg.Mongo.URI,
		Database:   c.cfg.Mongo.Database,
		WebBaseURL: c.cfg.Mongo.WebBaseURL,
		Version:    c.toolVersion(),
	})
}
