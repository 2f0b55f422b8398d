package splashcat

import (
	"context"
	"log/slog"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/dedup"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/logging"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/report"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/translate"
)

// Name is the exporter name used in config, logs and reports.
const Name = "splashcat"

// recentSnapshot names the recent-id list in the run cache.
const recentSnapshot = "splashcat/recent"

// Exporter uploads versus battles. Jobs are not supported by the server.
type Exporter struct {
	client *Client
	log    *slog.Logger
}

// New creates an exporter using client.
func New(client *Client) *Exporter {
	return &Exporter{
		client: client,
		log:    logging.ExporterLogger(Name),
	}
}

// Name implements exporter.Exporter.
func (e *Exporter) Name() string { return Name }

// NotExported implements exporter.Exporter. The server lists recent uploads
// by current or legacy game id; the list is fetched once per run.
func (e *Exporter) NotExported(ctx context.Context, cache *dedup.Cache, kind splatnet.Kind, ids []string) ([]string, error) {
	if kind != splatnet.KindVs {
		return []string{}, nil
	}
	recent, err := cache.Snapshot(recentSnapshot, func() ([]string, error) {
		return e.client.RecentBattleIDs(ctx)
	})
	if err != nil {
		return nil, err
	}
	e.log.Debug("loaded recent uploads", "count", len(recent))

	lineages := []dedup.Lineage{dedup.LineageCurrent, dedup.LineageLegacy}
	return dedup.FilterUnexported(ctx, dedup.SetKeyspace(recent), lineages, ids)
}

// ExportGame implements exporter.Exporter.
func (e *Exporter) ExportGame(ctx context.Context, game *splatnet.Game) (exporter.Result, error) {
	if game.Type != splatnet.KindVs {
		return exporter.Skip("Splashcat does not support Salmon Run"), nil
	}
	body, err := translate.ToUploadBattle(game)
	if err != nil {
		return exporter.Result{}, err
	}
	if err := e.client.UploadBattle(ctx, body); err != nil {
		return exporter.Result{}, err
	}
	return exporter.Success(""), nil
}

var _ exporter.Exporter = (*Exporter)(nil)

// Resender uploads battles stored by another destination as raw SplatNet
// details. Failures are collected in the report and do not stop the batch.
type Resender struct {
	client *Client
	report *report.Report
	log    *slog.Logger

	Sent   int
	Failed int
}

// NewResender creates a resender.
func NewResender(client *Client, rep *report.Report) *Resender {
	return &Resender{client: client, report: rep, log: logging.ExporterLogger(Name).With("command", "resend")}
}

// Send uploads one battle. It returns an error only when ctx is done.
func (r *Resender) Send(ctx context.Context, rawID, gameID string, detail map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.client.UploadSplatNet3(ctx, detail); err != nil {
		r.Failed++
		r.report.Add(report.Entry{
			Exporter: Name,
			Kind:     string(splatnet.KindVs),
			RawID:    rawID,
			GameID:   gameID,
			Error:    err.Error(),
		})
		logging.RecordLogger(r.log, rawID, gameID).Warn("resend failed", "error", err)
		return ctx.Err()
	}
	r.Sent++
	return nil
}
