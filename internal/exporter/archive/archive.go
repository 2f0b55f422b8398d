// Package archive writes storage documents as zstd-compressed JSON objects
// to a blob store, one object per record.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/dedup"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/logging"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/storage"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/translate"
)

// Name is the exporter name used in config, logs and reports.
const Name = "archive"

const ext = ".json.zst"

// Key returns the object key of a record. Objects written by older versions
// are named by the legacy game id under the same directories.
func Key(kind splatnet.Kind, gameID string) string {
	dir := "battles/"
	if kind == splatnet.KindCoop {
		dir = "jobs/"
	}
	return dir + gameID + ext
}

// SummaryKey returns the object key of a player summary.
func SummaryKey(uid string) string {
	return "summaries/" + uid + ext
}

// StagesKey is the object key of the stage records.
const StagesKey = "stages" + ext

// Exporter writes records to a blob store.
type Exporter struct {
	store   storage.DocumentStore
	version translate.ToolVersion
	encoder *zstd.Encoder
	now     func() time.Time
	log     *slog.Logger
}

// New creates an archive exporter over store.
func New(store storage.DocumentStore, version translate.ToolVersion) (*Exporter, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Exporter{
		store:   store,
		version: version,
		encoder: enc,
		now:     time.Now,
		log:     logging.ExporterLogger(Name),
	}, nil
}

// Name implements exporter.Exporter.
func (e *Exporter) Name() string { return Name }

// NotExported implements exporter.Exporter.
func (e *Exporter) NotExported(ctx context.Context, _ *dedup.Cache, kind splatnet.Kind, ids []string) ([]string, error) {
	ks := dedup.KeyspaceFunc(func(ctx context.Context, _ dedup.Lineage, key string) (bool, error) {
		return e.store.Exists(ctx, Key(kind, key))
	})
	lineages := []dedup.Lineage{dedup.LineageCurrent, dedup.LineageLegacy}
	return dedup.FilterUnexported(ctx, ks, lineages, ids)
}

// ExportGame implements exporter.Exporter.
func (e *Exporter) ExportGame(ctx context.Context, game *splatnet.Game) (exporter.Result, error) {
	doc, err := translate.ToStorageDocument(game, e.version, e.now())
	if err != nil {
		return exporter.Result{}, err
	}
	key := Key(game.Type, doc.GameID)
	if err := e.put(ctx, key, doc); err != nil {
		return exporter.Result{}, err
	}
	return exporter.Success(e.store.URI(key)), nil
}

// ExportSummary implements exporter.SummaryExporter. The latest summary of
// a player replaces the previous one.
func (e *Exporter) ExportSummary(ctx context.Context, summary *splatnet.Summary) (exporter.Result, error) {
	key := SummaryKey(summary.UID)
	if err := e.put(ctx, key, summary.Data); err != nil {
		return exporter.Result{}, err
	}
	return exporter.Success(e.store.URI(key)), nil
}

// ExportStages implements exporter.StageExporter. All stages are written as
// one array.
func (e *Exporter) ExportStages(ctx context.Context, stages []splatnet.StageRecord) (int, error) {
	records := make([]map[string]any, len(stages))
	for i, s := range stages {
		records[i] = s.Data
	}
	if err := e.put(ctx, StagesKey, records); err != nil {
		return 0, err
	}
	return len(stages), nil
}

func (e *Exporter) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	compressed := e.encoder.EncodeAll(data, make([]byte, 0, len(data)/4))
	if err := storage.Publish(ctx, e.store, key, compressed); err != nil {
		return fmt.Errorf("%w: write %s: %v", exporter.ErrDestinationWrite, key, err)
	}
	e.log.Debug("wrote object", "key", key, "bytes", len(compressed))
	return nil
}

// Close releases the encoder and the store.
func (e *Exporter) Close() error {
	e.encoder.Close()
	return e.store.Close()
}

var (
	_ exporter.Exporter        = (*Exporter)(nil)
	_ exporter.SummaryExporter = (*Exporter)(nil)
	_ exporter.StageExporter   = (*Exporter)(nil)
)
