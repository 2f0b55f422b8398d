package metadata

import (
	"context"
)

type CatalogConfig struct {
	PostgresDSN string
	Namespace   string
}

// Writer records export outcomes. Ledger failures never fail an export.
type Writer interface {
	StartRun(ctx context.Context, run RunInfo) error
	RecordExport(ctx context.Context, rec ExportRecord) error
	FinishRun(ctx context.Context, runID string) (RunCounts, error)
	Close() error
}

// NewWriter returns a PostgreSQL writer when a DSN is configured and a no-op
// writer otherwise.
func NewWriter(ctx context.Context, cfg CatalogConfig) (Writer, error) {
	if cfg.PostgresDSN == "" {
		return NoopWriter{}, nil
	}
	return NewPostgresWriter(ctx, cfg)
}

// NoopWriter discards every record.
type NoopWriter struct{}

func (NoopWriter) StartRun(context.Context, RunInfo) error          { return nil }
func (NoopWriter) RecordExport(context.Context, ExportRecord) error { return nil }
func (NoopWriter) FinishRun(context.Context, string) (RunCounts, error) {
	return RunCounts{}, nil
}
func (NoopWriter) Close() error { return nil }
