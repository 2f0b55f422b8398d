package metadata

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresWriter implements Writer using PostgreSQL.
type PostgresWriter struct {
	pool *pgxpool.Pool
	cfg  CatalogConfig
}

// NewPostgresWriter creates a new PostgreSQL ledger writer.
func NewPostgresWriter(ctx context.Context, cfg CatalogConfig) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	// Configure connection pool
	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	w := &PostgresWriter{
		pool: pool,
		cfg:  cfg,
	}

	// Initialize schema
	if err := w.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	log.Println("[metadata] connected to PostgreSQL export ledger")
	return w, nil
}

// initSchema creates the _meta_* tables if they don't exist.
func (w *PostgresWriter) initSchema(ctx context.Context) error {
	_, err := w.pool.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// StartRun registers a run.
func (w *PostgresWriter) StartRun(ctx context.Context, run RunInfo) error {
	query := `
		INSERT INTO _meta_runs (run_id, namespace, command, exporters, source_location, producer_version, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO NOTHING
	`

	_, err := w.pool.Exec(ctx, query,
		run.RunID,
		w.cfg.Namespace,
		run.Command,
		run.Exporters,
		run.SourceLocation,
		run.ProducerVersion,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// RecordExport writes one outcome. A later outcome for the same run,
// exporter and raw id replaces the earlier one.
func (w *PostgresWriter) RecordExport(ctx context.Context, rec ExportRecord) error {
	query := `
		INSERT INTO _meta_exports (
			run_id, exporter, kind, game_id, raw_id, status, locator, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, exporter, raw_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			locator = EXCLUDED.locator,
			reason = EXCLUDED.reason,
			created_at = NOW()
	`

	_, err := w.pool.Exec(ctx, query,
		rec.RunID,
		rec.Exporter,
		rec.Kind,
		nullable(rec.GameID),
		rec.RawID,
		rec.Status,
		nullable(rec.Locator),
		nullable(rec.Reason),
	)
	if err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time and returns its outcome counts.
func (w *PostgresWriter) FinishRun(ctx context.Context, runID string) (RunCounts, error) {
	if _, err := w.pool.Exec(ctx, `UPDATE _meta_runs SET finished_at = NOW() WHERE run_id = $1`, runID); err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}

	rows, err := w.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM _meta_exports
		WHERE run_id = $1
		GROUP BY status
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run counts: %w", err)
	}

	counts := RunCounts{}
	var status string
	var n int64
	_, err = pgx.ForEachRow(rows, []any{&status, &n}, func() error {
		counts[status] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan run counts: %w", err)
	}
	return counts, nil
}

// Close releases database connections.
func (w *PostgresWriter) Close() error {
	w.pool.Close()
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
