package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/dedup"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/logging"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/metadata"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/metrics"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/report"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/source"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatid"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

// kindSummary and kindStages label non-game outputs in reports and metrics.
const (
	kindSummary = "Summary"
	kindStages  = "Stages"
)

// RunnerConfig configures a batch run. Nil dependencies fall back to no-ops.
type RunnerConfig struct {
	RunID   string
	Command string

	// Kinds to export, in order. Defaults to battles then jobs.
	Kinds []splatnet.Kind

	// Only restricts the run to these raw ids when non-empty.
	Only []string

	Ledger  metadata.Writer
	Metrics *metrics.Metrics
	Report  *report.Report
}

// Stats counts the outcomes of one exporter in a run.
type Stats struct {
	Exporter        string
	Exported        int
	Skipped         int
	Failed          int
	AlreadyExported int
	Duplicates      int
	Summaries       int
	Stages          int
}

// Runner drives every record of a source through a set of exporters.
// Exporters run concurrently; each one handles its records in order.
type Runner struct {
	cfg       RunnerConfig
	src       source.GameSource
	exporters []Exporter
	cache     *dedup.Cache
	log       *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig, src source.GameSource, exporters ...Exporter) *Runner {
	if cfg.RunID == "" {
		cfg.RunID = logging.GenerateCorrelationID()
	}
	if cfg.Command == "" {
		cfg.Command = "export"
	}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = []splatnet.Kind{splatnet.KindVs, splatnet.KindCoop}
	}
	if cfg.Ledger == nil {
		cfg.Ledger = metadata.NoopWriter{}
	}
	if cfg.Report == nil {
		cfg.Report = report.New(cfg.RunID)
	}
	return &Runner{
		cfg:       cfg,
		src:       src,
		exporters: exporters,
		cache:     dedup.NewCache(),
		log:       slog.With("component", "runner", "run_id", cfg.RunID),
	}
}

// Report returns the run's failure report.
func (r *Runner) Report() *report.Report {
	return r.cfg.Report
}

// Run exports every record the source lists. Per-record failures go to the
// report and do not stop the run; the returned error covers failures that
// stop an exporter, including cancellation.
func (r *Runner) Run(ctx context.Context) ([]Stats, error) {
	ctx = logging.WithCorrelationID(ctx, r.cfg.RunID)
	startTime := time.Now()

	names := make([]string, len(r.exporters))
	for i, e := range r.exporters {
		names[i] = e.Name()
	}
	if err := r.cfg.Ledger.StartRun(ctx, metadata.RunInfo{
		RunID:           r.cfg.RunID,
		Command:         r.cfg.Command,
		Exporters:       names,
		SourceLocation:  sourceLocation(r.src),
		ProducerVersion: fmt.Sprintf("battle-exporter@%s", Version),
		StartedAt:       startTime.UTC(),
	}); err != nil {
		r.log.Warn("failed to register run in ledger", "error", err)
		r.cfg.Metrics.IncMetadataErrors()
	}

	ids, err := r.listIDs(ctx)
	if err != nil {
		r.cfg.Metrics.IncSourceErrors()
		return nil, err
	}
	summary, stages := r.loadExtras(ctx)

	r.log.Info("starting run",
		"exporters", names,
		"battles", len(ids[splatnet.KindVs]),
		"jobs", len(ids[splatnet.KindCoop]),
	)

	stats := make([]Stats, len(r.exporters))
	errs := make([]error, len(r.exporters))
	var wg sync.WaitGroup
	for i, e := range r.exporters {
		wg.Add(1)
		go func(i int, e Exporter) {
			defer wg.Done()
			r.cfg.Metrics.AddInFlight(1)
			defer r.cfg.Metrics.AddInFlight(-1)

			stats[i], errs[i] = r.runExporter(ctx, e, ids, summary, stages)
			if errs[i] != nil {
				errs[i] = fmt.Errorf("%s: %w", e.Name(), errs[i])
			}
		}(i, e)
	}
	wg.Wait()

	counts, err := r.cfg.Ledger.FinishRun(context.WithoutCancel(ctx), r.cfg.RunID)
	if err != nil {
		r.log.Warn("failed to finish run in ledger", "error", err)
		r.cfg.Metrics.IncMetadataErrors()
	}

	for _, s := range stats {
		r.log.Info("exporter complete",
			"exporter", s.Exporter,
			"exported", s.Exported,
			"skipped", s.Skipped,
			"failed", s.Failed,
			"already_exported", s.AlreadyExported,
			"duplicates", s.Duplicates,
		)
	}
	r.log.Info("run complete",
		"duration", time.Since(startTime).String(),
		"failures", r.cfg.Report.Len(),
		"ledger_counts", counts,
	)

	return stats, errors.Join(errs...)
}

// listIDs collects the ids of every configured kind.
func (r *Runner) listIDs(ctx context.Context) (map[splatnet.Kind][]string, error) {
	var only map[string]struct{}
	if len(r.cfg.Only) > 0 {
		only = make(map[string]struct{}, len(r.cfg.Only))
		for _, id := range r.cfg.Only {
			only[id] = struct{}{}
		}
	}

	ids := make(map[splatnet.Kind][]string, len(r.cfg.Kinds))
	for _, kind := range r.cfg.Kinds {
		list, err := r.src.List(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		if only != nil {
			var filtered []string
			for _, id := range list {
				if _, ok := only[id]; ok {
					filtered = append(filtered, id)
				}
			}
			list = filtered
		}
		ids[kind] = list
	}
	return ids, nil
}

// loadExtras reads the summary and stage records. They are optional, so
// read failures are logged and the run goes on without them.
func (r *Runner) loadExtras(ctx context.Context) (*splatnet.Summary, []splatnet.StageRecord) {
	if len(r.cfg.Only) > 0 {
		return nil, nil
	}
	summary, err := r.src.Summary(ctx)
	if err != nil {
		r.log.Warn("failed to read summary", "error", err)
		r.cfg.Metrics.IncSourceErrors()
		summary = nil
	}
	stages, err := r.src.Stages(ctx)
	if err != nil {
		r.log.Warn("failed to read stages", "error", err)
		r.cfg.Metrics.IncSourceErrors()
		stages = nil
	}
	return summary, stages
}

func (r *Runner) runExporter(ctx context.Context, e Exporter, ids map[splatnet.Kind][]string, summary *splatnet.Summary, stages []splatnet.StageRecord) (Stats, error) {
	stats := Stats{Exporter: e.Name()}

	total := 0
	for _, list := range ids {
		total += len(list)
	}
	seen := newSeenSet(total)

	for _, kind := range r.cfg.Kinds {
		all := ids[kind]
		if len(all) == 0 {
			continue
		}
		log := logging.ExportLogger(ctx, e.Name(), string(kind))
		labels := metrics.Labels{Exporter: e.Name(), Kind: string(kind)}

		dedupStart := time.Now()
		todo, err := e.NotExported(ctx, r.cache, kind, all)
		r.cfg.Metrics.ObserveDedupDuration(labels, time.Since(dedupStart).Seconds())
		if err != nil {
			return stats, fmt.Errorf("check %s: %w", kind, err)
		}

		present := len(all) - len(todo)
		stats.AlreadyExported += present
		r.cfg.Metrics.AddAlreadyExported(labels, present)
		log.Info("checked destination", "listed", len(all), "to_export", len(todo))

		for _, id := range todo {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if seen.testAndAdd(string(kind), id) {
				stats.Duplicates++
				r.cfg.Metrics.IncDuplicate(e.Name())
				log.Debug("duplicate record in run", "id", id)
				continue
			}
			r.exportOne(ctx, e, kind, id, log, &stats)
		}
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if se := AsSummaryExporter(e); se != nil && summary != nil {
		r.exportSummary(ctx, e.Name(), se, summary, &stats)
	}
	if st := AsStageExporter(e); st != nil && len(stages) > 0 {
		r.exportStages(ctx, e.Name(), st, stages, &stats)
	}
	return stats, nil
}

func (r *Runner) exportOne(ctx context.Context, e Exporter, kind splatnet.Kind, id string, log *slog.Logger, stats *Stats) {
	labels := metrics.Labels{Exporter: e.Name(), Kind: string(kind)}
	gameID, _ := splatid.CurrentGameID(id)
	rec := metadata.ExportRecord{
		RunID:    r.cfg.RunID,
		Exporter: e.Name(),
		Kind:     string(kind),
		GameID:   gameID,
		RawID:    id,
	}
	log = logging.RecordLogger(log, id, gameID)

	start := time.Now()
	game, err := r.src.Fetch(ctx, id)
	if err != nil {
		r.cfg.Metrics.IncSourceErrors()
		r.fail(ctx, rec, fmt.Errorf("fetch: %w", err), log, stats)
		return
	}

	res, err := e.ExportGame(ctx, game)
	r.cfg.Metrics.ObserveExportDuration(labels, time.Since(start).Seconds())
	if err != nil {
		r.fail(ctx, rec, err, log, stats)
		return
	}

	switch res.Status {
	case StatusSkip:
		stats.Skipped++
		r.cfg.Metrics.IncSkipped(labels)
		rec.Status = metadata.StatusSkip
		rec.Reason = res.Reason
		log.Debug("skipped", "reason", res.Reason)
	default:
		stats.Exported++
		r.cfg.Metrics.IncExported(labels)
		rec.Status = metadata.StatusSuccess
		rec.Locator = res.URL
		log.Info("exported", "url", res.URL)
	}
	r.record(ctx, rec)
}

func (r *Runner) fail(ctx context.Context, rec metadata.ExportRecord, err error, log *slog.Logger, stats *Stats) {
	stats.Failed++
	r.cfg.Metrics.IncFailed(metrics.Labels{Exporter: rec.Exporter, Kind: rec.Kind})
	log.Warn("export failed", "error", err)

	r.cfg.Report.Add(report.Entry{
		Exporter: rec.Exporter,
		Kind:     rec.Kind,
		RawID:    rec.RawID,
		GameID:   rec.GameID,
		Error:    err.Error(),
	})
	rec.Status = metadata.StatusError
	rec.Reason = err.Error()
	r.record(ctx, rec)
}

func (r *Runner) record(ctx context.Context, rec metadata.ExportRecord) {
	if err := r.cfg.Ledger.RecordExport(context.WithoutCancel(ctx), rec); err != nil {
		r.log.Warn("failed to record export in ledger", "exporter", rec.Exporter, "id", rec.RawID, "error", err)
		r.cfg.Metrics.IncMetadataErrors()
	}
}

func (r *Runner) exportSummary(ctx context.Context, name string, se SummaryExporter, summary *splatnet.Summary, stats *Stats) {
	rec := metadata.ExportRecord{RunID: r.cfg.RunID, Exporter: name, Kind: kindSummary, RawID: summary.UID}
	res, err := se.ExportSummary(ctx, summary)
	if err != nil {
		r.fail(ctx, rec, fmt.Errorf("summary: %w", err), logging.ExportLogger(ctx, name, kindSummary), stats)
		return
	}
	stats.Summaries++
	r.cfg.Metrics.IncSummaries(name)
	rec.Status = metadata.StatusSuccess
	rec.Locator = res.URL
	r.record(ctx, rec)
}

func (r *Runner) exportStages(ctx context.Context, name string, st StageExporter, stages []splatnet.StageRecord, stats *Stats) {
	rec := metadata.ExportRecord{RunID: r.cfg.RunID, Exporter: name, Kind: kindStages, RawID: "stages"}
	n, err := st.ExportStages(ctx, stages)
	stats.Stages += n
	r.cfg.Metrics.AddStages(name, n)
	if err != nil {
		r.fail(ctx, rec, fmt.Errorf("stages: %w", err), logging.ExportLogger(ctx, name, kindStages), stats)
		return
	}
	rec.Status = metadata.StatusSuccess
	r.record(ctx, rec)
}

// seenSet remembers the records handled by one exporter in a run, keyed by
// kind and current game id so the same game listed under two raw ids is
// exported once. The filter answers most lookups; positives are confirmed
// against the exact set.
type seenSet struct {
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

func newSeenSet(n int) *seenSet {
	if n < 1000 {
		n = 1000
	}
	return &seenSet{
		filter: bloom.NewWithEstimates(uint(n), 0.001),
		exact:  make(map[string]struct{}, n),
	}
}

// testAndAdd reports whether the record was seen before and marks it seen.
func (s *seenSet) testAndAdd(kind, rawID string) bool {
	key := rawID
	if gameID, err := splatid.CurrentGameID(rawID); err == nil {
		key = gameID
	}
	key = kind + "/" + key

	if s.filter.TestString(key) {
		if _, ok := s.exact[key]; ok {
			return true
		}
	}
	s.filter.AddString(key)
	s.exact[key] = struct{}{}
	return false
}

// sourceLocation returns where src reads from when it can tell.
func sourceLocation(src source.GameSource) string {
	if l, ok := src.(interface{ Location() string }); ok {
		return l.Location()
	}
	return ""
}
