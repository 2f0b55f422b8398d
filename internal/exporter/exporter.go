// Package exporter defines the contract every export destination implements
// and the Runner that drives a batch of records through the destinations.
package exporter

import (
	"context"
	"errors"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/dedup"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
)

// ErrDestinationWrite wraps any failure of a destination to accept a record.
var ErrDestinationWrite = errors.New("destination write failed")

// Status is the outcome of a successful ExportGame call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkip    Status = "skip"
)

// Result describes an export that did not fail. URL is set when the
// destination gives the stored record an address; Reason is set on skips.
type Result struct {
	Status Status
	URL    string
	Reason string
}

// Success returns a success result with an optional locator.
func Success(url string) Result {
	return Result{Status: StatusSuccess, URL: url}
}

// Skip returns a skip result.
func Skip(reason string) Result {
	return Result{Status: StatusSkip, Reason: reason}
}

// Exporter writes records to one destination. Implementations must make each
// ExportGame call all-or-nothing.
type Exporter interface {
	// Name identifies the destination in logs, metrics and reports.
	Name() string

	// NotExported returns the ids of kind the destination does not hold yet,
	// in input order. cache is owned by the run and may be nil.
	NotExported(ctx context.Context, cache *dedup.Cache, kind splatnet.Kind, ids []string) ([]string, error)

	// ExportGame writes one record. Destinations that cannot represent the
	// record return a skip result, not an error.
	ExportGame(ctx context.Context, game *splatnet.Game) (Result, error)
}

// SummaryExporter is implemented by destinations that store the player summary.
type SummaryExporter interface {
	ExportSummary(ctx context.Context, summary *splatnet.Summary) (Result, error)
}

// StageExporter is implemented by destinations that store stage records.
type StageExporter interface {
	ExportStages(ctx context.Context, stages []splatnet.StageRecord) (int, error)
}

// AsSummaryExporter returns e as a SummaryExporter, or nil.
func AsSummaryExporter(e Exporter) SummaryExporter {
	if s, ok := e.(SummaryExporter); ok {
		return s
	}
	return nil
}

// AsStageExporter returns e as a StageExporter, or nil.
func AsStageExporter(e Exporter) StageExporter {
	if s, ok := e.(StageExporter); ok {
		return s
	}
	return nil
}
