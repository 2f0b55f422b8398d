// Package source reads raw SplatNet records that an upstream fetcher has
// saved as JSON (optionally zstd-compressed) files in a directory or bucket.
package source

import (
	"context"
	"errors"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
)

var (
	// ErrGameNotFound is returned by Fetch for an id the source does not hold.
	ErrGameNotFound = errors.New("game not found")
	// ErrInvalidSourceMode is returned for an unknown source backend.
	ErrInvalidSourceMode = errors.New("invalid source mode")
)

// GameSource lists and fetches raw records.
type GameSource interface {
	// List returns the raw ids of every record of kind, oldest first.
	List(ctx context.Context, kind splatnet.Kind) ([]string, error)

	// Fetch returns the record with the given raw id.
	Fetch(ctx context.Context, id string) (*splatnet.Game, error)

	// Summary returns the saved player summary, or nil when there is none.
	Summary(ctx context.Context) (*splatnet.Summary, error)

	// Stages returns the saved stage records, if any.
	Stages(ctx context.Context) ([]splatnet.StageRecord, error)

	Close() error
}
