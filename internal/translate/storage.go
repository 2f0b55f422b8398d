// Package translate maps SplatNet records into the shapes each export
// destination stores. Functions here are pure and safe for concurrent use.
package translate

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatid"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
)

var (
	// ErrUnsupportedRecordKind is returned when a destination shape has no
	// representation for the record kind.
	ErrUnsupportedRecordKind = errors.New("record kind unsupported by this destination")
	// ErrSelfNotFound is returned when no player on the own team is flagged as myself.
	ErrSelfNotFound = errors.New("self not found in own team")
	// ErrEmptyOpponentTeams is returned when a versus record has no opposing team.
	ErrEmptyOpponentTeams = errors.New("no opponent teams")
)

// ToolVersion identifies the software that produced an export.
type ToolVersion struct {
	NsoVersion      string
	AgentVersion    string
	ExporterVersion string
}

// ExportMetadata is stamped on every stored document.
type ExportMetadata struct {
	NsoVersion      string    `bson:"nsoVersion" json:"nsoVersion"`
	AgentVersion    string    `bson:"agentVersion" json:"agentVersion"`
	ExporterVersion string    `bson:"exporterVersion" json:"exporterVersion"`
	ExportDate      time.Time `bson:"exportDate" json:"exportDate"`
}

// StorageDocument is the shape written to document and archive destinations.
type StorageDocument struct {
	Data             map[string]any `bson:"data" json:"data"`
	NormalizedDetail map[string]any `bson:"normalizedDetail" json:"normalizedDetail"`
	GameID           string         `bson:"gameId" json:"gameId"`
	ExportMetadata   ExportMetadata `bson:"exportMetadata" json:"exportMetadata"`
}

// ToStorageDocument copies the raw record verbatim, adds a detail view with
// playedTime as a time.Time and stamps the current-lineage game id. now is
// recorded as the export date.
func ToStorageDocument(game *splatnet.Game, meta ToolVersion, now time.Time) (*StorageDocument, error) {
	if game == nil || len(game.Raw) == 0 || len(game.RawDetail) == 0 {
		return nil, fmt.Errorf("storage document: record has no raw bytes")
	}

	gameID, err := splatid.CurrentGameID(game.ID())
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal(game.Raw, &data); err != nil {
		return nil, fmt.Errorf("storage document: decode record: %w", err)
	}
	var detail map[string]any
	if err := json.Unmarshal(game.RawDetail, &detail); err != nil {
		return nil, fmt.Errorf("storage document: decode detail: %w", err)
	}

	played, err := time.Parse(time.RFC3339, game.PlayedTime())
	if err != nil {
		return nil, fmt.Errorf("storage document: playedTime %q: %w", game.PlayedTime(), err)
	}
	detail["playedTime"] = played.UTC()

	return &StorageDocument{
		Data:             data,
		NormalizedDetail: detail,
		GameID:           gameID,
		ExportMetadata: ExportMetadata{
			NsoVersion:      meta.NsoVersion,
			AgentVersion:    meta.AgentVersion,
			ExporterVersion: meta.ExporterVersion,
			ExportDate:      now.UTC(),
		},
	}, nil
}
