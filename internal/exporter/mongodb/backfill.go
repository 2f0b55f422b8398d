package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatid"
)

// LegacyCutoff is the export date of the last battle written before stored
// documents carried a gameId.
var LegacyCutoff = time.Date(2023, 2, 28, 3, 42, 47, 0, time.UTC)

// storedBattle is the part of a stored document the maintenance commands
// read. Documents from older versions keep the detail under splatNetData
// and the export date at the top level.
type storedBattle struct {
	ID               primitive.ObjectID `bson:"_id"`
	GameID           string             `bson:"gameId,omitempty"`
	NormalizedDetail bson.Raw           `bson:"normalizedDetail,omitempty"`
	SplatNetData     bson.Raw           `bson:"splatNetData,omitempty"`
}

func (b *storedBattle) detail() bson.Raw {
	if len(b.NormalizedDetail) > 0 {
		return b.NormalizedDetail
	}
	return b.SplatNetData
}

func (b *storedBattle) rawID() string {
	d := b.detail()
	if len(d) == 0 {
		return ""
	}
	id, _ := d.Lookup("id").StringValueOK()
	return id
}

// BackfillStats counts the outcome of a backfill.
type BackfillStats struct {
	Matched int
	Updated int
	Failed  int
}

// BackfillGameIDs sets the current game id on battles exported on or before
// cutoff that have none. Documents whose detail id cannot be parsed are
// counted and left unchanged.
func (e *Exporter) BackfillGameIDs(ctx context.Context, cutoff time.Time) (BackfillStats, error) {
	var stats BackfillStats
	filter := bson.M{
		"exportDate": bson.M{"$lte": cutoff},
		"gameId":     nil,
	}

	cursor, err := e.cols.Battles.Find(ctx, filter)
	if err != nil {
		return stats, fmt.Errorf("find legacy battles: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		stats.Matched++

		var doc storedBattle
		if err := cursor.Decode(&doc); err != nil {
			e.log.Warn("failed to decode battle", "error", err)
			stats.Failed++
			continue
		}
		rawID := doc.rawID()
		gameID, err := splatid.CurrentGameID(rawID)
		if err != nil {
			e.log.Warn("cannot derive game id", "object_id", doc.ID.Hex(), "id", rawID, "error", err)
			stats.Failed++
			continue
		}

		_, err = e.cols.Battles.UpdateOne(ctx,
			bson.M{"_id": doc.ID},
			bson.M{"$set": bson.M{"gameId": gameID}},
		)
		if err != nil {
			return stats, fmt.Errorf("update %s: %w", doc.ID.Hex(), err)
		}
		stats.Updated++
		e.log.Debug("backfilled game id", "id", rawID, "game_id", gameID)
	}
	if err := cursor.Err(); err != nil {
		return stats, fmt.Errorf("iterate legacy battles: %w", err)
	}
	return stats, nil
}

// StoredBattle is a stored battle as read back for re-upload.
type StoredBattle struct {
	ObjectID primitive.ObjectID
	GameID   string
	RawID    string
	// Detail is the SplatNet detail with dates rendered as wire timestamps.
	Detail map[string]any
}

// EachBattle calls fn for every stored battle until fn returns an error.
func (e *Exporter) EachBattle(ctx context.Context, fn func(StoredBattle) error) error {
	cursor, err := e.cols.Battles.Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("find battles: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc storedBattle
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("decode battle: %w", err)
		}

		var detail bson.M
		if d := doc.detail(); len(d) > 0 {
			if err := bson.Unmarshal(d, &detail); err != nil {
				return fmt.Errorf("decode detail of %s: %w", doc.ID.Hex(), err)
			}
		}

		b := StoredBattle{
			ObjectID: doc.ID,
			GameID:   doc.GameID,
			RawID:    doc.rawID(),
		}
		if m, ok := plain(detail).(map[string]any); ok {
			b.Detail = m
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return cursor.Err()
}

// plain converts decoded BSON into JSON-friendly values.
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		return plainMap(t)
	case map[string]any:
		return plainMap(t)
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = plain(x)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC().Format("2006-01-02T15:04:05.000Z")
	case time.Time:
		return t.UTC().Format("2006-01-02T15:04:05.000Z")
	case primitive.ObjectID:
		return t.Hex()
	default:
		return v
	}
}

func plainMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, x := range m {
		out[k] = plain(x)
	}
	return out
}
