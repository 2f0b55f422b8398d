// Package mongodb stores records as documents in MongoDB, one collection per
// record kind.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/dedup"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/logging"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/translate"
)

// Name is the exporter name used in config, logs and reports.
const Name = "mongodb"

// Collection names within the database.
const (
	BattlesCollection   = "battles"
	JobsCollection      = "jobs"
	SummariesCollection = "summaries"
	StagesCollection    = "stages"
)

// Collection is the subset of *mongo.Collection the exporter uses.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Collections groups the collections of one database.
type Collections struct {
	Battles   Collection
	Jobs      Collection
	Summaries Collection
	Stages    Collection
}

// Config configures the exporter.
type Config struct {
	URI        string
	Database   string
	WebBaseURL string // stored battles are linked as {WebBaseURL}/battle/{objectId}
	Version    translate.ToolVersion
}

// Exporter writes storage documents to MongoDB.
type Exporter struct {
	cols       Collections
	webBaseURL string
	version    translate.ToolVersion
	now        func() time.Time
	disconnect func(context.Context) error
	log        *slog.Logger
}

// New creates an exporter over existing collections.
func New(cols Collections, cfg Config) *Exporter {
	return &Exporter{
		cols:       cols,
		webBaseURL: strings.TrimSuffix(cfg.WebBaseURL, "/"),
		version:    cfg.Version,
		now:        time.Now,
		log:        logging.ExporterLogger(Name),
	}
}

// Connect opens a client, checks the server is reachable and ensures the
// game id indexes exist.
func Connect(ctx context.Context, cfg Config) (*Exporter, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	e := New(Collections{
		Battles:   db.Collection(BattlesCollection),
		Jobs:      db.Collection(JobsCollection),
		Summaries: db.Collection(SummariesCollection),
		Stages:    db.Collection(StagesCollection),
	}, cfg)
	e.disconnect = client.Disconnect

	for _, name := range []string{BattlesCollection, JobsCollection} {
		if err := ensureGameIDIndex(connectCtx, db.Collection(name)); err != nil {
			// Older databases may hold duplicate ids; dedup still works without the index.
			e.log.Warn("failed to ensure gameId index", "collection", name, "error", err)
		}
	}

	e.log.Info("connected", "database", cfg.Database)
	return e, nil
}

// ensureGameIDIndex creates a unique index over documents that carry a
// gameId. Documents written before canonical ids existed have none.
func ensureGameIDIndex(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "gameId", Value: 1}},
		Options: options.Index().
			SetName("gameId_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"gameId": bson.M{"$exists": true}}),
	})
	return err
}

// Name implements exporter.Exporter.
func (e *Exporter) Name() string { return Name }

func (e *Exporter) collection(kind splatnet.Kind) Collection {
	if kind == splatnet.KindCoop {
		return e.cols.Jobs
	}
	return e.cols.Battles
}

// NotExported implements exporter.Exporter. Documents written by current
// and older versions carry gameId; the oldest ones are found by their raw
// detail id.
func (e *Exporter) NotExported(ctx context.Context, _ *dedup.Cache, kind splatnet.Kind, ids []string) ([]string, error) {
	col := e.collection(kind)
	ks := dedup.KeyspaceFunc(func(ctx context.Context, l dedup.Lineage, key string) (bool, error) {
		n, err := col.CountDocuments(ctx, lineageFilter(l, key), options.Count().SetLimit(1))
		if err != nil {
			return false, err
		}
		return n > 0, nil
	})
	lineages := []dedup.Lineage{dedup.LineageCurrent, dedup.LineageLegacy, dedup.LineageRaw}
	return dedup.FilterUnexported(ctx, ks, lineages, ids)
}

func lineageFilter(l dedup.Lineage, key string) bson.M {
	if l == dedup.LineageRaw {
		return bson.M{"$or": bson.A{
			bson.M{"normalizedDetail.id": key},
			bson.M{"splatNetData.id": key},
		}}
	}
	return bson.M{"gameId": key}
}

// ExportGame implements exporter.Exporter. A record whose game id is already
// stored is skipped.
func (e *Exporter) ExportGame(ctx context.Context, game *splatnet.Game) (exporter.Result, error) {
	doc, err := translate.ToStorageDocument(game, e.version, e.now())
	if err != nil {
		return exporter.Result{}, err
	}

	res, err := e.collection(game.Type).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return exporter.Skip("already exported"), nil
	}
	if err != nil {
		return exporter.Result{}, fmt.Errorf("%w: insert %s: %v", exporter.ErrDestinationWrite, doc.GameID, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return exporter.Success(""), nil
	}
	return exporter.Success(fmt.Sprintf("%s/battle/%s", e.webBaseURL, oid.Hex())), nil
}

// ExportSummary implements exporter.SummaryExporter. Every call inserts a
// new snapshot keyed by the player uid.
func (e *Exporter) ExportSummary(ctx context.Context, summary *splatnet.Summary) (exporter.Result, error) {
	doc := make(bson.M, len(summary.Data)+1)
	for k, v := range summary.Data {
		doc[k] = v
	}
	doc["summaryId"] = summary.UID

	if _, err := e.cols.Summaries.InsertOne(ctx, doc); err != nil {
		return exporter.Result{}, fmt.Errorf("%w: insert summary %s: %v", exporter.ErrDestinationWrite, summary.UID, err)
	}
	return exporter.Success(""), nil
}

// ExportStages implements exporter.StageExporter. Stages are upserted by id.
func (e *Exporter) ExportStages(ctx context.Context, stages []splatnet.StageRecord) (int, error) {
	for i, s := range stages {
		_, err := e.cols.Stages.UpdateOne(ctx,
			bson.M{"id": s.ID},
			bson.M{"$set": s.Data},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return i, fmt.Errorf("%w: upsert stage %s: %v", exporter.ErrDestinationWrite, s.ID, err)
		}
	}
	return len(stages), nil
}

// Close disconnects the client opened by Connect.
func (e *Exporter) Close(ctx context.Context) error {
	if e.disconnect == nil {
		return nil
	}
	return e.disconnect(ctx)
}

var (
	_ exporter.Exporter        = (*Exporter)(nil)
	_ exporter.SummaryExporter = (*Exporter)(nil)
	_ exporter.StageExporter   = (*Exporter)(nil)
	_ Collection               = (*mongo.Collection)(nil)
)
