package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/storage"
)

// Lister is the part of a store a source reads from.
type Lister interface {
	Read(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	URI(key string) string
	Close() error
}

// StoreSource reads record files from a store. The index is built on first
// use and kept for the life of the source.
type StoreSource struct {
	store   Lister
	decoder *Decoder

	once     sync.Once
	index    *GameIndex
	indexErr error
}

// NewStoreSource creates a source over store.
func NewStoreSource(store Lister) (*StoreSource, error) {
	decoder, err := NewDecoder()
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	return &StoreSource{store: store, decoder: decoder}, nil
}

// NewLocalSource creates a source over the record files below dir.
func NewLocalSource(dir string) (*StoreSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid local path %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local path %s is not a directory", dir)
	}
	store, err := storage.NewLocalStore(dir, "")
	if err != nil {
		return nil, err
	}
	return NewStoreSource(store)
}

// Location returns where the source reads from.
func (s *StoreSource) Location() string {
	return s.store.URI("")
}

func (s *StoreSource) buildIndex(ctx context.Context) (*GameIndex, error) {
	s.once.Do(func() {
		s.index, s.indexErr = s.scan(ctx)
	})
	return s.index, s.indexErr
}

func (s *StoreSource) scan(ctx context.Context) (*GameIndex, error) {
	keys, err := s.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	index := NewGameIndex()
	skipped := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !IsRecordFile(key) || isReserved(key) {
			continue
		}
		data, err := s.store.Read(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		g, err := s.decoder.DecodeGame(key, data)
		if err != nil {
			if errors.Is(err, ErrInvalidRecord) {
				log.Printf("[source] skipping %s: %v", key, err)
				skipped++
				continue
			}
			return nil, err
		}
		if !index.Add(GameFile{Key: key, ID: g.ID(), Kind: g.Type, PlayedTime: g.PlayedTime()}) {
			log.Printf("[source] duplicate record %s in %s", g.ID(), key)
		}
	}
	index.Sort()

	log.Printf("[source] indexed %d records in %s (%d skipped)", index.Count(), s.Location(), skipped)
	return index, nil
}

// List implements GameSource.
func (s *StoreSource) List(ctx context.Context, kind splatnet.Kind) ([]string, error) {
	index, err := s.buildIndex(ctx)
	if err != nil {
		return nil, err
	}
	return index.IDs(kind), nil
}

// Fetch implements GameSource.
func (s *StoreSource) Fetch(ctx context.Context, id string) (*splatnet.Game, error) {
	index, err := s.buildIndex(ctx)
	if err != nil {
		return nil, err
	}
	f, ok := index.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	data, err := s.store.Read(ctx, f.Key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Key, err)
	}
	return s.decoder.DecodeGame(f.Key, data)
}

// Summary implements GameSource.
func (s *StoreSource) Summary(ctx context.Context) (*splatnet.Summary, error) {
	data, name, err := s.readReserved(ctx, SummaryFile)
	if err != nil || data == nil {
		return nil, err
	}
	raw, err := s.decoder.Decompress(name, data)
	if err != nil {
		return nil, err
	}
	return splatnet.ParseSummary(raw)
}

// Stages implements GameSource.
func (s *StoreSource) Stages(ctx context.Context) ([]splatnet.StageRecord, error) {
	data, name, err := s.readReserved(ctx, StagesFile)
	if err != nil || data == nil {
		return nil, err
	}
	raw, err := s.decoder.Decompress(name, data)
	if err != nil {
		return nil, err
	}

	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	stages := make([]splatnet.StageRecord, 0, len(entries))
	for i, e := range entries {
		id, _ := e["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("decode %s: stage %d has no id", name, i)
		}
		stages = append(stages, splatnet.StageRecord{ID: id, Data: e})
	}
	return stages, nil
}

// readReserved returns the plain or compressed copy of name, or nil data
// when neither exists.
func (s *StoreSource) readReserved(ctx context.Context, name string) ([]byte, string, error) {
	for _, key := range []string{name, name + ".zst"} {
		data, err := s.store.Read(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", key, err)
		}
		return data, key, nil
	}
	return nil, "", nil
}

// Close implements GameSource.
func (s *StoreSource) Close() error {
	s.decoder.Close()
	return s.store.Close()
}

var _ GameSource = (*StoreSource)(nil)
