// Package dedup decides which records a destination has not stored yet.
//
// A destination may hold records under more than one key lineage: the
// current game id written by this tool, the legacy id written by older
// versions, and for the oldest documents only the raw SplatNet id. A record
// counts as exported when any applicable lineage key is present.
package dedup

import (
	"context"
	"fmt"
	"sync"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatid"
)

// Lineage names a key derivation.
type Lineage int

const (
	LineageCurrent Lineage = iota
	LineageLegacy
	LineageRaw
)

func (l Lineage) String() string {
	switch l {
	case LineageCurrent:
		return "current"
	case LineageLegacy:
		return "legacy"
	case LineageRaw:
		return "raw"
	default:
		return fmt.Sprintf("lineage(%d)", int(l))
	}
}

// Key derives the lineage key of rawID. ok is false when the lineage does
// not apply to this id.
func (l Lineage) Key(rawID string) (key string, ok bool, err error) {
	switch l {
	case LineageCurrent:
		k, err := splatid.CurrentGameID(rawID)
		if err != nil {
			return "", false, err
		}
		return k, true, nil
	case LineageLegacy:
		k, err := splatid.LegacyGameID(rawID)
		if err != nil {
			return "", false, nil
		}
		return k, true, nil
	case LineageRaw:
		return rawID, true, nil
	}
	return "", false, fmt.Errorf("unknown lineage %s", l)
}

// Keyspace answers membership queries for one destination and record kind.
type Keyspace interface {
	Has(ctx context.Context, lineage Lineage, key string) (bool, error)
}

// KeyspaceFunc adapts a function to Keyspace.
type KeyspaceFunc func(ctx context.Context, lineage Lineage, key string) (bool, error)

func (f KeyspaceFunc) Has(ctx context.Context, lineage Lineage, key string) (bool, error) {
	return f(ctx, lineage, key)
}

// FilterUnexported returns the ids of ids absent from ks under every
// applicable lineage, in input order and without duplicates.
//
// Ids whose current game id cannot be derived are kept so the export step
// reports them. The result is advisory: a record may be written between
// this check and the export.
func FilterUnexported(ctx context.Context, ks Keyspace, lineages []Lineage, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if _, err := splatid.CurrentGameID(id); err != nil {
			out = append(out, id)
			continue
		}

		exported, err := isExported(ctx, ks, lineages, id)
		if err != nil {
			return nil, err
		}
		if !exported {
			out = append(out, id)
		}
	}
	return out, nil
}

func isExported(ctx context.Context, ks Keyspace, lineages []Lineage, id string) (bool, error) {
	for _, l := range lineages {
		key, ok, err := l.Key(id)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		has, err := ks.Has(ctx, l, key)
		if err != nil {
			return false, fmt.Errorf("dedup %s %q: %w", l, key, err)
		}
		if has {
			return true, nil
		}
	}
	return false, nil
}

// Cache is a soft per-run cache shared by the exporters of one run. A nil
// *Cache is valid and caches nothing.
type Cache struct {
	mu        sync.Mutex
	snapshots map[string]map[string]struct{}
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{snapshots: make(map[string]map[string]struct{})}
}

// Snapshot returns the key set stored under name, calling load to fill it on
// first use. Concurrent callers for the same name may each call load; the
// first stored result wins.
func (c *Cache) Snapshot(name string, load func() ([]string, error)) (map[string]struct{}, error) {
	if c != nil {
		c.mu.Lock()
		set, ok := c.snapshots[name]
		c.mu.Unlock()
		if ok {
			return set, nil
		}
	}

	keys, err := load()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	if c == nil {
		return set, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.snapshots[name]; ok {
		return existing, nil
	}
	c.snapshots[name] = set
	return set, nil
}

// Invalidate drops the snapshot stored under name.
func (c *Cache) Invalidate(name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.snapshots, name)
	c.mu.Unlock()
}

// SetKeyspace is a Keyspace over an in-memory key set. Every lineage is
// looked up in the same set.
type SetKeyspace map[string]struct{}

func (s SetKeyspace) Has(_ context.Context, _ Lineage, key string) (bool, error) {
	_, ok := s[key]
	return ok, nil
}
