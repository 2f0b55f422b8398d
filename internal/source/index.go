package source

import (
	"path"
	"sort"
	"strings"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
)

// Reserved file names next to the records.
const (
	SummaryFile = "summary.json"
	StagesFile  = "stages.json"
)

// GameFile is one indexed record file.
type GameFile struct {
	Key        string // key within the source
	ID         string // raw detail id
	Kind       splatnet.Kind
	PlayedTime string
}

// GameIndex keeps record files ordered by play time.
type GameIndex struct {
	files []GameFile
	byID  map[string]int
}

// NewGameIndex creates an empty index.
func NewGameIndex() *GameIndex {
	return &GameIndex{byID: make(map[string]int)}
}

// Add indexes f. A later file with an already indexed id is ignored.
func (idx *GameIndex) Add(f GameFile) bool {
	if _, ok := idx.byID[f.ID]; ok {
		return false
	}
	idx.byID[f.ID] = len(idx.files)
	idx.files = append(idx.files, f)
	return true
}

// Sort orders the files oldest first. RFC 3339 UTC timestamps sort
// lexically; ids break ties.
func (idx *GameIndex) Sort() {
	sort.Slice(idx.files, func(i, j int) bool {
		a, b := idx.files[i], idx.files[j]
		if a.PlayedTime != b.PlayedTime {
			return a.PlayedTime < b.PlayedTime
		}
		return a.ID < b.ID
	})
	for i, f := range idx.files {
		idx.byID[f.ID] = i
	}
}

// Lookup returns the file holding id.
func (idx *GameIndex) Lookup(id string) (GameFile, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return GameFile{}, false
	}
	return idx.files[i], true
}

// IDs returns the ids of kind in index order.
func (idx *GameIndex) IDs(kind splatnet.Kind) []string {
	var ids []string
	for _, f := range idx.files {
		if f.Kind == kind {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

// Count returns the number of indexed files.
func (idx *GameIndex) Count() int {
	return len(idx.files)
}

// isReserved reports whether key names a non-record file.
func isReserved(key string) bool {
	base := strings.TrimSuffix(path.Base(key), ".zst")
	return base == SummaryFile || base == StagesFile
}
