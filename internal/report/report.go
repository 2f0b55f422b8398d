// Package report collects the records a run failed to export and persists
// them so a later run can retry exactly those.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// ErrNoReport is returned when no report file exists.
var ErrNoReport = errors.New("no report found")

// Entry is one failed record at one destination.
type Entry struct {
	Exporter string    `json:"exporter"`
	Kind     string    `json:"kind"`
	RawID    string    `json:"id"`
	GameID   string    `json:"gameId,omitempty"`
	Error    string    `json:"error"`
	At       time.Time `json:"at"`
}

// File is the persisted layout.
type File struct {
	RunID     string    `json:"runId"`
	UpdatedAt time.Time `json:"updatedAt"`
	Entries   []Entry   `json:"entries"`
}

// Report is safe for concurrent use by the exporters of one run.
type Report struct {
	mu      sync.Mutex
	runID   string
	entries []Entry
}

// New returns an empty report for runID.
func New(runID string) *Report {
	return &Report{runID: runID}
}

// Add records a failure.
func (r *Report) Add(e Entry) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// Entries returns a copy of the recorded failures.
func (r *Report) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Len returns the number of recorded failures.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Save writes the report to path atomically.
func (r *Report) Save(path string) error {
	f := File{
		RunID:     r.runID,
		UpdatedAt: time.Now().UTC(),
		Entries:   r.Entries(),
	}
	if f.Entries == nil {
		f.Entries = []Entry{}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory %s: %w", dir, err)
		}
	}

	// Write atomically
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write report temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename report file: %w", err)
	}

	return nil
}

// Load reads a report written by Save.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoReport
		}
		return nil, fmt.Errorf("read report file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse report file: %w", err)
	}
	return &f, nil
}

// IDs returns the distinct raw ids of the entries for exporter, or of all
// entries when exporter is empty.
func (f *File) IDs(exporter string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range f.Entries {
		if exporter != "" && e.Exporter != exporter {
			continue
		}
		if _, ok := seen[e.RawID]; ok {
			continue
		}
		seen[e.RawID] = struct{}{}
		ids = append(ids, e.RawID)
	}
	return ids
}
