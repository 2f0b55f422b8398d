package metadata

import "time"

// RunInfo describes one invocation of an export command.
type RunInfo struct {
	RunID           string
	Command         string // export | resend | backfill-game-ids
	Exporters       []string
	SourceLocation  string
	ProducerVersion string
	StartedAt       time.Time
}

// Export statuses recorded in the ledger.
const (
	StatusSuccess = "success"
	StatusSkip    = "skip"
	StatusError   = "error"
)

// ExportRecord is one record outcome at one destination.
type ExportRecord struct {
	RunID    string
	Exporter string
	Kind     string // VsInfo | CoopInfo
	GameID   string // current lineage; empty when it could not be derived
	RawID    string
	Status   string
	Locator  string
	Reason   string // skip reason or error message
}

// RunCounts summarises the outcomes of a run per status.
type RunCounts map[string]int64
