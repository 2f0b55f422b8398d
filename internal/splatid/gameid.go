package splatid

import (
	"fmt"
	"regexp"
)

var (
	vsDetailRE   = regexp.MustCompile(`^VsHistoryDetail-([a-z0-9-]+):(\w+):(\d{8}T\d{6})_([0-9a-f-]{36})$`)
	coopDetailRE = regexp.MustCompile(`^CoopHistoryDetail-([a-z0-9-]+):(\d{8}T\d{6})_([0-9a-f-]{36})$`)
)

// HistoryDetailID is the structured layout of a history detail id.
type HistoryDetailID struct {
	Kind      string // "VsHistoryDetail" | "CoopHistoryDetail"
	UID       string
	ListType  string // versus only
	Timestamp string // yyyymmddThhmmss
	UUID      string
}

// ParseHistoryDetailID parses the structured layout. rawID may be the plain
// text or its base64 encoding.
func ParseHistoryDetailID(rawID string) (HistoryDetailID, error) {
	if id, ok := matchHistoryDetail(rawID); ok {
		return id, nil
	}
	text, err := plaintext(rawID)
	if err != nil {
		return HistoryDetailID{}, err
	}
	if id, ok := matchHistoryDetail(text); ok {
		return id, nil
	}
	return HistoryDetailID{}, fmt.Errorf("%w: %q is not a history detail id", ErrMalformedIdentifier, text)
}

func matchHistoryDetail(text string) (HistoryDetailID, bool) {
	if m := vsDetailRE.FindStringSubmatch(text); m != nil {
		return HistoryDetailID{Kind: "VsHistoryDetail", UID: m[1], ListType: m[2], Timestamp: m[3], UUID: m[4]}, true
	}
	if m := coopDetailRE.FindStringSubmatch(text); m != nil {
		return HistoryDetailID{Kind: "CoopHistoryDetail", UID: m[1], Timestamp: m[2], UUID: m[3]}, true
	}
	return HistoryDetailID{}, false
}

// CurrentGameID derives the canonical game id written by every exporter:
// the trailing colon segment of the decoded detail id.
func CurrentGameID(rawID string) (string, error) {
	id, err := TrailingID(rawID)
	if err != nil {
		return "", fmt.Errorf("current game id: %w", err)
	}
	return id, nil
}

// LegacyGameID derives "{uid}_{timestamp}Z", the key older exports were
// stored under. It is only used to recognise those records.
func LegacyGameID(rawID string) (string, error) {
	id, err := ParseHistoryDetailID(rawID)
	if err != nil {
		return "", fmt.Errorf("legacy game id: %w", err)
	}
	return id.UID + "_" + id.Timestamp + "Z", nil
}
