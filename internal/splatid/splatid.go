// Package splatid decodes SplatNet opaque identifiers and derives the
// canonical game ids used as destination keys.
package splatid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrMalformedIdentifier is returned when an opaque id cannot be decoded
// under the requested convention.
var ErrMalformedIdentifier = errors.New("malformed identifier")

// Convention selects how the decoded plaintext of an opaque id is split.
type Convention int

const (
	// Dash is used by entity ids: "VsStage-1", "Weapon-40", "Badge-5000010".
	Dash Convention = iota
	// Colon is used by match, job and player ids; the last segment identifies.
	Colon
)

func (c Convention) String() string {
	switch c {
	case Dash:
		return "dash"
	case Colon:
		return "colon"
	default:
		return fmt.Sprintf("convention(%d)", int(c))
	}
}

func (c Convention) sep() string {
	if c == Colon {
		return ":"
	}
	return "-"
}

// Fields holds the decoded parts of an opaque id.
type Fields struct {
	Plaintext string
	Segments  []string
	Number    int    // Dash only: segment 1 as an integer
	Tail      string // Colon only: last segment, verbatim
}

// Decode base64-decodes id and splits it according to conv.
func Decode(id string, conv Convention) (Fields, error) {
	text, err := plaintext(id)
	if err != nil {
		return Fields{}, err
	}

	segs := strings.Split(text, conv.sep())
	if len(segs) < 2 {
		return Fields{}, fmt.Errorf("%w: %q has no %s separator", ErrMalformedIdentifier, text, conv)
	}

	f := Fields{Plaintext: text, Segments: segs}
	switch conv {
	case Dash:
		n, err := strconv.Atoi(segs[1])
		if err != nil {
			return Fields{}, fmt.Errorf("%w: %q segment %q is not numeric", ErrMalformedIdentifier, text, segs[1])
		}
		f.Number = n
	case Colon:
		f.Tail = segs[len(segs)-1]
		if f.Tail == "" {
			return Fields{}, fmt.Errorf("%w: %q has an empty trailing segment", ErrMalformedIdentifier, text)
		}
	default:
		return Fields{}, fmt.Errorf("%w: unknown convention %s", ErrMalformedIdentifier, conv)
	}
	return f, nil
}

// NumericID returns the dash-convention numeric id of an entity.
func NumericID(id string) (int, error) {
	f, err := Decode(id, Dash)
	if err != nil {
		return 0, err
	}
	return f.Number, nil
}

// TrailingID returns the colon-convention trailing segment.
func TrailingID(id string) (string, error) {
	f, err := Decode(id, Colon)
	if err != nil {
		return "", err
	}
	return f.Tail, nil
}

// DashTail returns the last dash-separated segment without requiring it to be
// numeric. Event ids ("LeagueMatchEvent-PairCup") carry textual tokens.
func DashTail(id string) (string, error) {
	text, err := plaintext(id)
	if err != nil {
		return "", err
	}
	segs := strings.Split(text, "-")
	if len(segs) < 2 || segs[len(segs)-1] == "" {
		return "", fmt.Errorf("%w: %q has no dash tail", ErrMalformedIdentifier, text)
	}
	return segs[len(segs)-1], nil
}

func plaintext(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty id", ErrMalformedIdentifier)
	}
	raw, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(id)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not base64: %v", ErrMalformedIdentifier, id, err)
		}
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: %q does not decode to utf-8", ErrMalformedIdentifier, id)
	}
	return string(raw), nil
}
