// Package splatnet models the battle and job records returned by the
// SplatNet 3 API. Field names follow the upstream GraphQL responses.
package splatnet

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// Kind tags a Game as a versus battle or a Salmon Run job.
type Kind string

const (
	KindVs   Kind = "VsInfo"
	KindCoop Kind = "CoopInfo"
)

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	return k == KindVs || k == KindCoop
}

// ErrUnknownKind is returned when a record's type tag is not recognised.
var ErrUnknownKind = errors.New("unknown record kind")

// Game is one fetched record. Exactly one of Vs and Coop is set, matching Type.
// Raw and RawDetail keep the upstream bytes so destinations can store the
// record verbatim.
type Game struct {
	Type Kind
	Vs   *VsInfo
	Coop *CoopInfo

	Raw       json.RawMessage
	RawDetail json.RawMessage
}

// VsInfo is a versus battle with the list context it was fetched from.
type VsInfo struct {
	Type                  Kind            `json:"type"`
	ListNode              json.RawMessage `json:"listNode,omitempty"`
	BankaraMatchChallenge json.RawMessage `json:"bankaraMatchChallenge,omitempty"`
	ChallengeProgress     json.RawMessage `json:"challengeProgress,omitempty"`
	GroupInfo             json.RawMessage `json:"groupInfo,omitempty"`
	RankState             json.RawMessage `json:"rankState,omitempty"`
	RankBeforeState       json.RawMessage `json:"rankBeforeState,omitempty"`
	Detail                VsHistoryDetail `json:"detail"`
}

// CoopInfo is a Salmon Run job.
type CoopInfo struct {
	Type      Kind              `json:"type"`
	ListNode  json.RawMessage   `json:"listNode,omitempty"`
	GroupInfo json.RawMessage   `json:"groupInfo,omitempty"`
	Detail    CoopHistoryDetail `json:"detail"`
}

// ParseGame decodes a record from its JSON representation.
func ParseGame(data []byte) (*Game, error) {
	var envelope struct {
		Type   Kind            `json:"type"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode game envelope: %w", err)
	}
	if len(envelope.Detail) == 0 {
		return nil, fmt.Errorf("decode game: missing detail")
	}

	g := &Game{
		Type:      envelope.Type,
		Raw:       append(json.RawMessage(nil), data...),
		RawDetail: append(json.RawMessage(nil), envelope.Detail...),
	}

	switch envelope.Type {
	case KindVs:
		var vs VsInfo
		if err := json.Unmarshal(data, &vs); err != nil {
			return nil, fmt.Errorf("decode VsInfo: %w", err)
		}
		g.Vs = &vs
	case KindCoop:
		var coop CoopInfo
		if err := json.Unmarshal(data, &coop); err != nil {
			return nil, fmt.Errorf("decode CoopInfo: %w", err)
		}
		g.Coop = &coop
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, envelope.Type)
	}
	return g, nil
}

// MarshalJSON returns the original bytes when present.
func (g *Game) MarshalJSON() ([]byte, error) {
	if len(g.Raw) > 0 {
		return g.Raw, nil
	}
	switch g.Type {
	case KindVs:
		return json.Marshal(g.Vs)
	case KindCoop:
		return json.Marshal(g.Coop)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, g.Type)
}

// ID returns the opaque detail id of the record.
func (g *Game) ID() string {
	switch {
	case g.Vs != nil:
		return g.Vs.Detail.ID
	case g.Coop != nil:
		return g.Coop.Detail.ID
	}
	return ""
}

// PlayedTime returns the wire timestamp of the record.
func (g *Game) PlayedTime() string {
	switch {
	case g.Vs != nil:
		return g.Vs.Detail.PlayedTime
	case g.Coop != nil:
		return g.Coop.Detail.PlayedTime
	}
	return ""
}
