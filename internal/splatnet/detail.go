package splatnet

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Image is an asset reference.
type Image struct {
	URL    string `json:"url"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
}

// VsHistoryDetail is the response body of VsHistoryDetailQuery.
type VsHistoryDetail struct {
	ID         string   `json:"id"`
	VsRule     VsRule   `json:"vsRule"`
	VsMode     VsMode   `json:"vsMode"`
	VsStage    VsStage  `json:"vsStage"`
	PlayedTime string   `json:"playedTime"`
	Duration   int      `json:"duration"`
	Judgement  string   `json:"judgement"` // WIN | LOSE | DRAW | EXEMPTED_LOSE | DEEMED_LOSE
	Knockout   *string  `json:"knockout"`  // NEITHER | WIN | LOSE
	MyTeam     VsTeam   `json:"myTeam"`
	OtherTeams []VsTeam `json:"otherTeams"`
	Awards     []Award  `json:"awards"`

	BankaraMatch *BankaraMatch `json:"bankaraMatch"`
	FestMatch    *FestMatch    `json:"festMatch"`
	XMatch       *XMatch       `json:"xMatch"`
	LeagueMatch  *LeagueMatch  `json:"leagueMatch"`
}

// VsRule is the battle rule; Rule is one of TURF_WAR, AREA, LOFT, GOAL, CLAM, TRI_COLOR.
type VsRule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rule string `json:"rule"`
}

// VsMode is the battle mode; Mode is one of REGULAR, BANKARA, X_MATCH, LEAGUE, PRIVATE, FEST.
type VsMode struct {
	ID   string `json:"id"`
	Mode string `json:"mode"`
}

type VsStage struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image Image  `json:"image"`
}

type Award struct {
	Name string `json:"name"`
	Rank string `json:"rank"`
}

type BankaraMatch struct {
	EarnedUdemaePoint *int          `json:"earnedUdemaePoint"`
	Mode              string        `json:"mode"` // OPEN | CHALLENGE
	BankaraPower      *BankaraPower `json:"bankaraPower"`
}

type BankaraPower struct {
	Power *float64 `json:"power"`
}

type FestMatch struct {
	DragonMatchType string   `json:"dragonMatchType"` // NORMAL | DECUPLE | DRAGON | DOUBLE_DRAGON
	Contribution    int      `json:"contribution"`
	Jewel           int      `json:"jewel"`
	MyFestPower     *float64 `json:"myFestPower"`
}

type XMatch struct {
	LastXPower *float64 `json:"lastXPower"`
}

type LeagueMatch struct {
	LeagueMatchEvent *LeagueMatchEvent `json:"leagueMatchEvent"`
	MyLeaguePower    *float64          `json:"myLeaguePower"`
}

type LeagueMatchEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Color channels are floats in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

type VsTeam struct {
	Color                Color       `json:"color"`
	Judgement            string      `json:"judgement"`
	Order                int         `json:"order"`
	Result               *TeamResult `json:"result"`
	TricolorRole         *string     `json:"tricolorRole"`
	FestTeamName         *string     `json:"festTeamName"`
	FestStreakWinCount   *int        `json:"festStreakWinCount"`
	FestUniformBonusRate *float64    `json:"festUniformBonusRate"`
	FestUniformName      *string     `json:"festUniformName"`
	Players              []VsPlayer  `json:"players"`
}

type TeamResult struct {
	PaintRatio *float64 `json:"paintRatio"`
	Score      *int     `json:"score"`
	Noroshi    *int     `json:"noroshi"`
}

type VsPlayer struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	NameID       *string       `json:"nameId"`
	Byname       string        `json:"byname"`
	IsMyself     bool          `json:"isMyself"`
	Species      string        `json:"species"` // INKLING | OCTOLING
	Paint        int           `json:"paint"`
	Weapon       Weapon        `json:"weapon"`
	HeadGear     PlayerGear    `json:"headGear"`
	ClothingGear PlayerGear    `json:"clothingGear"`
	ShoesGear    PlayerGear    `json:"shoesGear"`
	Nameplate    *Nameplate    `json:"nameplate"`
	Result       *PlayerResult `json:"result"`
	Crown        bool          `json:"crown"`
}

type Weapon struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image Image  `json:"image"`
}

type GearPower struct {
	Name  string `json:"name"`
	Image *Image `json:"image,omitempty"`
}

type PlayerGear struct {
	Name                 string      `json:"name"`
	PrimaryGearPower     GearPower   `json:"primaryGearPower"`
	AdditionalGearPowers []GearPower `json:"additionalGearPowers"`
}

// Nameplate badges may contain JSON null for empty slots.
type Nameplate struct {
	Badges     []*Badge            `json:"badges"`
	Background NameplateBackground `json:"background"`
}

type Badge struct {
	ID    string `json:"id"`
	Image *Image `json:"image,omitempty"`
}

type NameplateBackground struct {
	ID        string `json:"id"`
	TextColor *Color `json:"textColor,omitempty"`
}

// PlayerResult is nil for players who disconnected.
type PlayerResult struct {
	Kill       int  `json:"kill"`
	Death      int  `json:"death"`
	Assist     int  `json:"assist"`
	Special    int  `json:"special"`
	NoroshiTry *int `json:"noroshiTry"`
}

// CoopHistoryDetail is the response body of CoopHistoryDetailQuery. Only the
// fields the exporters read are typed; the rest travels in Game.RawDetail.
type CoopHistoryDetail struct {
	ID          string          `json:"id"`
	PlayedTime  string          `json:"playedTime"`
	Rule        string          `json:"rule"`
	ResultWave  int             `json:"resultWave"`
	CoopStage   json.RawMessage `json:"coopStage,omitempty"`
	DangerRate  float64         `json:"dangerRate"`
	AfterGrade  json.RawMessage `json:"afterGrade,omitempty"`
	MyResult    json.RawMessage `json:"myResult,omitempty"`
	WaveResults json.RawMessage `json:"waveResults,omitempty"`
}

// Summary is the player-level aggregate exported once per run. Data holds
// the upstream body as decoded JSON.
type Summary struct {
	UID  string
	Data map[string]any
}

// ParseSummary decodes a summary body keyed by uid.
func ParseSummary(data []byte) (*Summary, error) {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	uid, _ := body["uid"].(string)
	if uid == "" {
		return nil, fmt.Errorf("decode summary: missing uid")
	}
	return &Summary{UID: uid, Data: body}, nil
}

// StageRecord is one entry of StageRecordQuery, keyed by its opaque id.
type StageRecord struct {
	ID   string
	Data map[string]any
}
