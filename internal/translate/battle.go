package translate

// Battle is the Splashcat upload shape. Strings use the en-US locale; ids are
// decoded from SplatNet's opaque encoding. Mode blocks are nil unless the
// battle was played in that mode.
type Battle struct {
	SplatnetID string   `json:"splatnetId" msgpack:"splatnetId"`
	Duration   int      `json:"duration" msgpack:"duration"`
	Judgement  string   `json:"judgement" msgpack:"judgement"`
	Knockout   *string  `json:"knockout,omitempty" msgpack:"knockout,omitempty"`
	PlayedTime string   `json:"playedTime" msgpack:"playedTime"`
	VsMode     string   `json:"vsMode" msgpack:"vsMode"`
	VsRule     string   `json:"vsRule" msgpack:"vsRule"`
	VsStageID  int      `json:"vsStageId" msgpack:"vsStageId"`
	Teams      []Team   `json:"teams" msgpack:"teams"`
	Awards     []string `json:"awards" msgpack:"awards"`

	Anarchy   *Anarchy   `json:"anarchy,omitempty" msgpack:"anarchy,omitempty"`
	Splatfest *Splatfest `json:"splatfest,omitempty" msgpack:"splatfest,omitempty"`
	XBattle   *XBattle   `json:"xBattle,omitempty" msgpack:"xBattle,omitempty"`
	Challenge *Challenge `json:"challenge,omitempty" msgpack:"challenge,omitempty"`
}

type Anarchy struct {
	Mode        *string  `json:"mode,omitempty" msgpack:"mode,omitempty"` // SERIES | OPEN
	PointChange *int     `json:"pointChange,omitempty" msgpack:"pointChange,omitempty"`
	Power       *float64 `json:"power,omitempty" msgpack:"power,omitempty"`
}

type Splatfest struct {
	CloutMultiplier *string  `json:"cloutMultiplier,omitempty" msgpack:"cloutMultiplier,omitempty"` // NONE | DECUPLE | DRAGON | DOUBLE_DRAGON
	Mode            *string  `json:"mode,omitempty" msgpack:"mode,omitempty"`                       // OPEN | PRO
	Power           *float64 `json:"power,omitempty" msgpack:"power,omitempty"`
}

type XBattle struct {
	XPower *float64 `json:"xPower,omitempty" msgpack:"xPower,omitempty"`
	XRank  *int     `json:"xRank,omitempty" msgpack:"xRank,omitempty"`
}

type Challenge struct {
	ID    *string  `json:"id,omitempty" msgpack:"id,omitempty"`
	Power *float64 `json:"power,omitempty" msgpack:"power,omitempty"`
}

type Color struct {
	R float64 `json:"r" msgpack:"r"`
	G float64 `json:"g" msgpack:"g"`
	B float64 `json:"b" msgpack:"b"`
	A float64 `json:"a" msgpack:"a"`
}

type Team struct {
	Players   []Player `json:"players" msgpack:"players"`
	Color     Color    `json:"color" msgpack:"color"`
	IsMyTeam  bool     `json:"isMyTeam" msgpack:"isMyTeam"`
	Judgement *string  `json:"judgement,omitempty" msgpack:"judgement,omitempty"`
	Order     int      `json:"order" msgpack:"order"`

	Score                *int     `json:"score,omitempty" msgpack:"score,omitempty"`
	PaintRatio           *float64 `json:"paintRatio,omitempty" msgpack:"paintRatio,omitempty"`
	Noroshi              *int     `json:"noroshi,omitempty" msgpack:"noroshi,omitempty"`
	TricolorRole         *string  `json:"tricolorRole,omitempty" msgpack:"tricolorRole,omitempty"`
	FestTeamName         *string  `json:"festTeamName,omitempty" msgpack:"festTeamName,omitempty"`
	FestStreakWinCount   *int     `json:"festStreakWinCount,omitempty" msgpack:"festStreakWinCount,omitempty"`
	FestUniformBonusRate *float64 `json:"festUniformBonusRate,omitempty" msgpack:"festUniformBonusRate,omitempty"`
	FestUniformName      *string  `json:"festUniformName,omitempty" msgpack:"festUniformName,omitempty"`
}

// Gear uses en-US names for the gear and its abilities.
type Gear struct {
	Name               string   `json:"name" msgpack:"name"`
	PrimaryAbility     string   `json:"primaryAbility" msgpack:"primaryAbility"`
	SecondaryAbilities []string `json:"secondaryAbilities" msgpack:"secondaryAbilities"`
}

type Player struct {
	Name                  string `json:"name" msgpack:"name"`
	NameID                string `json:"nameId" msgpack:"nameId"`
	NplnID                string `json:"nplnId" msgpack:"nplnId"`
	Title                 string `json:"title" msgpack:"title"`
	Species               string `json:"species" msgpack:"species"`
	WeaponID              int    `json:"weaponId" msgpack:"weaponId"`
	HeadGear              Gear   `json:"headGear" msgpack:"headGear"`
	ClothingGear          Gear   `json:"clothingGear" msgpack:"clothingGear"`
	ShoesGear             Gear   `json:"shoesGear" msgpack:"shoesGear"`
	Badges                []*int `json:"badges" msgpack:"badges"` // BadgeSlots entries, nil for empty
	SplashtagBackgroundID int    `json:"splashtagBackgroundId" msgpack:"splashtagBackgroundId"`
	IsMe                  bool   `json:"isMe" msgpack:"isMe"`
	Disconnected          bool   `json:"disconnected" msgpack:"disconnected"`
	Paint                 int    `json:"paint" msgpack:"paint"`

	Kills      *int `json:"kills,omitempty" msgpack:"kills,omitempty"` // kills include assists, as SplatNet reports them
	Deaths     *int `json:"deaths,omitempty" msgpack:"deaths,omitempty"`
	Assists    *int `json:"assists,omitempty" msgpack:"assists,omitempty"`
	Specials   *int `json:"specials,omitempty" msgpack:"specials,omitempty"`
	NoroshiTry *int `json:"noroshiTry,omitempty" msgpack:"noroshiTry,omitempty"`
}

// UploadBody is the envelope the upload endpoint expects.
type UploadBody struct {
	Battle   *Battle `json:"battle" msgpack:"battle"`
	DataType string  `json:"data_type" msgpack:"data_type"`
}
