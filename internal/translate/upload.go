package translate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatid"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
)

// BadgeSlots is the number of badge slots on a nameplate.
const BadgeSlots = 3

// DataTypeSplashcat tags an UploadBody holding a translated battle.
const DataTypeSplashcat = "splashcat"

// festProModeID is the decoded vsMode id of Splatfest Pro battles.
const festProModeID = 7

// CanonicalMode maps SplatNet mode names to the names the upload service uses.
func CanonicalMode(mode string) string {
	if mode == "LEAGUE" {
		return "CHALLENGE"
	}
	return mode
}

// ToUploadBattle translates a versus record into the upload service's
// battle shape. Job records return ErrUnsupportedRecordKind.
func ToUploadBattle(game *splatnet.Game) (*UploadBody, error) {
	if game == nil || game.Type != splatnet.KindVs || game.Vs == nil {
		return nil, ErrUnsupportedRecordKind
	}
	d := &game.Vs.Detail

	if findSelf(d.MyTeam) < 0 {
		return nil, ErrSelfNotFound
	}
	if len(d.OtherTeams) == 0 {
		return nil, ErrEmptyOpponentTeams
	}

	stageID, err := splatid.NumericID(d.VsStage.ID)
	if err != nil {
		return nil, fmt.Errorf("vsStage.id: %w", err)
	}

	splatnetID, err := splatid.CurrentGameID(d.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	played, err := time.Parse(time.RFC3339, d.PlayedTime)
	if err != nil {
		return nil, fmt.Errorf("playedTime %q: %w", d.PlayedTime, err)
	}

	b := &Battle{
		SplatnetID: splatnetID,
		Duration:   d.Duration,
		Judgement:  d.Judgement,
		Knockout:   d.Knockout,
		PlayedTime: played.UTC().Format("2006-01-02T15:04:05.000Z"),
		VsMode:     CanonicalMode(d.VsMode.Mode),
		VsRule:     d.VsRule.Rule,
		VsStageID:  stageID,
		Awards:     make([]string, 0, len(d.Awards)),
	}
	for _, a := range d.Awards {
		b.Awards = append(b.Awards, a.Name)
	}

	if err := fillModeBlock(b, d); err != nil {
		return nil, err
	}

	teams := append([]splatnet.VsTeam{d.MyTeam}, d.OtherTeams...)
	b.Teams = make([]Team, 0, len(teams))
	for i, t := range teams {
		team, err := mapTeam(t)
		if err != nil {
			return nil, fmt.Errorf("teams[%d]: %w", i, err)
		}
		b.Teams = append(b.Teams, team)
	}

	return &UploadBody{Battle: b, DataType: DataTypeSplashcat}, nil
}

func findSelf(t splatnet.VsTeam) int {
	for i, p := range t.Players {
		if p.IsMyself {
			return i
		}
	}
	return -1
}

// fillModeBlock sets at most one of the mode-specific blocks.
func fillModeBlock(b *Battle, d *splatnet.VsHistoryDetail) error {
	switch d.VsMode.Mode {
	case "BANKARA":
		a := &Anarchy{}
		if m := d.BankaraMatch; m != nil {
			if m.Mode != "" {
				mode := "SERIES"
				if m.Mode == "OPEN" {
					mode = "OPEN"
				}
				a.Mode = &mode
			}
			a.PointChange = m.EarnedUdemaePoint
			if m.BankaraPower != nil {
				a.Power = m.BankaraPower.Power
			}
		}
		b.Anarchy = a

	case "FEST":
		modeID, err := splatid.NumericID(d.VsMode.ID)
		if err != nil {
			return fmt.Errorf("vsMode.id: %w", err)
		}
		mode := "OPEN"
		if modeID == festProModeID {
			mode = "PRO"
		}
		s := &Splatfest{Mode: &mode}
		if m := d.FestMatch; m != nil {
			clout := m.DragonMatchType
			if clout == "NORMAL" {
				clout = "NONE"
			}
			if clout != "" {
				s.CloutMultiplier = &clout
			}
			s.Power = m.MyFestPower
		}
		b.Splatfest = s

	case "X_MATCH":
		x := &XBattle{}
		if d.XMatch != nil {
			x.XPower = d.XMatch.LastXPower
		}
		b.XBattle = x

	case "LEAGUE":
		c := &Challenge{}
		if m := d.LeagueMatch; m != nil {
			if m.LeagueMatchEvent != nil {
				id, err := splatid.DashTail(m.LeagueMatchEvent.ID)
				if err != nil {
					return fmt.Errorf("leagueMatch.leagueMatchEvent.id: %w", err)
				}
				c.ID = &id
			}
			c.Power = m.MyLeaguePower
		}
		b.Challenge = c
	}
	return nil
}

func mapTeam(t splatnet.VsTeam) (Team, error) {
	team := Team{
		Color:                Color(t.Color),
		IsMyTeam:             findSelf(t) >= 0,
		Order:                t.Order,
		TricolorRole:         t.TricolorRole,
		FestTeamName:         t.FestTeamName,
		FestStreakWinCount:   t.FestStreakWinCount,
		FestUniformBonusRate: t.FestUniformBonusRate,
		FestUniformName:      t.FestUniformName,
		Players:              make([]Player, 0, len(t.Players)),
	}
	if t.Judgement != "" {
		j := t.Judgement
		team.Judgement = &j
	}
	if r := t.Result; r != nil {
		team.Score = r.Score
		team.PaintRatio = r.PaintRatio
		team.Noroshi = r.Noroshi
	}

	for i, p := range t.Players {
		player, err := mapPlayer(p)
		if err != nil {
			return Team{}, fmt.Errorf("players[%d]: %w", i, err)
		}
		team.Players = append(team.Players, player)
	}
	return team, nil
}

func mapPlayer(p splatnet.VsPlayer) (Player, error) {
	nplnID, err := splatid.TrailingID(p.ID)
	if err != nil {
		return Player{}, fmt.Errorf("id: %w", err)
	}
	weaponID, err := splatid.NumericID(p.Weapon.ID)
	if err != nil {
		return Player{}, fmt.Errorf("weapon.id: %w", err)
	}

	out := Player{
		Name:         p.Name,
		NplnID:       nplnID,
		Title:        p.Byname,
		Species:      p.Species,
		WeaponID:     weaponID,
		HeadGear:     mapGear(p.HeadGear),
		ClothingGear: mapGear(p.ClothingGear),
		ShoesGear:    mapGear(p.ShoesGear),
		Badges:       make([]*int, BadgeSlots),
		IsMe:         p.IsMyself,
		Disconnected: p.Result == nil,
		Paint:        p.Paint,
	}
	if p.NameID != nil {
		out.NameID = *p.NameID
	}

	if np := p.Nameplate; np != nil {
		for i, badge := range np.Badges {
			if i >= BadgeSlots {
				break
			}
			if badge == nil || badge.ID == "" {
				continue
			}
			n, err := splatid.NumericID(badge.ID)
			if err != nil {
				return Player{}, fmt.Errorf("nameplate.badges[%d].id: %w", i, err)
			}
			out.Badges[i] = &n
		}
		bg, err := splatid.NumericID(np.Background.ID)
		if err != nil {
			return Player{}, fmt.Errorf("nameplate.background.id: %w", err)
		}
		out.SplashtagBackgroundID = bg
	}

	if r := p.Result; r != nil {
		kill, death, assist, special := r.Kill, r.Death, r.Assist, r.Special
		out.Kills = &kill
		out.Deaths = &death
		out.Assists = &assist
		out.Specials = &special
		out.NoroshiTry = r.NoroshiTry
	}
	return out, nil
}

func mapGear(g splatnet.PlayerGear) Gear {
	out := Gear{
		Name:               g.Name,
		PrimaryAbility:     g.PrimaryGearPower.Name,
		SecondaryAbilities: make([]string, 0, len(g.AdditionalGearPowers)),
	}
	for _, gp := range g.AdditionalGearPowers {
		out.SecondaryAbilities = append(out.SecondaryAbilities, gp.Name)
	}
	return out
}

// HexColor packs float channels in [0, 1] into an "rrggbbaa" string.
func HexColor(c splatnet.Color) string {
	return channel(c.R) + channel(c.G) + channel(c.B) + channel(c.A)
}

func channel(v float64) string {
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	s := strconv.FormatInt(int64(v*255+0.5), 16)
	if len(s) < 2 {
		s = "0" + s
	}
	return s
}
