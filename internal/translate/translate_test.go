package translate

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatid"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet/splatnettest"
)

const battleUUID = "4f87f8e5-7d1f-4b7a-9c52-2b7a3c1e9d0a"

func TestToStorageDocument(t *testing.T) {
	g := splatnettest.VsGame(splatnettest.VsDetail(battleUUID, "REGULAR"))
	now := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)

	doc, err := ToStorageDocument(g, ToolVersion{NsoVersion: "2.5.0", AgentVersion: "s3si.ts/0.3.1", ExporterVersion: "0.1.0"}, now)
	require.NoError(t, err)

	assert.Equal(t, "20230215T032110_"+battleUUID, doc.GameID)
	assert.Equal(t, now, doc.ExportMetadata.ExportDate)
	assert.Equal(t, "2.5.0", doc.ExportMetadata.NsoVersion)
	assert.Equal(t, "VsInfo", doc.Data["type"])
	assert.Equal(t, time.Date(2023, 2, 15, 3, 21, 10, 0, time.UTC), doc.NormalizedDetail["playedTime"])
	assert.Equal(t, g.ID(), doc.NormalizedDetail["id"])

	// raw record is untouched
	detail := doc.Data["detail"].(map[string]any)
	assert.Equal(t, splatnettest.PlayedTime, detail["playedTime"])
}

func TestToStorageDocumentCoop(t *testing.T) {
	g := splatnettest.CoopGame("0a1b2c3d-4e5f-6789-abcd-ef0123456789")
	doc, err := ToStorageDocument(g, ToolVersion{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "20230215T041500_0a1b2c3d-4e5f-6789-abcd-ef0123456789", doc.GameID)
	assert.Equal(t, "CoopInfo", doc.Data["type"])
}

func TestToStorageDocumentBadTimestamp(t *testing.T) {
	d := splatnettest.VsDetail(battleUUID, "REGULAR")
	d.PlayedTime = "yesterday"
	_, err := ToStorageDocument(splatnettest.VsGame(d), ToolVersion{}, time.Now())
	assert.Error(t, err)
}

func TestToUploadBattleBase(t *testing.T) {
	g := splatnettest.VsGame(splatnettest.VsDetail(battleUUID, "REGULAR"))

	body, err := ToUploadBattle(g)
	require.NoError(t, err)
	assert.Equal(t, DataTypeSplashcat, body.DataType)

	b := body.Battle
	assert.Equal(t, "20230215T032110_"+battleUUID, b.SplatnetID)
	assert.Equal(t, 12, b.VsStageID)
	assert.Equal(t, "AREA", b.VsRule)
	assert.Equal(t, "REGULAR", b.VsMode)
	assert.Equal(t, "2023-02-15T03:21:10.000Z", b.PlayedTime)
	assert.Equal(t, []string{"#1 Splatter", "Top Base Painter"}, b.Awards)

	require.Len(t, b.Teams, 2)
	assert.True(t, b.Teams[0].IsMyTeam)
	assert.False(t, b.Teams[1].IsMyTeam)
	require.NotNil(t, b.Teams[1].Judgement)
	assert.Equal(t, "LOSE", *b.Teams[1].Judgement)

	me := b.Teams[0].Players[0]
	assert.True(t, me.IsMe)
	assert.Equal(t, "u-me", me.NplnID)
	assert.Equal(t, 40, me.WeaponID)
	assert.Equal(t, 1, me.SplashtagBackgroundID)
	assert.Equal(t, "Fresh Splatlandian", me.Title)
	assert.False(t, me.Disconnected)
	require.Len(t, me.Badges, BadgeSlots)
	assert.Equal(t, 5000010, *me.Badges[0])
	assert.Nil(t, me.Badges[1])
	assert.Equal(t, 1010000, *me.Badges[2])
	assert.Equal(t, Gear{Name: "Basic Tee", PrimaryAbility: "Ink Saver (Main)", SecondaryAbilities: []string{"Run Speed Up", "Unknown"}}, me.ClothingGear)
	assert.Equal(t, 7, *me.Kills)
}

func TestToUploadBattleModeBlocks(t *testing.T) {
	tests := []struct {
		mode     string
		wantMode string
		check    func(t *testing.T, b *Battle)
	}{
		{"REGULAR", "REGULAR", func(t *testing.T, b *Battle) {}},
		{"PRIVATE", "PRIVATE", func(t *testing.T, b *Battle) {}},
		{"BANKARA", "BANKARA", func(t *testing.T, b *Battle) {
			require.NotNil(t, b.Anarchy)
			assert.Equal(t, "SERIES", *b.Anarchy.Mode)
			assert.Equal(t, 8, *b.Anarchy.PointChange)
			assert.Equal(t, 1850.5, *b.Anarchy.Power)
		}},
		{"FEST", "FEST", func(t *testing.T, b *Battle) {
			require.NotNil(t, b.Splatfest)
			assert.Equal(t, "PRO", *b.Splatfest.Mode)
			assert.Equal(t, "NONE", *b.Splatfest.CloutMultiplier)
		}},
		{"X_MATCH", "X_MATCH", func(t *testing.T, b *Battle) {
			require.NotNil(t, b.XBattle)
			assert.Equal(t, 2400.1, *b.XBattle.XPower)
		}},
		{"LEAGUE", "CHALLENGE", func(t *testing.T, b *Battle) {
			require.NotNil(t, b.Challenge)
			assert.Equal(t, "PairCup", *b.Challenge.ID)
			assert.Equal(t, 1700.0, *b.Challenge.Power)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			body, err := ToUploadBattle(splatnettest.VsGame(splatnettest.VsDetail(battleUUID, tt.mode)))
			require.NoError(t, err)
			b := body.Battle
			assert.Equal(t, tt.wantMode, b.VsMode)

			set := 0
			for _, present := range []bool{b.Anarchy != nil, b.Splatfest != nil, b.XBattle != nil, b.Challenge != nil} {
				if present {
					set++
				}
			}
			if tt.mode == "REGULAR" || tt.mode == "PRIVATE" {
				assert.Zero(t, set)
			} else {
				assert.Equal(t, 1, set)
			}
			tt.check(t, b)
		})
	}
}

func TestToUploadBattleAnarchyOpen(t *testing.T) {
	d := splatnettest.VsDetail(battleUUID, "BANKARA")
	d.BankaraMatch.Mode = "OPEN"
	body, err := ToUploadBattle(splatnettest.VsGame(d))
	require.NoError(t, err)
	assert.Equal(t, "OPEN", *body.Battle.Anarchy.Mode)
}

func TestToUploadBattleAnarchyWithoutMode(t *testing.T) {
	d := splatnettest.VsDetail(battleUUID, "BANKARA")
	d.BankaraMatch.Mode = ""
	body, err := ToUploadBattle(splatnettest.VsGame(d))
	require.NoError(t, err)
	require.NotNil(t, body.Battle.Anarchy)
	assert.Nil(t, body.Battle.Anarchy.Mode)
	assert.Equal(t, 8, *body.Battle.Anarchy.PointChange)
}

func TestToUploadBattleFestOpen(t *testing.T) {
	d := splatnettest.VsDetail(battleUUID, "FEST")
	d.VsMode.ID = splatnettest.B64("VsMode-6")
	d.FestMatch.DragonMatchType = "DECUPLE"
	body, err := ToUploadBattle(splatnettest.VsGame(d))
	require.NoError(t, err)
	assert.Equal(t, "OPEN", *body.Battle.Splatfest.Mode)
	assert.Equal(t, "DECUPLE", *body.Battle.Splatfest.CloutMultiplier)
}

func TestToUploadBattleOmitsAbsentModeBlocks(t *testing.T) {
	body, err := ToUploadBattle(splatnettest.VsGame(splatnettest.VsDetail(battleUUID, "X_MATCH")))
	require.NoError(t, err)

	data, err := json.Marshal(body.Battle)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "xBattle")
	assert.NotContains(t, m, "anarchy")
	assert.NotContains(t, m, "splatfest")
	assert.NotContains(t, m, "challenge")

	packed, err := msgpack.Marshal(body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(packed, &decoded))
	battle := decoded["battle"].(map[string]any)
	assert.NotContains(t, battle, "anarchy")
	assert.Equal(t, "splashcat", decoded["data_type"])
}

func TestToUploadBattleErrors(t *testing.T) {
	t.Run("coop", func(t *testing.T) {
		_, err := ToUploadBattle(splatnettest.CoopGame("0a1b2c3d-4e5f-6789-abcd-ef0123456789"))
		assert.ErrorIs(t, err, ErrUnsupportedRecordKind)
	})
	t.Run("no self", func(t *testing.T) {
		d := splatnettest.VsDetail(battleUUID, "REGULAR")
		d.MyTeam.Players[0].IsMyself = false
		_, err := ToUploadBattle(splatnettest.VsGame(d))
		assert.ErrorIs(t, err, ErrSelfNotFound)
	})
	t.Run("no opponents", func(t *testing.T) {
		d := splatnettest.VsDetail(battleUUID, "REGULAR")
		d.OtherTeams = []splatnet.VsTeam{}
		_, err := ToUploadBattle(splatnettest.VsGame(d))
		assert.ErrorIs(t, err, ErrEmptyOpponentTeams)
	})
	t.Run("bad weapon id", func(t *testing.T) {
		d := splatnettest.VsDetail(battleUUID, "REGULAR")
		d.OtherTeams[0].Players[0].Weapon.ID = splatnettest.B64("Weapon-abc")
		body, err := ToUploadBattle(splatnettest.VsGame(d))
		assert.Nil(t, body)
		assert.ErrorIs(t, err, splatid.ErrMalformedIdentifier)
		assert.Contains(t, err.Error(), "teams[1].players[0].weapon.id")
	})
	t.Run("bad battle id", func(t *testing.T) {
		d := splatnettest.VsDetail(battleUUID, "REGULAR")
		d.ID = splatnettest.B64("VsHistoryDetail-no-colon")
		body, err := ToUploadBattle(splatnettest.VsGame(d))
		assert.Nil(t, body)
		assert.ErrorIs(t, err, splatid.ErrMalformedIdentifier)
		assert.Contains(t, err.Error(), "id:")
	})
	t.Run("bad fest mode id", func(t *testing.T) {
		d := splatnettest.VsDetail(battleUUID, "FEST")
		d.VsMode.ID = splatnettest.B64("VsMode-pro")
		_, err := ToUploadBattle(splatnettest.VsGame(d))
		assert.ErrorIs(t, err, splatid.ErrMalformedIdentifier)
		assert.Contains(t, err.Error(), "vsMode.id")
	})
	t.Run("bad stage id", func(t *testing.T) {
		d := splatnettest.VsDetail(battleUUID, "REGULAR")
		d.VsStage.ID = "!!!"
		_, err := ToUploadBattle(splatnettest.VsGame(d))
		assert.ErrorIs(t, err, splatid.ErrMalformedIdentifier)
	})
}

func TestToUploadBattleDisconnectedPlayer(t *testing.T) {
	d := splatnettest.VsDetail(battleUUID, "REGULAR")
	d.OtherTeams[0].Players[0].Result = nil
	d.OtherTeams[0].Players[0].Nameplate = nil

	body, err := ToUploadBattle(splatnettest.VsGame(d))
	require.NoError(t, err)
	p := body.Battle.Teams[1].Players[0]
	assert.True(t, p.Disconnected)
	assert.Nil(t, p.Kills)
	assert.Equal(t, []*int{nil, nil, nil}, p.Badges)
}

func TestHexColor(t *testing.T) {
	assert.Equal(t, "ff0080ff", HexColor(splatnet.Color{R: 1, G: 0, B: 0.5, A: 1}))
	assert.Equal(t, "00000000", HexColor(splatnet.Color{R: -1}))
}
