package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet/splatnettest"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/storage"
)

func vsAt(t *testing.T, uuid, playedTime string) []byte {
	t.Helper()
	d := splatnettest.VsDetail(uuid, "REGULAR")
	d.PlayedTime = playedTime
	data, err := json.Marshal(splatnettest.VsGame(d))
	require.NoError(t, err)
	return data
}

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "battles/b.json", vsAt(t, "bbbb", "2023-02-15T05:00:00Z"))
	writeFile(t, dir, "battles/a.json.zst", compress(t, vsAt(t, "aaaa", "2023-02-15T04:00:00Z")))

	// Export tools wrap records in an envelope.
	wrapped, err := json.Marshal(map[string]any{
		"data":           json.RawMessage(vsAt(t, "cccc", "2023-02-14T23:00:00Z")),
		"exportMetadata": map[string]any{"exportDate": "2023-02-15T06:00:00Z"},
	})
	require.NoError(t, err)
	writeFile(t, dir, "battles/c.json", wrapped)

	coop, err := json.Marshal(splatnettest.CoopGame("dddd"))
	require.NoError(t, err)
	writeFile(t, dir, "jobs/d.json", coop)

	writeFile(t, dir, "battles/broken.json", []byte(`{"type":"VsInfo"}`))
	writeFile(t, dir, "notes.txt", []byte("not a record"))
	writeFile(t, dir, SummaryFile, []byte(`{"uid":"`+splatnettest.UID+`","playHistory":{"rank":"S+"}}`))
	writeFile(t, dir, StagesFile+".zst", compress(t, []byte(`[{"id":"VnNTdGFnZS0x","name":"Scorch Gorge"},{"id":"VnNTdGFnZS0y","name":"Eeltail Alley"}]`)))
	return dir
}

func TestLocalSourceListOrdersByPlayedTime(t *testing.T) {
	src, err := NewLocalSource(seedDir(t))
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	ids, err := src.List(ctx, splatnet.KindVs)
	require.NoError(t, err)
	assert.Equal(t, []string{
		splatnettest.VsID("cccc"),
		splatnettest.VsID("aaaa"),
		splatnettest.VsID("bbbb"),
	}, ids)

	jobs, err := src.List(ctx, splatnet.KindCoop)
	require.NoError(t, err)
	assert.Equal(t, []string{splatnettest.CoopID("dddd")}, jobs)
}

func TestLocalSourceFetch(t *testing.T) {
	src, err := NewLocalSource(seedDir(t))
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	for _, uuid := range []string{"aaaa", "bbbb", "cccc"} {
		g, err := src.Fetch(ctx, splatnettest.VsID(uuid))
		require.NoError(t, err, uuid)
		assert.Equal(t, splatnet.KindVs, g.Type)
		assert.Equal(t, splatnettest.VsID(uuid), g.ID())
	}

	_, err = src.Fetch(ctx, "missing")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestLocalSourceSummaryAndStages(t *testing.T) {
	src, err := NewLocalSource(seedDir(t))
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	summary, err := src.Summary(ctx)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, splatnettest.UID, summary.UID)

	stages, err := src.Stages(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "VnNTdGFnZS0x", stages[0].ID)
	assert.Equal(t, "Eeltail Alley", stages[1].Data["name"])
}

func TestLocalSourceWithoutExtras(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "battles/a.json", vsAt(t, "aaaa", splatnettest.PlayedTime))

	src, err := NewLocalSource(dir)
	require.NoError(t, err)
	defer src.Close()

	summary, err := src.Summary(context.Background())
	require.NoError(t, err)
	assert.Nil(t, summary)

	stages, err := src.Stages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stages)
}

func TestLocalSourceRejectsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file", []byte("x"))

	_, err := NewLocalSource(filepath.Join(dir, "file"))
	assert.Error(t, err)

	_, err = NewLocalSource(filepath.Join(dir, "absent"))
	assert.Error(t, err)
}

func TestStoreSourceOverBucket(t *testing.T) {
	ctx := context.Background()
	store := storage.NewBucketStore(memblob.OpenBucket(nil), "mem://records", "export/")
	require.NoError(t, store.Write(ctx, "battles/a.json.zst", compress(t, vsAt(t, "aaaa", splatnettest.PlayedTime))))

	src, err := NewStoreSource(store)
	require.NoError(t, err)
	defer src.Close()

	ids, err := src.List(ctx, splatnet.KindVs)
	require.NoError(t, err)
	require.Equal(t, []string{splatnettest.VsID("aaaa")}, ids)

	g, err := src.Fetch(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, splatnettest.PlayedTime, g.PlayedTime())
}

func TestGameIndexIgnoresDuplicateIDs(t *testing.T) {
	idx := NewGameIndex()
	assert.True(t, idx.Add(GameFile{Key: "a.json", ID: "x", Kind: splatnet.KindVs, PlayedTime: "2023-02-15T04:00:00Z"}))
	assert.False(t, idx.Add(GameFile{Key: "b.json", ID: "x", Kind: splatnet.KindVs, PlayedTime: "2023-02-15T03:00:00Z"}))
	idx.Sort()

	f, ok := idx.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, "a.json", f.Key)
	assert.Equal(t, 1, idx.Count())
}

func TestIsReserved(t *testing.T) {
	assert.True(t, isReserved("summary.json"))
	assert.True(t, isReserved("stages.json.zst"))
	assert.False(t, isReserved("battles/summary-1.json"))
}
