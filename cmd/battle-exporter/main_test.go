package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/report"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet/splatnettest"
)

type fixture struct {
	srcDir     string
	archiveDir string
	reportPath string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		srcDir:     filepath.Join(root, "export"),
		archiveDir: filepath.Join(root, "archive"),
		reportPath: filepath.Join(root, "errored-games.json"),
	}

	writeGame(t, filepath.Join(f.srcDir, "battles", "a.json"), splatnettest.VsGame(splatnettest.VsDetail("4f87f8e5-1a2b-4c3d-8e9f-0a1b2c3d4e5f", "REGULAR")))
	writeGame(t, filepath.Join(f.srcDir, "jobs", "b.json"), splatnettest.CoopGame("5a98a9f6-2b3c-4d4e-9fa0-1b2c3d4e5f60"))

	t.Setenv("EXPORTERS", "archive")
	t.Setenv("SOURCE_DIR", f.srcDir)
	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("LOCAL_DIR", f.archiveDir)
	t.Setenv("REPORT_PATH", f.reportPath)
	t.Setenv("METRICS_ENABLED", "false")
	return f
}

func writeGame(t *testing.T, path string, game any) {
	t.Helper()
	data, err := json.Marshal(game)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExportToArchive(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, "export")
	require.NoError(t, err)
	assert.Contains(t, out, "exported=2")

	matches, err := filepath.Glob(filepath.Join(f.archiveDir, "splatnet3", "*", "*.json.zst"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	_, err = os.Stat(f.reportPath)
	assert.True(t, os.IsNotExist(err), "no report without failures")

	out, err = run(t, "export")
	require.NoError(t, err)
	assert.Contains(t, out, "exported=0")
	assert.Contains(t, out, "already=2")
}

func TestExportRetryWithoutReport(t *testing.T) {
	newFixture(t)

	_, err := run(t, "export", "--retry")
	require.ErrorIs(t, err, report.ErrNoReport)
}

func TestExportRetryEmptyReport(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, report.New("prev").Save(f.reportPath))

	out, err := run(t, "export", "--retry")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to retry")
}

func TestUnknownExporterFailsConfig(t *testing.T) {
	newFixture(t)
	t.Setenv("EXPORTERS", "archive,ftp")

	_, err := run(t, "export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}

func TestBackfillRequiresMongo(t *testing.T) {
	newFixture(t)
	t.Setenv("MONGODB_URI", "")

	_, err := run(t, "backfill-game-ids")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongodb URI not set")
}
