package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadLegacyProfileKeys(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeProfile(t, `
mongoDbUri: mongodb://localhost:27017
splashcatApiKey: key-123
exporters: [mongodb, splashcat]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "key-123", cfg.Splashcat.APIKey)
	assert.Equal(t, "splashcat", cfg.Mongo.Database)
	assert.True(t, cfg.Has("splashcat"))
	assert.False(t, cfg.Has("archive"))
}

func TestLoadNestedProfile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeProfile(t, `
exporters: [archive]
archive:
  backend: s3
  bucket: battles
  prefix: s3si/
logging:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Archive.Backend)
	assert.Equal(t, "battles", cfg.Archive.Bucket)
	assert.Equal(t, "s3si/", cfg.Archive.Prefix)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvOverridesProfile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeProfile(t, "mongoDbUri: mongodb://profile\n")
	t.Setenv("MONGODB_URI", "mongodb://env")
	t.Setenv("EXPORTERS", "mongodb, archive")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://env", cfg.Mongo.URI)
	assert.Equal(t, []string{"mongodb", "archive"}, cfg.Exporters)
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SPLASHCAT_API_KEY=from-dotenv\nEXPORTERS=splashcat\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("SPLASHCAT_API_KEY")
		os.Unsetenv("EXPORTERS")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Splashcat.APIKey)
}

func TestMissingProfileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MONGODB_URI", "mongodb://localhost")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mongodb"}, cfg.Exporters)
	assert.Equal(t, "errored-games.json", cfg.Report.Path)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "mongodb without uri")

	cfg.Exporters = []string{"archive"}
	assert.NoError(t, cfg.Validate())

	cfg.Archive.Backend = "gcs"
	assert.Error(t, cfg.Validate())

	cfg.Exporters = []string{"ftp"}
	assert.Error(t, cfg.Validate())
}
