package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foodgram.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  url: postgres://localhost/foodgram
  max_connections: 10
server:
  addr: ":9000"
  write_timeout: 1m
log:
  level: debug
  format: json
media:
  backend: s3
  url_prefix: /files
  s3:
    bucket: recipes
    region: eu-west-1
    path_style: true
page_size: 12
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/foodgram", cfg.Database.URL)
	assert.Equal(t, 10, cfg.Database.MaxConnections)
	assert.Equal(t, 5, cfg.Database.MaxIdleConnections)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "s3", cfg.Media.Backend)
	assert.Equal(t, "recipes", cfg.Media.Prefix)
	assert.Equal(t, "/files", cfg.Media.URLPrefix)
	assert.Equal(t, "recipes", cfg.Media.S3.Bucket)
	assert.True(t, cfg.Media.S3.PathStyle)
	assert.Equal(t, 12, cfg.PageSize)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [\n"), 0644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestGetConfigPath(t *testing.T) {
	t.Run("environment", func(t *testing.T) {
		t.Setenv(ConfigEnv, "/etc/foodgram/foodgram.yaml")
		assert.Equal(t, "/etc/foodgram/foodgram.yaml", GetConfigPath())
	})

	t.Run("working directory", func(t *testing.T) {
		t.Setenv(ConfigEnv, "")
		t.Chdir(t.TempDir())

		assert.Equal(t, "", GetConfigPath())
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Nil(t, cfg)

		require.NoError(t, os.WriteFile(".foodgram.yml", []byte("page_size: 3\n"), 0644))
		assert.Equal(t, ".foodgram.yml", GetConfigPath())
	})
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "foodgram.yaml")

	cfg := DefaultConfig()
	cfg.Database.URL = "postgres://localhost/foodgram"
	cfg.Media.Backend = "fs"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
