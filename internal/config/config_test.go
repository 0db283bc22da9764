package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", cfg.Fetch.Symbol)
	assert.Equal(t, "5m", cfg.Fetch.Interval)
	assert.Equal(t, "60d", cfg.Fetch.Period)
	assert.Equal(t, 15, cfg.Chart.Count)
	assert.True(t, cfg.Chart.OpenBrowser)
	assert.Equal(t, ".", cfg.Store.DataDir)
	assert.Equal(t, "@every 1h", cfg.Watch.Schedule)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
fetch:
  symbol: ETH-USD
  interval: 15m
store:
  data_dir: /tmp/intradata
chart:
  open_browser: false
symbols:
  aliases:
    SPX500: ^GSPC
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("INTRADATA_INTERVAL", "30m")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ETH-USD", cfg.Fetch.Symbol)
	assert.Equal(t, "30m", cfg.Fetch.Interval)
	assert.Equal(t, "/tmp/intradata", cfg.Store.DataDir)
	assert.False(t, cfg.Chart.OpenBrowser)
	// viper lower-cases map keys
	assert.Equal(t, "^GSPC", cfg.Symbols.Aliases["spx500"])
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch: [unterminated"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cfg.Chart.Count = 0
	assert.Error(t, cfg.Validate())

	cfg.Chart.Count = 10
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg.Log.Level = "debug"
	cfg.Store.ParquetEnabled = true
	cfg.Store.ParquetDir = ""
	assert.Error(t, cfg.Validate())
}
