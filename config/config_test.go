package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetYamlDefaults(t *testing.T) {
	cfg, err := getYaml(writeConfig(t, "platform: gate\n"))
	require.NoError(t, err)

	assert.Equal(t, "gate", cfg.Platform)
	assert.Equal(t, defaultDataDir, cfg.DataDir)
	assert.Equal(t, defaultWindowDays, cfg.WindowDays)
	assert.Equal(t, defaultStopEmptyDays, cfg.StopEmptyDays)
	assert.Equal(t, defaultPace, cfg.Pace)
}

func TestGetYamlBinanceWithPairs(t *testing.T) {
	cfg, err := getYaml(writeConfig(t, `platform: binance
pairs:
  - BTC_USDT
  - ETH_USDT
data_dir: /tmp/basis
window_days: 15
stop_empty_days: 45
pace: 250ms
`))
	require.NoError(t, err)

	assert.Equal(t, "binance", cfg.Platform)
	require.Len(t, cfg.Pairs, 2)
	assert.Equal(t, "BTC", cfg.Pairs[0].Base)
	assert.Equal(t, "USDT", cfg.Pairs[0].Quote)
	assert.Equal(t, "/tmp/basis", cfg.DataDir)
	assert.Equal(t, 15, cfg.WindowDays)
	assert.Equal(t, 45, cfg.StopEmptyDays)
	assert.Equal(t, 250*time.Millisecond, cfg.Pace)
}

func TestGetYamlBinanceRequiresPairs(t *testing.T) {
	_, err := getYaml(writeConfig(t, "platform: binance\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pair")
}

func TestGetYamlRejectsOversizedWindow(t *testing.T) {
	_, err := getYaml(writeConfig(t, "platform: gate\nwindow_days: 60\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window_days")
}

func TestGetYamlRejectsUnknownPlatform(t *testing.T) {
	_, err := getYaml(writeConfig(t, "platform: kraken\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported platform")
}
