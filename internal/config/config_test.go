package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
feed:
  url: ws://feed.local:9000/ws/arb
  pair: sol-usdc
  handshake_timeout_ms: 2500
history:
  enabled: true
  url: http://feed.local:3000/historical
  sources: [Binance, Jupiter]
  requests_per_second: 2
candles:
  max_candles: 120
arbitrage:
  min_spread_percent: 0.25
database:
  enabled: true
  host: db
  port: 5433
  user: arb
  password: s3cret
  dbname: journal
log:
  level: debug
  format: text
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig_File(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "ws://feed.local:9000/ws/arb", cfg.Feed.URL)
	assert.Equal(t, "sol-usdc", cfg.Feed.Pair)
	assert.Equal(t, 2500*time.Millisecond, cfg.Feed.HandshakeTimeout())
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, []string{"Binance", "Jupiter"}, cfg.History.Sources)
	assert.Equal(t, 2.0, cfg.History.RequestsPerSecond)
	assert.Equal(t, 5*time.Second, cfg.History.Timeout(), "default applies to unset key")
	assert.Equal(t, 120, cfg.Candles.MaxCandles)
	assert.Equal(t, 0.25, cfg.Arbitrage.MinSpreadPercent)
	assert.Equal(t, 0.01, cfg.Arbitrage.TolerancePercent)
	assert.Equal(t, "postgres://arb:s3cret@db:5433/journal", cfg.Database.ConnString())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:8081/ws/arb", cfg.Feed.URL)
	assert.Equal(t, "SOL/USDT", cfg.Feed.Pair)
	assert.Equal(t, 500, cfg.Candles.MaxCandles)
	assert.Equal(t, 256, cfg.Arbitrage.JournalBuffer)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FEED_PAIR", "ETH/USDT")
	t.Setenv("CANDLES_MAX_CANDLES", "42")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "ETH/USDT", cfg.Feed.Pair)
	assert.Equal(t, 42, cfg.Candles.MaxCandles)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "feed:\n  pair: SOLUSDT\n"))
	assert.ErrorContains(t, err, "feed.pair")

	_, err = LoadConfig(writeConfig(t, "candles:\n  max_candles: 0\n"))
	assert.ErrorContains(t, err, "max_candles")

	_, err = LoadConfig(writeConfig(t, "arbitrage:\n  journal_buffer: -1\n"))
	assert.ErrorContains(t, err, "journal_buffer")

	_, err = LoadConfig(writeConfig(t, "feed: [not, a, map"))
	assert.ErrorContains(t, err, "read config")
}
