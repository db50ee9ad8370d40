package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "trading:\n  dry_run: true\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "https://fapi.binance.com", cfg.Market.RESTBaseURL)
	assert.Equal(t, "USDT", cfg.Market.QuoteAsset)
	assert.Equal(t, []string{"USDC", "BUSD", "DAI", "USDP", "TUSD", "USDT"}, cfg.Market.StableBases)
	assert.Equal(t, "1h", cfg.Market.Interval)
	assert.Equal(t, 200, cfg.Market.CandleLimit)
	assert.Equal(t, 20, cfg.Market.TopCount)
	assert.Equal(t, 5, cfg.Market.SampleAttempts)

	assert.Equal(t, 14, cfg.Indicators.RSIPeriod)
	assert.Equal(t, 26, cfg.Indicators.MACDSlow)
	assert.Equal(t, 2.0, cfg.Indicators.BollingerStdDev)

	assert.Equal(t, 35.0, cfg.Signal.RSIOversold)
	assert.Equal(t, 0.75, cfg.Signal.Weights.Bollinger)
	assert.Equal(t, 0.5, cfg.Signal.DecisionMargin)

	assert.Equal(t, 10.0, cfg.Trading.TradeUSDSize)
	assert.Equal(t, 5, cfg.Trading.Leverage)
	assert.Equal(t, 1.3, cfg.Trading.ATRMultiplier)
	assert.Equal(t, 2.0, cfg.Trading.RiskReward)

	assert.Equal(t, "gpt-4", cfg.AI.Model)
	assert.Equal(t, BackendJSON, cfg.Storage.Backend)
	assert.Equal(t, "https://ipfs.io/ipfs/", cfg.Storage.GatewayURL)
	assert.False(t, cfg.Schedule.Enabled)
	assert.True(t, cfg.HTTP.Enabled)
	assert.Equal(t, "127.0.0.1:9991", cfg.HTTP.Addr)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
market:
  interval: 4H
  quote_asset: usdc
  stable_bases: []
signal:
  decision_margin: 0
http:
  enabled: false
trading:
  dry_run: true
  leverage: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "4h", cfg.Market.Interval)
	assert.Equal(t, "USDC", cfg.Market.QuoteAsset)
	assert.Empty(t, cfg.Market.StableBases)
	assert.Equal(t, 0.0, cfg.Signal.DecisionMargin)
	assert.False(t, cfg.HTTP.Enabled)
	assert.Equal(t, 3, cfg.Trading.Leverage)
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "trading:\n  dry_run: true\n  leverage: 7\nmarket:\n  top_count: 30\n")
	main := writeFile(t, dir, "config.yaml", "include:\n  - base.yaml\nmarket:\n  top_count: 10\n")

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Trading.Leverage)
	assert.Equal(t, 10, cfg.Market.TopCount, "later files override included ones")
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	assert.ErrorContains(t, err, "include cycle")
}

func TestLoadMonthlyInterval(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "trading:\n  dry_run: true\nmarket:\n  interval: 1M\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1M", cfg.Market.Interval)
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:telegram-token")
	t.Setenv("BINANCE_API_KEY", "binance-key-abcdef")
	t.Setenv("BINANCE_SECRET_KEY", "binance-secret-abcdef")
	path := writeFile(t, t.TempDir(), "config.yaml", "notify:\n  telegram:\n    enabled: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123456:telegram-token", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, "binance-key-abcdef", cfg.Trading.APIKey)
	assert.False(t, cfg.Trading.DryRun)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"missing keys":  "trading:\n  dry_run: false\n",
		"leverage zero": "trading:\n  dry_run: true\n  leverage: 0\n",
		"bad interval":  "trading:\n  dry_run: true\nmarket:\n  interval: 7x\n",
		"bad backend":   "trading:\n  dry_run: true\nstorage:\n  backend: redis\n",
		"bad cron":      "trading:\n  dry_run: true\nschedule:\n  enabled: true\n  cron: nope\n",
		"macd order":    "trading:\n  dry_run: true\nindicators:\n  macd_fast: 30\n",
		"telegram":      "trading:\n  dry_run: true\nnotify:\n  telegram:\n    enabled: true\n",
	}
	t.Setenv("BINANCE_API_KEY", "")
	t.Setenv("BINANCE_SECRET_KEY", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, t.TempDir(), "config.yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestDumpYAMLMasksSecrets(t *testing.T) {
	cfg := Config{}
	cfg.Trading.APIKey = "abcdefghijkl"
	cfg.AI.APIKey = "sk-1"
	cfg.Notify.Telegram.BotToken = "123456:secret-token"

	out, err := cfg.DumpYAML()
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "api_key: abcd****")
	assert.NotContains(t, text, "abcdefghijkl")
	assert.NotContains(t, text, "secret-token")
	assert.NotContains(t, text, "sk-1")
	assert.Equal(t, "abcdefghijkl", cfg.Trading.APIKey, "original config is untouched")
}

func TestWatchReloads(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "trading:\n  dry_run: true\n  risk_reward: 2\n")
	var latest atomic.Value
	require.NoError(t, Watch(path, func(cfg *Config) { latest.Store(cfg.Trading.RiskReward) }))

	require.NoError(t, os.WriteFile(path, []byte("trading:\n  dry_run: true\n  risk_reward: 3\n"), 0o644))
	require.Eventually(t, func() bool {
		v, ok := latest.Load().(float64)
		return ok && v == 3
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRepoConfigLoads(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("configs/config.yaml not present")
	}
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cfg.Market.RESTBaseURL, "https://"))
}
