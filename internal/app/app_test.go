package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpbot/internal/config"
	"perpbot/internal/gateway/exchange"
	"perpbot/internal/gateway/notifier"
	"perpbot/internal/market"
	"perpbot/internal/report"
)

type stubSource struct {
	tickers map[string]market.Ticker
}

func (s stubSource) ListTickers(context.Context) (map[string]market.Ticker, error) {
	return s.tickers, nil
}

func (s stubSource) FetchCandles(context.Context, string, string, int) (market.Series, error) {
	return market.Series{}, nil
}

type stubExecutor struct{}

func (stubExecutor) OpenPosition(context.Context, string, exchange.Side) (exchange.OrderReceipt, error) {
	return exchange.OrderReceipt{}, fmt.Errorf("not expected")
}

func loadConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	body = strings.ReplaceAll(body, "$DIR", dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

const baseConfig = `
trading:
  dry_run: true
  risk_reward: 3
  atr_multiplier: 1.5
signal:
  decision_margin: 0
  weights:
    rsi: 2
indicators:
  rsi_period: 10
storage:
  trades_path: $DIR/trades.json
  sqlite_path: $DIR/trades.db
schedule:
  enabled: true
  cron: "@every 1h"
`

func TestAnalysisFromConfig(t *testing.T) {
	cfg := loadConfig(t, baseConfig)
	a := AnalysisFromConfig(cfg)

	assert.Equal(t, 10, a.Indicators.RSIPeriod)
	assert.Equal(t, cfg.Indicators.MACDSlow, a.Indicators.MACDSlow)
	assert.Equal(t, 2.0, a.Signal.RSIWeight)
	assert.Equal(t, 0.0, a.Signal.DecisionMargin)
	assert.Equal(t, cfg.Signal.RSIOversold, a.Signal.RSIOversold)
	assert.Equal(t, 3.0, a.Levels.RiskReward)
	assert.Equal(t, 1.5, a.Levels.ATRMultiplier)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := loadConfig(t, baseConfig)
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, cfg.Market.Interval, opts.Interval)
	assert.Equal(t, cfg.Market.CandleLimit, opts.CandleLimit)
	assert.Equal(t, cfg.Market.TopCount, opts.TopCount)
	assert.Equal(t, seconds(cfg.Trading.OrderTimeoutSeconds), opts.Timeouts.Order)
}

func newTestApp(t *testing.T, cfg *config.Config, src stubSource) *App {
	t.Helper()
	app, err := NewAppBuilder(cfg, WithMarketSource(src), WithExecutor(stubExecutor{})).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestBuildWiresEnabledComponents(t *testing.T) {
	cfg := loadConfig(t, baseConfig)
	app := newTestApp(t, cfg, stubSource{})

	require.NotNil(t, app.Service())
	assert.NotNil(t, app.http)
	assert.Nil(t, app.telegram)
	require.NotNil(t, app.scheduler)
	assert.Equal(t, 1, app.scheduler.Entries())
	assert.Equal(t, 3.0, app.Service().RiskReward())

	var out strings.Builder
	_, err := app.Summary.WriteTo(&out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "DRY-RUN")
	assert.Contains(t, out.String(), "trades.json")
}

func TestBuildSQLiteBackend(t *testing.T) {
	cfg := loadConfig(t, baseConfig+"\n")
	cfg.Storage.Backend = config.BackendSQLite
	app := newTestApp(t, cfg, stubSource{})
	assert.Len(t, app.closers, 1)

	lines, err := app.Service().ListTrades(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{report.MsgNoTrades}, lines)
	_, err = os.Stat(cfg.Storage.SQLitePath)
	assert.NoError(t, err)
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	cfg := loadConfig(t, baseConfig)
	cfg.Storage.Backend = "redis"
	_, err := NewAppBuilder(cfg, WithMarketSource(stubSource{}), WithExecutor(stubExecutor{})).Build(context.Background())
	assert.ErrorContains(t, err, "unsupported storage backend")
}

func TestReloadSwapsAnalysis(t *testing.T) {
	cfg := loadConfig(t, baseConfig)
	app := newTestApp(t, cfg, stubSource{})

	next := *cfg
	next.Trading.RiskReward = 1.5
	app.reload(&next)
	assert.Equal(t, 1.5, app.Service().RiskReward())
}

type botAPI struct {
	mu   sync.Mutex
	sent []string
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	b.sent = append(b.sent, fmt.Sprint(body["text"]))
	b.mu.Unlock()
	fmt.Fprint(w, `{"ok":true}`)
}

func TestScheduledCyclePushesReplies(t *testing.T) {
	cfg := loadConfig(t, baseConfig)
	src := stubSource{tickers: map[string]market.Ticker{
		"USDC/USDT": {Symbol: "USDC/USDT", QuoteVolume: 1e9, LastPrice: 1},
	}}
	app := newTestApp(t, cfg, src)

	api := &botAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()
	tg := notifier.NewTelegram("TOKEN", "42")
	tg.APIBase = srv.URL
	app.telegram = tg

	app.scheduledCycle(context.Background())
	assert.Equal(t, []string{report.MsgNoSymbols}, api.sent)
}

func TestScheduledCycleWithoutTelegram(t *testing.T) {
	cfg := loadConfig(t, baseConfig)
	app := newTestApp(t, cfg, stubSource{})
	assert.IsType(t, notifier.Nop{}, app.notifier())
	assert.NotPanics(t, func() { app.scheduledCycle(context.Background()) })
}

func TestRunRequiresEntryPoint(t *testing.T) {
	cfg := loadConfig(t, baseConfig)
	cfg.HTTP.Enabled = false
	cfg.Schedule.Enabled = false
	app := newTestApp(t, cfg, stubSource{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorContains(t, app.Run(ctx), "nothing to run")
}
