package config

import (
	"strings"

	"perpbot/internal/market"
)

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppLogPath      = "data/logs/perpbot.log"
	defaultAppLLMLogPath   = "data/logs/perpbot-llm.log"
	defaultMarketREST      = "https://fapi.binance.com"
	defaultQuoteAsset      = "USDT"
	defaultInterval        = "1h"
	defaultCandleLimit     = 200
	defaultTopCount        = 20
	defaultSampleAttempts  = 5
	defaultMarketTimeout   = 15
	defaultTradeUSDSize    = 10
	defaultLeverage        = 5
	defaultATRMultiplier   = 1.3
	defaultATRFallbackPct  = 0.01
	defaultRiskReward      = 2.0
	defaultOrderTimeout    = 20
	defaultTokenMetricsURL = "https://api.tokenmetrics.com/v2/tmai"
	defaultOverviewTimeout = 10
	defaultAIBaseURL       = "https://api.openai.com/v1"
	defaultAIModel         = "gpt-4"
	defaultAIRetries       = 2
	defaultSummaryTimeout  = 60
	defaultStorageBackend  = BackendJSON
	defaultTradesPath      = "data/trades.json"
	defaultSQLitePath      = "data/trades.db"
	defaultGatewayURL      = "https://ipfs.io/ipfs/"
	defaultUploadTimeout   = 30
	defaultCron            = "0 * * * *"
	defaultCycleTimeout    = 300
	defaultHTTPAddr        = "127.0.0.1:9991"
)

var defaultStableBases = []string{"USDC", "BUSD", "DAI", "USDP", "TUSD", "USDT"}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Indicators.applyDefaults(keys)
	c.Signal.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Storage.applyDefaults(keys)
	c.Schedule.applyDefaults(keys)
	c.HTTP.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.llm_log_path", &a.LLMLog, defaultAppLLMLogPath),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultMarketREST),
		stringFieldDefault("market.quote_asset", &m.QuoteAsset, defaultQuoteAsset),
		stringFieldDefault("market.interval", &m.Interval, defaultInterval),
		intFieldDefault("market.candle_limit", &m.CandleLimit, defaultCandleLimit),
		intFieldDefault("market.top_count", &m.TopCount, defaultTopCount),
		intFieldDefault("market.sample_attempts", &m.SampleAttempts, defaultSampleAttempts),
		intFieldDefault("market.timeout_seconds", &m.TimeoutSeconds, defaultMarketTimeout),
	)
	// 显式写空列表表示不排除任何 base
	if m.StableBases == nil && !keys.isSet("market.stable_bases") {
		m.StableBases = append([]string(nil), defaultStableBases...)
	}
	m.Interval = market.NormalizeInterval(m.Interval)
	m.QuoteAsset = strings.ToUpper(strings.TrimSpace(m.QuoteAsset))
	m.Proxy.normalize()
}

func (i *IndicatorConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("indicators.rsi_period", &i.RSIPeriod, 14),
		intFieldDefault("indicators.macd_fast", &i.MACDFast, 12),
		intFieldDefault("indicators.macd_slow", &i.MACDSlow, 26),
		intFieldDefault("indicators.macd_signal", &i.MACDSignal, 9),
		intFieldDefault("indicators.bollinger_period", &i.BollingerPeriod, 20),
		floatFieldDefault("indicators.bollinger_stddev", &i.BollingerStdDev, 2),
		intFieldDefault("indicators.atr_period", &i.ATRPeriod, 14),
		intFieldDefault("indicators.stoch_k", &i.StochK, 14),
		intFieldDefault("indicators.stoch_smooth_k", &i.StochSmoothK, 3),
		intFieldDefault("indicators.stoch_d", &i.StochD, 3),
		intFieldDefault("indicators.adx_period", &i.ADXPeriod, 14),
		intFieldDefault("indicators.cci_period", &i.CCIPeriod, 14),
	)
}

func (s *SignalConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("signal.rsi_oversold", &s.RSIOversold, 35),
		floatFieldDefault("signal.rsi_overbought", &s.RSIOverbought, 65),
		floatFieldDefault("signal.stoch_oversold", &s.StochOversold, 20),
		floatFieldDefault("signal.stoch_overbought", &s.StochOverbought, 80),
		floatFieldDefault("signal.adx_threshold", &s.ADXThreshold, 25),
		floatFieldDefault("signal.cci_threshold", &s.CCIThreshold, 100),
		floatFieldDefault("signal.weights.rsi", &s.Weights.RSI, 2),
		floatFieldDefault("signal.weights.macd", &s.Weights.MACD, 2),
		floatFieldDefault("signal.weights.ema", &s.Weights.EMA, 0.5),
		floatFieldDefault("signal.weights.bollinger", &s.Weights.Bollinger, 0.75),
		floatFieldDefault("signal.weights.stoch", &s.Weights.Stoch, 0.5),
		floatFieldDefault("signal.weights.adx", &s.Weights.ADX, 0.5),
		floatFieldDefault("signal.weights.cci", &s.Weights.CCI, 0.5),
		// 边际允许显式为 0，只在未设置时补默认值
		fieldDefault{
			key:   "signal.decision_margin",
			apply: func() { s.DecisionMargin = 0.5 },
		},
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("trading.trade_usd_size", &t.TradeUSDSize, defaultTradeUSDSize),
		intFieldDefault("trading.leverage", &t.Leverage, defaultLeverage),
		floatFieldDefault("trading.atr_multiplier", &t.ATRMultiplier, defaultATRMultiplier),
		floatFieldDefault("trading.atr_fallback_pct", &t.ATRFallbackPct, defaultATRFallbackPct),
		floatFieldDefault("trading.risk_reward", &t.RiskReward, defaultRiskReward),
		intFieldDefault("trading.order_timeout_seconds", &t.OrderTimeoutSeconds, defaultOrderTimeout),
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("ai.tokenmetrics_url", &a.TokenMetricsURL, defaultTokenMetricsURL),
		intFieldDefault("ai.overview_timeout_seconds", &a.OverviewTimeoutSeconds, defaultOverviewTimeout),
		stringFieldDefault("ai.base_url", &a.BaseURL, defaultAIBaseURL),
		stringFieldDefault("ai.model", &a.Model, defaultAIModel),
		intFieldDefault("ai.max_retries", &a.MaxRetries, defaultAIRetries),
		intFieldDefault("ai.summary_timeout_seconds", &a.SummaryTimeoutSeconds, defaultSummaryTimeout),
	)
}

func (s *StorageConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("storage.backend", &s.Backend, defaultStorageBackend),
		stringFieldDefault("storage.trades_path", &s.TradesPath, defaultTradesPath),
		stringFieldDefault("storage.sqlite_path", &s.SQLitePath, defaultSQLitePath),
		stringFieldDefault("storage.gateway_url", &s.GatewayURL, defaultGatewayURL),
		intFieldDefault("storage.upload_timeout_seconds", &s.UploadTimeoutSeconds, defaultUploadTimeout),
	)
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
}

func (s *ScheduleConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("schedule.cron", &s.Cron, defaultCron),
		intFieldDefault("schedule.timeout_seconds", &s.TimeoutSeconds, defaultCycleTimeout),
	)
}

func (h *HTTPConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		boolFieldDefault("http.enabled", &h.Enabled, true),
		stringFieldDefault("http.addr", &h.Addr, defaultHTTPAddr),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}
