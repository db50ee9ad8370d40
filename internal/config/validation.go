package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Indicators.validate(); err != nil {
		return err
	}
	if err := c.Signal.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	return nil
}

var supportedIntervals = map[string]time.Duration{
	"1m": time.Minute, "3m": 3 * time.Minute, "5m": 5 * time.Minute, "15m": 15 * time.Minute,
	"30m": 30 * time.Minute, "1h": time.Hour, "2h": 2 * time.Hour, "4h": 4 * time.Hour,
	"6h": 6 * time.Hour, "8h": 8 * time.Hour, "12h": 12 * time.Hour, "1d": 24 * time.Hour,
	"3d": 3 * 24 * time.Hour, "1w": 7 * 24 * time.Hour, "1M": 31 * 24 * time.Hour,
}

func (m *MarketConfig) validate() error {
	if _, ok := supportedIntervals[m.Interval]; !ok {
		return fmt.Errorf("market.interval %q is not a supported futures interval", m.Interval)
	}
	if m.CandleLimit < 2 || m.CandleLimit > 1500 {
		return fmt.Errorf("market.candle_limit must be within [2,1500], got %d", m.CandleLimit)
	}
	if m.TopCount <= 0 {
		return fmt.Errorf("market.top_count must be > 0")
	}
	if m.SampleAttempts <= 0 {
		return fmt.Errorf("market.sample_attempts must be > 0")
	}
	if m.QuoteAsset == "" {
		return fmt.Errorf("market.quote_asset cannot be empty")
	}
	return nil
}

func (i *IndicatorConfig) validate() error {
	periods := map[string]int{
		"rsi_period":       i.RSIPeriod,
		"macd_fast":        i.MACDFast,
		"macd_slow":        i.MACDSlow,
		"macd_signal":      i.MACDSignal,
		"bollinger_period": i.BollingerPeriod,
		"atr_period":       i.ATRPeriod,
		"stoch_k":          i.StochK,
		"stoch_smooth_k":   i.StochSmoothK,
		"stoch_d":          i.StochD,
		"adx_period":       i.ADXPeriod,
		"cci_period":       i.CCIPeriod,
	}
	for name, v := range periods {
		if v < 1 {
			return fmt.Errorf("indicators.%s must be >= 1", name)
		}
	}
	if i.MACDFast >= i.MACDSlow {
		return fmt.Errorf("indicators.macd_fast (%d) must be < macd_slow (%d)", i.MACDFast, i.MACDSlow)
	}
	if i.BollingerStdDev <= 0 {
		return fmt.Errorf("indicators.bollinger_stddev must be > 0")
	}
	return nil
}

func (s *SignalConfig) validate() error {
	if s.RSIOversold >= s.RSIOverbought {
		return fmt.Errorf("signal.rsi_oversold must be < rsi_overbought")
	}
	if s.StochOversold >= s.StochOverbought {
		return fmt.Errorf("signal.stoch_oversold must be < stoch_overbought")
	}
	if s.DecisionMargin < 0 {
		return fmt.Errorf("signal.decision_margin must be >= 0")
	}
	w := s.Weights
	for _, v := range []float64{w.RSI, w.MACD, w.EMA, w.Bollinger, w.Stoch, w.ADX, w.CCI} {
		if v < 0 {
			return fmt.Errorf("signal.weights must be >= 0")
		}
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.TradeUSDSize <= 0 {
		return fmt.Errorf("trading.trade_usd_size must be > 0")
	}
	if t.Leverage < 1 || t.Leverage > 125 {
		return fmt.Errorf("trading.leverage must be within [1,125], got %d", t.Leverage)
	}
	if t.RiskReward <= 0 {
		return fmt.Errorf("trading.risk_reward must be > 0")
	}
	if t.ATRMultiplier <= 0 {
		return fmt.Errorf("trading.atr_multiplier must be > 0")
	}
	if !t.DryRun && (strings.TrimSpace(t.APIKey) == "" || strings.TrimSpace(t.SecretKey) == "") {
		return fmt.Errorf("trading.api_key/secret_key are required unless trading.dry_run is true")
	}
	return nil
}

func (s *StorageConfig) validate() error {
	switch s.Backend {
	case BackendJSON:
		if strings.TrimSpace(s.TradesPath) == "" {
			return fmt.Errorf("storage.trades_path cannot be empty")
		}
	case BackendSQLite:
		if strings.TrimSpace(s.SQLitePath) == "" {
			return fmt.Errorf("storage.sqlite_path cannot be empty")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendJSON, BackendSQLite, s.Backend)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if !n.Telegram.Enabled {
		return nil
	}
	if strings.TrimSpace(n.Telegram.BotToken) == "" {
		return fmt.Errorf("notify.telegram.bot_token is required when telegram is enabled")
	}
	return nil
}

func (s *ScheduleConfig) validate() error {
	if !s.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(s.Cron); err != nil {
		return fmt.Errorf("schedule.cron %q: %w", s.Cron, err)
	}
	return nil
}
