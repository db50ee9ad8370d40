package config

import "strings"

// Config 是 perpbot 的主配置载体。
type Config struct {
	App        AppConfig       `toml:"app" yaml:"app"`
	Market     MarketConfig    `toml:"market" yaml:"market"`
	Indicators IndicatorConfig `toml:"indicators" yaml:"indicators"`
	Signal     SignalConfig    `toml:"signal" yaml:"signal"`
	Trading    TradingConfig   `toml:"trading" yaml:"trading"`
	AI         AIConfig        `toml:"ai" yaml:"ai"`
	Storage    StorageConfig   `toml:"storage" yaml:"storage"`
	Notify     NotifyConfig    `toml:"notify" yaml:"notify"`
	Schedule   ScheduleConfig  `toml:"schedule" yaml:"schedule"`
	HTTP       HTTPConfig      `toml:"http" yaml:"http"`
}

type AppConfig struct {
	Env      string `toml:"env" yaml:"env"`
	LogLevel string `toml:"log_level" yaml:"log_level"`
	LogPath  string `toml:"log_path" yaml:"log_path"`
	LLMLog   string `toml:"llm_log_path" yaml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload" yaml:"llm_dump_payload"`
}

// MarketConfig 描述行情源与选币参数。
type MarketConfig struct {
	RESTBaseURL    string      `toml:"rest_base_url" yaml:"rest_base_url"`
	QuoteAsset     string      `toml:"quote_asset" yaml:"quote_asset"`
	StableBases    []string    `toml:"stable_bases" yaml:"stable_bases"`
	Interval       string      `toml:"interval" yaml:"interval"`
	CandleLimit    int         `toml:"candle_limit" yaml:"candle_limit"`
	TopCount       int         `toml:"top_count" yaml:"top_count"`
	SampleAttempts int         `toml:"sample_attempts" yaml:"sample_attempts"`
	TimeoutSeconds int         `toml:"timeout_seconds" yaml:"timeout_seconds"`
	Proxy          ProxyConfig `toml:"proxy" yaml:"proxy"`
}

type ProxyConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	RESTURL string `toml:"rest_url" yaml:"rest_url"`
}

func (p *ProxyConfig) normalize() {
	p.RESTURL = strings.TrimSpace(p.RESTURL)
	if p.RESTURL == "" {
		p.Enabled = false
	}
}

// IndicatorConfig 是指标周期，支持热更新。
type IndicatorConfig struct {
	RSIPeriod       int     `toml:"rsi_period" yaml:"rsi_period"`
	MACDFast        int     `toml:"macd_fast" yaml:"macd_fast"`
	MACDSlow        int     `toml:"macd_slow" yaml:"macd_slow"`
	MACDSignal      int     `toml:"macd_signal" yaml:"macd_signal"`
	BollingerPeriod int     `toml:"bollinger_period" yaml:"bollinger_period"`
	BollingerStdDev float64 `toml:"bollinger_stddev" yaml:"bollinger_stddev"`
	ATRPeriod       int     `toml:"atr_period" yaml:"atr_period"`
	StochK          int     `toml:"stoch_k" yaml:"stoch_k"`
	StochSmoothK    int     `toml:"stoch_smooth_k" yaml:"stoch_smooth_k"`
	StochD          int     `toml:"stoch_d" yaml:"stoch_d"`
	ADXPeriod       int     `toml:"adx_period" yaml:"adx_period"`
	CCIPeriod       int     `toml:"cci_period" yaml:"cci_period"`
}

// SignalConfig 是评分阈值、权重与判定边际，支持热更新。
type SignalConfig struct {
	RSIOversold     float64 `toml:"rsi_oversold" yaml:"rsi_oversold"`
	RSIOverbought   float64 `toml:"rsi_overbought" yaml:"rsi_overbought"`
	StochOversold   float64 `toml:"stoch_oversold" yaml:"stoch_oversold"`
	StochOverbought float64 `toml:"stoch_overbought" yaml:"stoch_overbought"`
	ADXThreshold    float64 `toml:"adx_threshold" yaml:"adx_threshold"`
	CCIThreshold    float64 `toml:"cci_threshold" yaml:"cci_threshold"`
	DecisionMargin  float64 `toml:"decision_margin" yaml:"decision_margin"`

	Weights SignalWeights `toml:"weights" yaml:"weights"`
}

type SignalWeights struct {
	RSI       float64 `toml:"rsi" yaml:"rsi"`
	MACD      float64 `toml:"macd" yaml:"macd"`
	EMA       float64 `toml:"ema" yaml:"ema"`
	Bollinger float64 `toml:"bollinger" yaml:"bollinger"`
	Stoch     float64 `toml:"stoch" yaml:"stoch"`
	ADX       float64 `toml:"adx" yaml:"adx"`
	CCI       float64 `toml:"cci" yaml:"cci"`
}

// TradingConfig 控制下单规模与价位计算。
type TradingConfig struct {
	TradeUSDSize        float64 `toml:"trade_usd_size" yaml:"trade_usd_size"`
	Leverage            int     `toml:"leverage" yaml:"leverage"`
	DryRun              bool    `toml:"dry_run" yaml:"dry_run"`
	ATRMultiplier       float64 `toml:"atr_multiplier" yaml:"atr_multiplier"`
	ATRFallbackPct      float64 `toml:"atr_fallback_pct" yaml:"atr_fallback_pct"`
	RiskReward          float64 `toml:"risk_reward" yaml:"risk_reward"`
	OrderTimeoutSeconds int     `toml:"order_timeout_seconds" yaml:"order_timeout_seconds"`
	APIKey              string  `toml:"api_key" yaml:"api_key"`
	SecretKey           string  `toml:"secret_key" yaml:"secret_key"`
}

// AIConfig 是叙述服务：TokenMetrics 概览与 OpenAI 兼容的总结模型。
type AIConfig struct {
	TokenMetricsURL        string            `toml:"tokenmetrics_url" yaml:"tokenmetrics_url"`
	TokenMetricsKey        string            `toml:"tokenmetrics_api_key" yaml:"tokenmetrics_api_key"`
	OverviewTimeoutSeconds int               `toml:"overview_timeout_seconds" yaml:"overview_timeout_seconds"`
	BaseURL                string            `toml:"base_url" yaml:"base_url"`
	APIKey                 string            `toml:"api_key" yaml:"api_key"`
	Model                  string            `toml:"model" yaml:"model"`
	Temperature            float64           `toml:"temperature" yaml:"temperature"`
	MaxRetries             int               `toml:"max_retries" yaml:"max_retries"`
	SummaryTimeoutSeconds  int               `toml:"summary_timeout_seconds" yaml:"summary_timeout_seconds"`
	Headers                map[string]string `toml:"headers" yaml:"headers,omitempty"`
}

// StorageConfig 是交易日志与报告上传。
type StorageConfig struct {
	Backend              string `toml:"backend" yaml:"backend"`
	TradesPath           string `toml:"trades_path" yaml:"trades_path"`
	SQLitePath           string `toml:"sqlite_path" yaml:"sqlite_path"`
	MCPRestURL           string `toml:"mcp_rest_url" yaml:"mcp_rest_url"`
	GatewayURL           string `toml:"gateway_url" yaml:"gateway_url"`
	UploadTimeoutSeconds int    `toml:"upload_timeout_seconds" yaml:"upload_timeout_seconds"`
}

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram" yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	BotToken string `toml:"bot_token" yaml:"bot_token"`
	ChatID   string `toml:"chat_id" yaml:"chat_id"`
}

// ScheduleConfig 是可选的定时周期，默认关闭。
type ScheduleConfig struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`
	Cron           string `toml:"cron" yaml:"cron"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

type HTTPConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Addr    string `toml:"addr" yaml:"addr"`
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

// fieldDefault 只在 key 未显式设置且 need() 为真时应用。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
