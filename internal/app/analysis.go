package app

import (
	"time"

	"perpbot/internal/agent"
	"perpbot/internal/analysis/indicator"
	"perpbot/internal/config"
	"perpbot/internal/decision"
	"perpbot/internal/strategy"
)

// AnalysisFromConfig 把配置里的指标、评分与价位参数换成 agent 使用的结构；
// 配置热更新时也走这里。
func AnalysisFromConfig(cfg *config.Config) agent.Analysis {
	ind := cfg.Indicators
	sig := cfg.Signal
	return agent.Analysis{
		Indicators: indicator.Settings{
			RSIPeriod:       ind.RSIPeriod,
			MACDFast:        ind.MACDFast,
			MACDSlow:        ind.MACDSlow,
			MACDSignal:      ind.MACDSignal,
			BollingerPeriod: ind.BollingerPeriod,
			BollingerStdDev: ind.BollingerStdDev,
			ATRPeriod:       ind.ATRPeriod,
			StochK:          ind.StochK,
			StochSmoothK:    ind.StochSmoothK,
			StochD:          ind.StochD,
			ADXPeriod:       ind.ADXPeriod,
			CCIPeriod:       ind.CCIPeriod,
		},
		Signal: decision.Params{
			RSIOversold:     sig.RSIOversold,
			RSIOverbought:   sig.RSIOverbought,
			StochOversold:   sig.StochOversold,
			StochOverbought: sig.StochOverbought,
			ADXThreshold:    sig.ADXThreshold,
			CCIThreshold:    sig.CCIThreshold,
			RSIWeight:       sig.Weights.RSI,
			MACDWeight:      sig.Weights.MACD,
			EMAWeight:       sig.Weights.EMA,
			BollingerWeight: sig.Weights.Bollinger,
			StochWeight:     sig.Weights.Stoch,
			ADXWeight:       sig.Weights.ADX,
			CCIWeight:       sig.Weights.CCI,
			DecisionMargin:  sig.DecisionMargin,
		},
		Levels: strategy.LevelParams{
			ATRMultiplier:  cfg.Trading.ATRMultiplier,
			ATRFallbackPct: cfg.Trading.ATRFallbackPct,
			RiskReward:     cfg.Trading.RiskReward,
		},
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// OptionsFromConfig 返回选币、取数与各外部调用的超时设置。
func OptionsFromConfig(cfg *config.Config) agent.Options {
	return agent.Options{
		Interval:       cfg.Market.Interval,
		CandleLimit:    cfg.Market.CandleLimit,
		TopCount:       cfg.Market.TopCount,
		SampleAttempts: cfg.Market.SampleAttempts,
		Timeouts: agent.Timeouts{
			Market:   seconds(cfg.Market.TimeoutSeconds),
			Order:    seconds(cfg.Trading.OrderTimeoutSeconds),
			Overview: seconds(cfg.AI.OverviewTimeoutSeconds),
			Summary:  seconds(cfg.AI.SummaryTimeoutSeconds),
			Upload:   seconds(cfg.Storage.UploadTimeoutSeconds),
		},
	}
}
