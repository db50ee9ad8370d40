package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"perpbot/internal/analysis/pattern"
	"perpbot/internal/analysis/trend"
	"perpbot/internal/decision"
	"perpbot/internal/market"
	pairsym "perpbot/internal/pkg/symbol"
	"perpbot/internal/strategy"
)

// Snapshot 是单个交易对的只读分析结果，不下单也不记账。
type Snapshot struct {
	Symbol   string
	Series   market.Series
	Scores   decision.Breakdown
	Decision decision.Decision
	// Levels 只在方向性信号时有值
	Levels   strategy.TradeLevels
	Trend    trend.Trend
	Patterns []pattern.Pattern
}

// Analyze 对指定交易对跑一遍取数、指标与评分。
// 接受 ETH/USDT 与 ETHUSDT 两种写法。
func (s *Service) Analyze(ctx context.Context, raw string) (Snapshot, error) {
	symbol := pairsym.Normalize(raw)
	if symbol == "" {
		return Snapshot{}, cycleErr(KindNoCandidate, "", fmt.Errorf("invalid symbol %q", raw))
	}
	pipe := s.pipe.Load()
	series, reason := s.loadSeries(ctx, pipe, symbol)
	if reason != "" {
		return Snapshot{Symbol: symbol}, cycleErr(KindDataUnavailable, symbol, errors.New(reason))
	}
	snap := Snapshot{
		Symbol:   symbol,
		Series:   series,
		Scores:   pipe.scorer.Score(series),
		Trend:    trend.Classify(series),
		Patterns: pattern.Detect(series),
	}
	snap.Decision = pipe.resolver.Resolve(snap.Scores.Scores)
	if snap.Decision.Directional() {
		snap.Levels = pipe.levels.Calculate(series, snap.Decision)
	}
	return snap, nil
}

// Text 是 /analyze 的回复文本。
func (s Snapshot) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (strength %.2f/5)\n", s.Symbol, s.Decision.Signal, s.Decision.Strength)
	fmt.Fprintf(&b, "Scores: long %.2f / short %.2f\n", s.Scores.Scores.Long, s.Scores.Scores.Short)
	fmt.Fprintf(&b, "Trend: %s\n", s.Trend)
	if !s.Levels.IsZero() {
		fmt.Fprintf(&b, "Entry %s  SL %s  TP %s\n", s.Levels.Entry.StringFixed(4), s.Levels.StopLoss.StringFixed(4), s.Levels.TakeProfit.StringFixed(4))
	}
	if len(s.Patterns) > 0 {
		names := make([]string, len(s.Patterns))
		for i, p := range s.Patterns {
			names[i] = p.String()
		}
		fmt.Fprintf(&b, "Patterns: %s\n", strings.Join(names, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
