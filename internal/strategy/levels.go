package strategy

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"perpbot/internal/decision"
	"perpbot/internal/market"
)

var (
	decimalZero    = decimal.Zero
	decimalHundred = decimal.NewFromInt(100)
)

// LevelParams 控制止损距离与盈亏比。
type LevelParams struct {
	ATRMultiplier  float64 `json:"atr_multiplier"`
	ATRFallbackPct float64 `json:"atr_fallback_pct"`
	RiskReward     float64 `json:"risk_reward"`
}

func DefaultLevelParams() LevelParams {
	return LevelParams{ATRMultiplier: 1.3, ATRFallbackPct: 0.01, RiskReward: 2.0}
}

func (p LevelParams) withDefaults() LevelParams {
	def := DefaultLevelParams()
	if p.ATRMultiplier <= 0 || math.IsNaN(p.ATRMultiplier) {
		p.ATRMultiplier = def.ATRMultiplier
	}
	if p.ATRFallbackPct <= 0 || math.IsNaN(p.ATRFallbackPct) {
		p.ATRFallbackPct = def.ATRFallbackPct
	}
	if p.RiskReward <= 0 || math.IsNaN(p.RiskReward) {
		p.RiskReward = def.RiskReward
	}
	return p
}

// TradeLevels 是入场/止损/止盈价格；全零表示未计算。
type TradeLevels struct {
	Entry      decimal.Decimal `json:"entry"`
	StopLoss   decimal.Decimal `json:"stop_loss"`
	TakeProfit decimal.Decimal `json:"take_profit"`
}

func (l TradeLevels) IsZero() bool {
	return l.Entry.IsZero() && l.StopLoss.IsZero() && l.TakeProfit.IsZero()
}

func (l TradeLevels) EntryFloat() float64      { return l.Entry.InexactFloat64() }
func (l TradeLevels) StopLossFloat() float64   { return l.StopLoss.InexactFloat64() }
func (l TradeLevels) TakeProfitFloat() float64 { return l.TakeProfit.InexactFloat64() }

// StopLossPct 返回止损相对入场价的百分比距离；入场为零时 ok=false。
func (l TradeLevels) StopLossPct() (float64, bool) { return pctFrom(l.Entry, l.StopLoss) }

// TakeProfitPct 返回止盈相对入场价的百分比距离。
func (l TradeLevels) TakeProfitPct() (float64, bool) { return pctFrom(l.Entry, l.TakeProfit) }

func pctFrom(entry, target decimal.Decimal) (float64, bool) {
	if entry.IsZero() {
		return 0, false
	}
	return target.Sub(entry).Abs().Div(entry).Mul(decimalHundred).InexactFloat64(), true
}

func (l TradeLevels) String() string {
	if l.IsZero() {
		return "levels{none}"
	}
	return fmt.Sprintf("levels{entry=%s sl=%s tp=%s}", l.Entry.String(), l.StopLoss.String(), l.TakeProfit.String())
}

// LevelCalculator 基于 ATR 计算交易价位。
type LevelCalculator struct {
	params LevelParams
}

func NewLevelCalculator(p LevelParams) LevelCalculator {
	return LevelCalculator{params: p.withDefaults()}
}

func (c LevelCalculator) Params() LevelParams { return c.params }

// Calculate 入场取当前收盘价；ATR 无效时用入场价的固定比例代替。
// Neutral、空序列或入场价 <= 0 返回全零。空头止盈不做下限截断，ATR 过大时可能为负。
func (c LevelCalculator) Calculate(series market.Series, d decision.Decision) TradeLevels {
	if series.Empty() || !d.Directional() {
		return TradeLevels{}
	}
	cur := series.Current()
	px := cur.Close()
	if !px.Valid || px.Float <= 0 {
		return TradeLevels{}
	}
	entry := decimal.NewFromFloat(px.Float)

	var vol decimal.Decimal
	if atr := cur.Get(market.ATR); atr.Valid && atr.Float > 0 {
		vol = decimal.NewFromFloat(atr.Float)
	} else {
		vol = entry.Mul(decimal.NewFromFloat(c.params.ATRFallbackPct))
	}
	stopDist := vol.Mul(decimal.NewFromFloat(c.params.ATRMultiplier))
	if stopDist.LessThanOrEqual(decimalZero) {
		return TradeLevels{}
	}
	profitDist := stopDist.Mul(decimal.NewFromFloat(c.params.RiskReward))

	if d.Signal == decision.Long {
		return TradeLevels{Entry: entry, StopLoss: entry.Sub(stopDist), TakeProfit: entry.Add(profitDist)}
	}
	return TradeLevels{Entry: entry, StopLoss: entry.Add(stopDist), TakeProfit: entry.Sub(profitDist)}
}
