package decision

import "perpbot/internal/market"

// Snapshot 是规则可见的输入：当前、上一根以及此前规则累计的分数。
type Snapshot struct {
	Current  market.Row
	Previous market.Row
	Running  ScorePair
}

// Rule 描述一条评分规则。每条规则每侧至多触发一次；
// 任何所需值未定义时不触发。
type Rule interface {
	Name() string
	Evaluate(s Snapshot) (side Signal, weight float64, fired bool)
}

type ruleFunc struct {
	name string
	fn   func(Snapshot) (Signal, float64, bool)
}

func (r ruleFunc) Name() string { return r.name }

func (r ruleFunc) Evaluate(s Snapshot) (Signal, float64, bool) { return r.fn(s) }

// DefaultRules 按固定顺序返回七条规则。
// trend_strength 依赖前面规则的累计结果，必须排在 RSI/MACD/EMA/BB/Stoch 之后。
func DefaultRules(p Params) []Rule {
	p = p.withDefaults()
	return []Rule{
		rsiExtreme(p),
		macdCross(p),
		emaStack(p),
		bollingerBreach(p),
		stochExtreme(p),
		trendStrength(p),
		cciExtreme(p),
	}
}

func rsiExtreme(p Params) Rule {
	return ruleFunc{name: "rsi_extreme", fn: func(s Snapshot) (Signal, float64, bool) {
		rsi := s.Current.Get(market.RSI)
		if !rsi.Valid {
			return Neutral, 0, false
		}
		switch {
		case rsi.Float < p.RSIOversold:
			return Long, p.RSIWeight, true
		case rsi.Float > p.RSIOverbought:
			return Short, p.RSIWeight, true
		}
		return Neutral, 0, false
	}}
}

func macdCross(p Params) Rule {
	return ruleFunc{name: "macd_cross", fn: func(s Snapshot) (Signal, float64, bool) {
		cur, prev := s.Current.Get(market.MACDHist), s.Previous.Get(market.MACDHist)
		if !cur.Valid || !prev.Valid {
			return Neutral, 0, false
		}
		switch {
		case cur.Float > 0 && prev.Float < 0:
			return Long, p.MACDWeight, true
		case cur.Float < 0 && prev.Float > 0:
			return Short, p.MACDWeight, true
		}
		return Neutral, 0, false
	}}
}

func emaStack(p Params) Rule {
	return ruleFunc{name: "ema_stack", fn: func(s Snapshot) (Signal, float64, bool) {
		px, fast, slow := s.Current.Close(), s.Current.Get(market.EMA20), s.Current.Get(market.EMA50)
		if !px.Valid || !fast.Valid || !slow.Valid {
			return Neutral, 0, false
		}
		switch {
		case px.Float > fast.Float && fast.Float > slow.Float:
			return Long, p.EMAWeight, true
		case px.Float < fast.Float && fast.Float < slow.Float:
			return Short, p.EMAWeight, true
		}
		return Neutral, 0, false
	}}
}

func bollingerBreach(p Params) Rule {
	return ruleFunc{name: "bollinger_breach", fn: func(s Snapshot) (Signal, float64, bool) {
		px, lower, upper := s.Current.Close(), s.Current.Get(market.BBLower), s.Current.Get(market.BBUpper)
		if !px.Valid || !lower.Valid || !upper.Valid {
			return Neutral, 0, false
		}
		switch {
		case px.Float < lower.Float:
			return Long, p.BollingerWeight, true
		case px.Float > upper.Float:
			return Short, p.BollingerWeight, true
		}
		return Neutral, 0, false
	}}
}

func stochExtreme(p Params) Rule {
	return ruleFunc{name: "stoch_extreme", fn: func(s Snapshot) (Signal, float64, bool) {
		k, d := s.Current.Get(market.StochK), s.Current.Get(market.StochD)
		if !k.Valid || !d.Valid {
			return Neutral, 0, false
		}
		switch {
		case k.Float < p.StochOversold && d.Float < p.StochOversold:
			return Long, p.StochWeight, true
		case k.Float > p.StochOverbought && d.Float > p.StochOverbought:
			return Short, p.StochWeight, true
		}
		return Neutral, 0, false
	}}
}

// trendStrength 在 ADX 足够强时加强 Running 中已领先的一侧，平局不触发。
func trendStrength(p Params) Rule {
	return ruleFunc{name: "trend_strength", fn: func(s Snapshot) (Signal, float64, bool) {
		adx := s.Current.Get(market.ADX)
		if !adx.Valid || adx.Float <= p.ADXThreshold {
			return Neutral, 0, false
		}
		leader := s.Running.Leader()
		if leader == Neutral {
			return Neutral, 0, false
		}
		return leader, p.ADXWeight, true
	}}
}

func cciExtreme(p Params) Rule {
	return ruleFunc{name: "cci_extreme", fn: func(s Snapshot) (Signal, float64, bool) {
		cci := s.Current.Get(market.CCI)
		if !cci.Valid {
			return Neutral, 0, false
		}
		switch {
		case cci.Float < -p.CCIThreshold:
			return Long, p.CCIWeight, true
		case cci.Float > p.CCIThreshold:
			return Short, p.CCIWeight, true
		}
		return Neutral, 0, false
	}}
}
