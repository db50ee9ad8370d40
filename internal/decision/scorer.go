package decision

import "perpbot/internal/market"

// Scorer 依次执行规则并累计分数。
type Scorer struct {
	rules []Rule
}

// NewScorer 使用默认规则集；传入 rules 时按给定顺序执行。
func NewScorer(p Params, rules ...Rule) *Scorer {
	if len(rules) == 0 {
		rules = DefaultRules(p)
	}
	return &Scorer{rules: rules}
}

// Score 读取最后两根 K 线；不足两根返回零分。
func (s *Scorer) Score(series market.Series) Breakdown {
	if series.Len() < 2 {
		return Breakdown{}
	}
	snap := Snapshot{Current: series.Current(), Previous: series.Previous()}
	var hits []RuleHit
	for _, rule := range s.rules {
		if rule == nil {
			continue
		}
		side, w, fired := rule.Evaluate(snap)
		if !fired || w <= 0 || (side != Long && side != Short) {
			continue
		}
		snap.Running = snap.Running.add(side, w)
		hits = append(hits, RuleHit{Rule: rule.Name(), Side: side, Weight: w})
	}
	return Breakdown{Scores: snap.Running, Hits: hits}
}
