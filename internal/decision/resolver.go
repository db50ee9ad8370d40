package decision

import "math"

// Resolver 把分数对转换为方向判定。
type Resolver struct {
	margin float64
}

func NewResolver(p Params) Resolver {
	return Resolver{margin: p.withDefaults().DecisionMargin}
}

// Resolve 要求胜出一侧严格超过另一侧 margin 分，否则 Neutral。
func (r Resolver) Resolve(p ScorePair) Decision {
	switch {
	case p.Long > p.Short+r.margin:
		return Decision{Signal: Long, Strength: p.Long - p.Short}
	case p.Short > p.Long+r.margin:
		return Decision{Signal: Short, Strength: p.Short - p.Long}
	default:
		return Decision{Signal: Neutral, Strength: math.Abs(p.Long - p.Short)}
	}
}

// Resolve 使用默认边际 0.5。
func Resolve(p ScorePair) Decision {
	return NewResolver(DefaultParams()).Resolve(p)
}
