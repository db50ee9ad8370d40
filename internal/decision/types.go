package decision

import "fmt"

// Signal 是方向判定结果。
type Signal string

const (
	Long    Signal = "Long"
	Short   Signal = "Short"
	Neutral Signal = "Neutral"
)

func (s Signal) String() string { return string(s) }

// ScorePair 是多空两侧的累计证据分，只做加法，不设上限。
type ScorePair struct {
	Long  float64 `json:"long"`
	Short float64 `json:"short"`
}

// Leader 返回当前领先的一侧；相等时为 Neutral。
func (p ScorePair) Leader() Signal {
	switch {
	case p.Long > p.Short:
		return Long
	case p.Short > p.Long:
		return Short
	default:
		return Neutral
	}
}

func (p ScorePair) add(side Signal, w float64) ScorePair {
	switch side {
	case Long:
		p.Long += w
	case Short:
		p.Short += w
	}
	return p
}

func (p ScorePair) String() string {
	return fmt.Sprintf("long=%.2f short=%.2f", p.Long, p.Short)
}

// Decision 是最终判定：方向 + 强度 |long-short|。
type Decision struct {
	Signal   Signal  `json:"signal"`
	Strength float64 `json:"strength"`
}

func (d Decision) Directional() bool { return d.Signal == Long || d.Signal == Short }

// RuleHit 记录一次规则触发，便于日志与报告追溯。
type RuleHit struct {
	Rule   string  `json:"rule"`
	Side   Signal  `json:"side"`
	Weight float64 `json:"weight"`
}

// Breakdown 是评分结果及触发明细。
type Breakdown struct {
	Scores ScorePair `json:"scores"`
	Hits   []RuleHit `json:"hits,omitempty"`
}
