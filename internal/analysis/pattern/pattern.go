// Package pattern 在收盘价序列上识别简单的价格结构（双底、双顶、收敛、波动压缩）。
// 结果只作为周期报告的附加信息，不参与评分。
package pattern

import (
	"fmt"
	"math"
	"slices"

	"perpbot/internal/market"
)

type Kind string

const (
	DoubleBottom Kind = "double_bottom"
	DoubleTop    Kind = "double_top"
	Triangle     Kind = "triangle"
	Compression  Kind = "compression"
)

// Pattern 是一个识别结果；Level 只对双底/双顶有意义。
type Pattern struct {
	Kind  Kind    `json:"kind"`
	Level float64 `json:"level,omitempty"`
}

func (p Pattern) String() string {
	if p.Level > 0 {
		return fmt.Sprintf("%s@%.4f", p.Kind, p.Level)
	}
	return string(p.Kind)
}

const (
	// 两个极值相差不超过 0.4% 视为同一水平
	twinTolerance = 0.004
	minTwinBars   = 20
	minTriangle   = 30
	minCompress   = 40
)

// Detect 按固定顺序返回识别到的结构；K 线不足时返回空切片。
func Detect(series market.Series) []Pattern {
	n := series.Len()
	out := []Pattern{}
	if n == 0 {
		return out
	}
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range series.Candles {
		highs[i] = c.High
		lows[i] = c.Low
	}
	if lvl, ok := twin(lows, func(a, b float64) bool { return a < b }); ok {
		out = append(out, Pattern{Kind: DoubleBottom, Level: lvl})
	}
	if lvl, ok := twin(highs, func(a, b float64) bool { return a > b }); ok {
		out = append(out, Pattern{Kind: DoubleTop, Level: lvl})
	}
	if converging(highs, lows) {
		out = append(out, Pattern{Kind: Triangle})
	}
	if compressing(highs, lows) {
		out = append(out, Pattern{Kind: Compression})
	}
	return out
}

// twin 在后半段找两个相隔至少 3 根的同向极值。better(a, b) 表示 a 比 b 更极端。
func twin(values []float64, better func(a, b float64) bool) (float64, bool) {
	if len(values) < minTwinBars {
		return 0, false
	}
	window := values[len(values)/2:]
	first := extreme(window, -1, better)
	second := extreme(window, first, better)
	if first < 0 || second < 0 {
		return 0, false
	}
	a, b := window[first], window[second]
	if math.Abs(a-b)/math.Max(math.Abs(a), 1) > twinTolerance {
		return 0, false
	}
	if d := second - first; d < 3 && d > -3 {
		return 0, false
	}
	return (a + b) / 2, true
}

// extreme 返回最极端值的下标；skip >= 0 时跳过其左右两根。
func extreme(values []float64, skip int, better func(a, b float64) bool) int {
	idx := -1
	for i, v := range values {
		if skip >= 0 && i >= skip-2 && i <= skip+2 {
			continue
		}
		if idx < 0 || better(v, values[idx]) {
			idx = i
		}
	}
	return idx
}

func halves(values []float64) ([]float64, []float64) {
	mid := len(values) / 2
	return values[:mid], values[mid:]
}

// converging: 后半段高点更低、低点更高，且区间宽度收窄超过 5%。
func converging(highs, lows []float64) bool {
	if len(highs) < minTriangle {
		return false
	}
	h1, h2 := halves(highs)
	l1, l2 := halves(lows)
	top1, top2 := slices.Max(h1), slices.Max(h2)
	bot1, bot2 := slices.Min(l1), slices.Min(l2)
	if top2 >= top1 || bot2 <= bot1 || top1 <= 0 {
		return false
	}
	return ((top1-bot1)-(top2-bot2))/top1 > 0.05
}

// compressing: 后半段相对振幅不到前半段的 65%。
func compressing(highs, lows []float64) bool {
	if len(highs) < minCompress {
		return false
	}
	h1, h2 := halves(highs)
	l1, l2 := halves(lows)
	r1 := relRange(h1, l1)
	r2 := relRange(h2, l2)
	return r1 > 0 && r2 < r1*0.65
}

func relRange(highs, lows []float64) float64 {
	top := slices.Max(highs)
	if top <= 0 {
		return 0
	}
	return (top - slices.Min(lows)) / top
}
