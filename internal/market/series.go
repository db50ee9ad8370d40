package market

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Column 是指标列名，与 Series 中的 K 线按下标对齐。
type Column string

const (
	SMA20      Column = "sma20"
	SMA50      Column = "sma50"
	EMA20      Column = "ema20"
	EMA50      Column = "ema50"
	RSI        Column = "rsi"
	MACD       Column = "macd"
	MACDSignal Column = "macd_signal"
	MACDHist   Column = "macd_hist"
	BBLower    Column = "bb_lower"
	BBMiddle   Column = "bb_middle"
	BBUpper    Column = "bb_upper"
	ATR        Column = "atr"
	StochK     Column = "stoch_k"
	StochD     Column = "stoch_d"
	ADX        Column = "adx"
	OBV        Column = "obv"
	CCI        Column = "cci"
)

// Value 是可能未定义的指标值。未定义表示预热期或输入不足，
// 读取方必须把它当作"规则不触发"，不能当作 0。
type Value struct {
	Float float64
	Valid bool
}

// Some 构造一个已定义的值；NaN/Inf 视为未定义。
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{Float: v, Valid: true}
}

// None 是未定义值。
var None = Value{}

func (v Value) String() string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v.Float)
}

// Series 是单个 symbol/周期的有序 K 线以及按列存放的指标。
type Series struct {
	Symbol   string
	Interval string
	Candles  []Candle

	columns map[Column][]Value
}

// NewSeries 复制 candles 构造序列。
func NewSeries(symbol, interval string, candles []Candle) Series {
	dst := make([]Candle, len(candles))
	copy(dst, candles)
	return Series{
		Symbol:   strings.TrimSpace(symbol),
		Interval: NormalizeInterval(interval),
		Candles:  dst,
	}
}

func (s Series) Len() int { return len(s.Candles) }

func (s Series) Empty() bool { return len(s.Candles) == 0 }

// WithColumn 返回挂载了新列的副本；长度与 K 线不一致的列被拒绝。
func (s Series) WithColumn(name Column, values []Value) (Series, error) {
	if len(values) != len(s.Candles) {
		return s, fmt.Errorf("column %s length %d != candles %d", name, len(values), len(s.Candles))
	}
	out := s
	out.columns = make(map[Column][]Value, len(s.columns)+1)
	for k, v := range s.columns {
		out.columns[k] = v
	}
	cp := make([]Value, len(values))
	copy(cp, values)
	out.columns[name] = cp
	return out, nil
}

// Has reports whether the column was computed at all.
func (s Series) Has(name Column) bool {
	_, ok := s.columns[name]
	return ok
}

// Columns 返回已计算的列名（排序后）。
func (s Series) Columns() []Column {
	out := make([]Column, 0, len(s.columns))
	for k := range s.columns {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// At 读取第 idx 根 K 线上的指标；越界或未计算均为未定义。
func (s Series) At(name Column, idx int) Value {
	col, ok := s.columns[name]
	if !ok || idx < 0 || idx >= len(col) {
		return None
	}
	return col[idx]
}

// Column 返回整列副本。
func (s Series) Column(name Column) []Value {
	col := s.columns[name]
	if col == nil {
		return nil
	}
	out := make([]Value, len(col))
	copy(out, col)
	return out
}

// Row 返回第 idx 根 K 线的行视图。
func (s Series) Row(idx int) Row {
	return Row{series: s, idx: idx}
}

// Current 是最后一根。
func (s Series) Current() Row { return s.Row(len(s.Candles) - 1) }

// Previous 是倒数第二根。
func (s Series) Previous() Row { return s.Row(len(s.Candles) - 2) }

// Row 是 Series 上某一位置的只读视图。
type Row struct {
	series Series
	idx    int
}

func (r Row) Index() int { return r.idx }

func (r Row) Exists() bool { return r.idx >= 0 && r.idx < len(r.series.Candles) }

func (r Row) Candle() (Candle, bool) {
	if !r.Exists() {
		return Candle{}, false
	}
	return r.series.Candles[r.idx], true
}

// Close 返回收盘价；行不存在或价格非有限数时为未定义。
func (r Row) Close() Value {
	c, ok := r.Candle()
	if !ok {
		return None
	}
	return Some(c.Close)
}

func (r Row) Get(name Column) Value {
	return r.series.At(name, r.idx)
}
