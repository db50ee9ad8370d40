package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"perpbot/internal/logger"
	"perpbot/internal/market"
)

// 均线长度固定，不随配置变化。
const (
	shortMALength = 20
	longMALength  = 50
)

// Settings 描述各指标的周期参数，零值字段在 withDefaults 中补齐。
type Settings struct {
	RSIPeriod       int     `json:"rsi_period"`
	MACDFast        int     `json:"macd_fast"`
	MACDSlow        int     `json:"macd_slow"`
	MACDSignal      int     `json:"macd_signal"`
	BollingerPeriod int     `json:"bollinger_period"`
	BollingerStdDev float64 `json:"bollinger_std"`
	ATRPeriod       int     `json:"atr_period"`
	StochK          int     `json:"stoch_k"`
	StochSmoothK    int     `json:"stoch_smooth_k"`
	StochD          int     `json:"stoch_d"`
	ADXPeriod       int     `json:"adx_period"`
	CCIPeriod       int     `json:"cci_period"`
}

// DefaultSettings 返回 RSI14 / MACD12-26-9 / BB20-2 / ATR14 / Stoch14-3-3 / ADX14 / CCI14。
func DefaultSettings() Settings {
	return Settings{}.withDefaults()
}

func (s Settings) withDefaults() Settings {
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setInt(&s.RSIPeriod, 14)
	setInt(&s.MACDFast, 12)
	setInt(&s.MACDSlow, 26)
	setInt(&s.MACDSignal, 9)
	setInt(&s.BollingerPeriod, 20)
	setInt(&s.ATRPeriod, 14)
	setInt(&s.StochK, 14)
	setInt(&s.StochSmoothK, 3)
	setInt(&s.StochD, 3)
	setInt(&s.ADXPeriod, 14)
	setInt(&s.CCIPeriod, 14)
	if s.BollingerStdDev <= 0 {
		s.BollingerStdDev = 2
	}
	if s.MACDFast > s.MACDSlow {
		s.MACDFast, s.MACDSlow = s.MACDSlow, s.MACDFast
	}
	return s
}

// Engine 在整段历史上计算全部指标列。
type Engine struct {
	cfg Settings
}

func NewEngine(cfg Settings) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

func (e *Engine) Settings() Settings { return e.cfg }

// Enrich 返回带指标列的新序列。空序列原样返回。
// 每列在 lookback 之前的位置为未定义；历史不足整列未定义。
func (e *Engine) Enrich(series market.Series) market.Series {
	if series.Empty() {
		return series
	}
	in := splitOHLCV(series.Candles)
	out := series
	for _, col := range e.columns(in) {
		next, err := out.WithColumn(col.name, col.values)
		if err != nil {
			logger.Warnf("[indicator] %s %s: %v", series.Symbol, col.name, err)
			continue
		}
		out = next
	}
	return out
}

type ohlcv struct {
	highs, lows, closes, volumes []float64
}

func splitOHLCV(candles []market.Candle) ohlcv {
	in := ohlcv{
		highs:   make([]float64, len(candles)),
		lows:    make([]float64, len(candles)),
		closes:  make([]float64, len(candles)),
		volumes: make([]float64, len(candles)),
	}
	for i, c := range candles {
		in.highs[i] = c.High
		in.lows[i] = c.Low
		in.closes[i] = c.Close
		in.volumes[i] = c.Volume
	}
	return in
}

type column struct {
	name   market.Column
	values []market.Value
}

func (e *Engine) columns(in ohlcv) []column {
	cfg := e.cfg
	n := len(in.closes)
	lb := lookbacks(cfg)
	cols := make([]column, 0, 17)
	add := func(name market.Column, lookback int, series []float64) []market.Value {
		values := mask(series, lookback, n)
		cols = append(cols, column{name: name, values: values})
		return values
	}
	enough := func(lookback int) bool { return n > lookback }

	if enough(lb.sma20) {
		add(market.SMA20, lb.sma20, talib.Sma(in.closes, shortMALength))
		add(market.EMA20, lb.ema20, talib.Ema(in.closes, shortMALength))
	} else {
		add(market.SMA20, lb.sma20, nil)
		add(market.EMA20, lb.ema20, nil)
	}
	if enough(lb.sma50) {
		add(market.SMA50, lb.sma50, talib.Sma(in.closes, longMALength))
		add(market.EMA50, lb.ema50, talib.Ema(in.closes, longMALength))
	} else {
		add(market.SMA50, lb.sma50, nil)
		add(market.EMA50, lb.ema50, nil)
	}

	var rsi []float64
	if enough(lb.rsi) {
		rsi = talib.Rsi(in.closes, cfg.RSIPeriod)
	}
	undefine(add(market.RSI, lb.rsi, rsi), unchanged(in.closes))

	var macd, signal, hist []float64
	if enough(lb.macd) {
		macd, signal, hist = talib.Macd(in.closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	}
	add(market.MACD, lb.macd, macd)
	add(market.MACDSignal, lb.macd, signal)
	add(market.MACDHist, lb.macd, hist)

	var upper, middle, lower []float64
	if enough(lb.bollinger) {
		upper, middle, lower = talib.BBands(in.closes, cfg.BollingerPeriod, cfg.BollingerStdDev, cfg.BollingerStdDev, talib.SMA)
	}
	add(market.BBLower, lb.bollinger, lower)
	add(market.BBMiddle, lb.bollinger, middle)
	add(market.BBUpper, lb.bollinger, upper)

	var atr []float64
	if enough(lb.atr) {
		atr = talib.Atr(in.highs, in.lows, in.closes, cfg.ATRPeriod)
	}
	add(market.ATR, lb.atr, atr)

	var k, d []float64
	if enough(lb.stoch) {
		k, d = talib.Stoch(in.highs, in.lows, in.closes, cfg.StochK, cfg.StochSmoothK, talib.SMA, cfg.StochD, talib.SMA)
	}
	flatK := spread(flatRange(in.highs, in.lows, cfg.StochK), cfg.StochSmoothK)
	undefine(add(market.StochK, lb.stoch, k), flatK)
	undefine(add(market.StochD, lb.stoch, d), spread(flatK, cfg.StochD))

	var adx []float64
	if enough(lb.adx) {
		adx = talib.Adx(in.highs, in.lows, in.closes, cfg.ADXPeriod)
	}
	add(market.ADX, lb.adx, adx)

	add(market.OBV, 0, talib.Obv(in.closes, in.volumes))

	var cci []float64
	if enough(lb.cci) {
		cci = talib.Cci(in.highs, in.lows, in.closes, cfg.CCIPeriod)
	}
	undefine(add(market.CCI, lb.cci, cci), constantTypical(in, cfg.CCIPeriod))
	return cols
}

// mask 把 talib 的零填充预热段转换为未定义值。
func mask(series []float64, lookback, n int) []market.Value {
	out := make([]market.Value, n)
	if len(series) != n {
		return out
	}
	for i := lookback; i < n; i++ {
		if i < 0 {
			continue
		}
		v := series[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = market.Some(v)
	}
	return out
}

// undefine 把分母为零的位置置为未定义；talib 在这些位置返回 0。
func undefine(values []market.Value, bad []bool) {
	for i := range values {
		if i < len(bad) && bad[i] {
			values[i] = market.Value{}
		}
	}
}

// unchanged[i]: closes[0..i] 没有任何变动，RSI 的平均涨跌幅同为 0。
func unchanged(closes []float64) []bool {
	out := make([]bool, len(closes))
	for i := range closes {
		out[i] = i == 0 || (out[i-1] && closes[i] == closes[i-1])
	}
	return out
}

// flatRange[i]: 最近 period 根的最高价等于最低价。
func flatRange(highs, lows []float64, period int) []bool {
	out := make([]bool, len(highs))
	for i := period - 1; i < len(highs); i++ {
		hi, lo := highs[i], lows[i]
		for j := i - period + 1; j < i; j++ {
			hi = math.Max(hi, highs[j])
			lo = math.Min(lo, lows[j])
		}
		out[i] = hi == lo
	}
	return out
}

// constantTypical[i]: 最近 period 根典型价全部相等，CCI 的平均偏差为 0。
func constantTypical(in ohlcv, period int) []bool {
	n := len(in.closes)
	tp := make([]float64, n)
	for i := range tp {
		tp[i] = (in.highs[i] + in.lows[i] + in.closes[i]) / 3
	}
	out := make([]bool, n)
	for i := period - 1; i < n; i++ {
		same := true
		for j := i - period + 1; j < i && same; j++ {
			same = tp[j] == tp[i]
		}
		out[i] = same
	}
	return out
}

// spread 让平滑窗口内任一未定义位置传染到窗口末端。
func spread(bad []bool, window int) []bool {
	out := make([]bool, len(bad))
	last := -1
	for i, b := range bad {
		if b {
			last = i
		}
		out[i] = last >= 0 && i-last < window
	}
	return out
}
