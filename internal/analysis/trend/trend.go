package trend

import "perpbot/internal/market"

// Trend 是基于均线位置的趋势分类，只用于叙述上下文。
type Trend string

const (
	Bullish  Trend = "Bullish"
	Bearish  Trend = "Bearish"
	Sideways Trend = "Sideways"
	Unknown  Trend = "Unknown"
)

func (t Trend) String() string { return string(t) }

// Classify 读取最后一根的 close / SMA20 / SMA50。
func Classify(series market.Series) Trend {
	if series.Empty() {
		return Unknown
	}
	cur := series.Current()
	px, sma20, sma50 := cur.Close(), cur.Get(market.SMA20), cur.Get(market.SMA50)
	if !px.Valid || !sma20.Valid || !sma50.Valid {
		return Unknown
	}
	switch {
	case px.Float > sma50.Float && sma20.Float > sma50.Float:
		return Bullish
	case px.Float < sma50.Float && sma20.Float < sma50.Float:
		return Bearish
	default:
		return Sideways
	}
}
