package market

import (
	"math"
	"time"
)

// Candle 是一根固定周期的 OHLCV K 线，时间为毫秒时间戳。
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}

// Time 返回收盘时间；缺失时回落到开盘时间。
func (c Candle) Time() time.Time {
	ts := c.CloseTime
	if ts == 0 {
		ts = c.OpenTime
	}
	return time.UnixMilli(ts).UTC()
}

// Valid reports whether the candle satisfies the OHLCV invariants.
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if c.Volume < 0 {
		return false
	}
	return c.High >= math.Max(c.Open, c.Close) && c.Low <= math.Min(c.Open, c.Close)
}

// Ticker 是 24h 成交统计中选币需要的部分。
type Ticker struct {
	Symbol      string  `json:"symbol"`
	QuoteVolume float64 `json:"quote_volume"`
	LastPrice   float64 `json:"last_price"`
}
