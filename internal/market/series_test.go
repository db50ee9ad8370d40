package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCandles(n int) []Candle {
	out := make([]Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = Candle{OpenTime: int64(i) * 3_600_000, Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 10}
	}
	return out
}

func TestSeriesRowsAndColumns(t *testing.T) {
	s := NewSeries("ETH/USDT", "1H", sampleCandles(3))
	assert.Equal(t, "1h", s.Interval)
	assert.Equal(t, 3, s.Len())

	s, err := s.WithColumn(RSI, []Value{None, Some(40), Some(30)})
	require.NoError(t, err)

	assert.True(t, s.Has(RSI))
	assert.False(t, s.Has(ATR))
	assert.Equal(t, Some(30), s.Current().Get(RSI))
	assert.Equal(t, Some(40), s.Previous().Get(RSI))
	assert.False(t, s.Row(0).Get(RSI).Valid)
	assert.False(t, s.Current().Get(ATR).Valid)
	assert.Equal(t, 102.0, s.Current().Close().Float)
}

func TestSeriesRejectsMisalignedColumn(t *testing.T) {
	s := NewSeries("ETH/USDT", "1h", sampleCandles(3))
	_, err := s.WithColumn(RSI, []Value{Some(1)})
	assert.Error(t, err)
}

func TestWithColumnDoesNotMutateOriginal(t *testing.T) {
	base := NewSeries("ETH/USDT", "1h", sampleCandles(2))
	enriched, err := base.WithColumn(CCI, []Value{Some(1), Some(2)})
	require.NoError(t, err)
	assert.False(t, base.Has(CCI))
	assert.True(t, enriched.Has(CCI))
}

func TestEmptySeriesRows(t *testing.T) {
	s := NewSeries("BTC/USDT", "1h", nil)
	assert.True(t, s.Empty())
	assert.False(t, s.Current().Exists())
	assert.False(t, s.Previous().Close().Valid)
}

func TestSomeRejectsNonFinite(t *testing.T) {
	assert.False(t, Some(math.NaN()).Valid)
	assert.False(t, Some(math.Inf(1)).Valid)
	assert.Equal(t, "n/a", None.String())
	assert.Equal(t, "1.5000", Some(1.5).String())
}

func TestCandleValid(t *testing.T) {
	assert.True(t, Candle{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 1}.Valid())
	assert.False(t, Candle{Open: 1, High: 1.2, Low: 0.5, Close: 1.5, Volume: 1}.Valid())
	assert.False(t, Candle{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: -1}.Valid())
}

func TestParseInterval(t *testing.T) {
	d, ok := ParseInterval("1h")
	assert.True(t, ok)
	assert.Equal(t, time.Hour, d)
	d, ok = ParseInterval(" 4H ")
	assert.True(t, ok)
	assert.Equal(t, 4*time.Hour, d)
	d, ok = ParseInterval("1m")
	assert.True(t, ok)
	assert.Equal(t, time.Minute, d)
	d, ok = ParseInterval("1M")
	assert.True(t, ok)
	assert.Equal(t, 31*24*time.Hour, d)
	for _, bad := range []string{"", "h", "0h", "5x", "-1d"} {
		_, ok := ParseInterval(bad)
		assert.False(t, ok, bad)
	}
}

func TestNormalizeIntervalKeepsMonth(t *testing.T) {
	assert.Equal(t, "1M", NormalizeInterval(" 1M "))
	assert.Equal(t, "1m", NormalizeInterval("1m"))
	assert.Equal(t, "4h", NormalizeInterval("4H"))
	assert.Equal(t, "1M", NewSeries("BTC/USDT", "1M", nil).Interval)
}

func TestDropUnclosed(t *testing.T) {
	candles := sampleCandles(3)
	lastOpen := time.UnixMilli(candles[2].OpenTime)

	open := DropUnclosed(candles, time.Hour, lastOpen.Add(30*time.Minute))
	assert.Len(t, open, 2)

	closed := DropUnclosed(candles, time.Hour, lastOpen.Add(time.Hour+time.Minute))
	assert.Len(t, closed, 3)
}
