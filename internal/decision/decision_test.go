package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpbot/internal/market"
)

// twoBar 构造两根 K 线，cols 中每列给出 {previous, current}。
func twoBar(t *testing.T, closes [2]float64, cols map[market.Column][2]market.Value) market.Series {
	t.Helper()
	candles := make([]market.Candle, 2)
	for i, c := range closes {
		candles[i] = market.Candle{OpenTime: int64(i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	s := market.NewSeries("ETH/USDT", "1h", candles)
	for name, v := range cols {
		var err error
		s, err = s.WithColumn(name, []market.Value{v[0], v[1]})
		require.NoError(t, err)
	}
	return s
}

func cur(v float64) [2]market.Value { return [2]market.Value{market.None, market.Some(v)} }

func TestScoreRSIOversoldOnly(t *testing.T) {
	s := twoBar(t, [2]float64{100, 100}, map[market.Column][2]market.Value{
		market.RSI: cur(30),
	})
	out := NewScorer(DefaultParams()).Score(s)
	assert.Equal(t, ScorePair{Long: 2, Short: 0}, out.Scores)
	require.Len(t, out.Hits, 1)
	assert.Equal(t, "rsi_extreme", out.Hits[0].Rule)

	d := Resolve(out.Scores)
	assert.Equal(t, Long, d.Signal)
	assert.Equal(t, 2.0, d.Strength)
}

func TestScoreFewerThanTwoCandles(t *testing.T) {
	one := market.NewSeries("ETH/USDT", "1h", []market.Candle{{Open: 1, High: 1, Low: 1, Close: 1}})
	assert.Equal(t, Breakdown{}, NewScorer(DefaultParams()).Score(one))
	assert.Equal(t, Breakdown{}, NewScorer(DefaultParams()).Score(market.NewSeries("ETH/USDT", "1h", nil)))
}

func TestScoreUndefinedValuesDoNotFire(t *testing.T) {
	s := twoBar(t, [2]float64{100, 100}, map[market.Column][2]market.Value{
		market.RSI:      {market.None, market.None},
		market.MACDHist: {market.None, market.Some(1)},
		market.CCI:      {market.Some(-500), market.None},
	})
	out := NewScorer(DefaultParams()).Score(s)
	assert.Equal(t, ScorePair{}, out.Scores)
	assert.Empty(t, out.Hits)
}

func TestScoreMACDCross(t *testing.T) {
	up := twoBar(t, [2]float64{100, 100}, map[market.Column][2]market.Value{
		market.MACDHist: {market.Some(-0.2), market.Some(0.1)},
	})
	assert.Equal(t, ScorePair{Long: 2}, NewScorer(DefaultParams()).Score(up).Scores)

	down := twoBar(t, [2]float64{100, 100}, map[market.Column][2]market.Value{
		market.MACDHist: {market.Some(0.2), market.Some(-0.1)},
	})
	assert.Equal(t, ScorePair{Short: 2}, NewScorer(DefaultParams()).Score(down).Scores)

	flat := twoBar(t, [2]float64{100, 100}, map[market.Column][2]market.Value{
		market.MACDHist: {market.Some(0), market.Some(0.1)},
	})
	assert.Equal(t, ScorePair{}, NewScorer(DefaultParams()).Score(flat).Scores)
}

func TestScoreShortStack(t *testing.T) {
	s := twoBar(t, [2]float64{100, 90}, map[market.Column][2]market.Value{
		market.RSI:     cur(70),
		market.EMA20:   cur(95),
		market.EMA50:   cur(98),
		market.BBLower: cur(80),
		market.BBUpper: cur(89),
		market.StochK:  cur(85),
		market.StochD:  cur(82),
		market.CCI:     cur(150),
	})
	out := NewScorer(DefaultParams()).Score(s)
	assert.InDelta(t, 2+0.5+0.75+0.5+0.5, out.Scores.Short, 1e-9)
	assert.Zero(t, out.Scores.Long)
}

func TestTrendStrengthSeesRunningScores(t *testing.T) {
	// CCI 排在 ADX 之后，ADX 只看到 RSI 带来的空头领先。
	s := twoBar(t, [2]float64{100, 100}, map[market.Column][2]market.Value{
		market.RSI: cur(70),
		market.ADX: cur(30),
		market.CCI: cur(-150),
	})
	out := NewScorer(DefaultParams()).Score(s)
	assert.Equal(t, ScorePair{Long: 0.5, Short: 2.5}, out.Scores)

	rules := make([]string, 0, len(out.Hits))
	for _, h := range out.Hits {
		rules = append(rules, h.Rule)
	}
	assert.Equal(t, []string{"rsi_extreme", "trend_strength", "cci_extreme"}, rules)
}

func TestTrendStrengthTieDoesNotFire(t *testing.T) {
	s := twoBar(t, [2]float64{100, 100}, map[market.Column][2]market.Value{
		market.ADX: cur(40),
	})
	assert.Equal(t, ScorePair{}, NewScorer(DefaultParams()).Score(s).Scores)
}

func TestScorerCustomParams(t *testing.T) {
	p := DefaultParams()
	p.RSIOversold = 25
	s := twoBar(t, [2]float64{100, 100}, map[market.Column][2]market.Value{
		market.RSI: cur(30),
	})
	assert.Equal(t, ScorePair{}, NewScorer(p).Score(s).Scores)
}

func TestResolve(t *testing.T) {
	cases := []struct {
		in       ScorePair
		signal   Signal
		strength float64
	}{
		{ScorePair{Long: 2, Short: 0}, Long, 2},
		{ScorePair{Long: 0, Short: 2.75}, Short, 2.75},
		{ScorePair{Long: 1, Short: 0.5}, Neutral, 0.5},
		{ScorePair{Long: 0.5, Short: 1}, Neutral, 0.5},
		{ScorePair{Long: 1, Short: 1}, Neutral, 0},
		{ScorePair{}, Neutral, 0},
		{ScorePair{Long: 1.25, Short: 0.5}, Long, 0.75},
	}
	for _, tc := range cases {
		d := Resolve(tc.in)
		assert.Equal(t, tc.signal, d.Signal, "%v", tc.in)
		assert.InDelta(t, tc.strength, d.Strength, 1e-9, "%v", tc.in)
		if d.Signal != Neutral {
			assert.Greater(t, d.Strength, 0.5)
		}
	}
}

func TestResolverCustomMargin(t *testing.T) {
	p := DefaultParams()
	p.DecisionMargin = 2
	r := NewResolver(p)
	assert.Equal(t, Neutral, r.Resolve(ScorePair{Long: 2}).Signal)
	assert.Equal(t, Long, r.Resolve(ScorePair{Long: 2.5}).Signal)
}
