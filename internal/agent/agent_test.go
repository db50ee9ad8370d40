package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"perpbot/internal/decision"
	"perpbot/internal/gateway/exchange"
	"perpbot/internal/gateway/notifier"
	"perpbot/internal/gateway/provider"
	"perpbot/internal/market"
	"perpbot/internal/store/tradelog"
)

type MockRanker struct{ mock.Mock }

func (m *MockRanker) Top(ctx context.Context, n int) ([]string, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockCandles struct{ mock.Mock }

func (m *MockCandles) FetchCandles(ctx context.Context, symbol, interval string, limit int) (market.Series, error) {
	args := m.Called(ctx, symbol, interval, limit)
	return args.Get(0).(market.Series), args.Error(1)
}

type MockExecutor struct{ mock.Mock }

func (m *MockExecutor) OpenPosition(ctx context.Context, symbol string, side exchange.Side) (exchange.OrderReceipt, error) {
	args := m.Called(ctx, symbol, side)
	return args.Get(0).(exchange.OrderReceipt), args.Error(1)
}

type MockOverview struct{ mock.Mock }

func (m *MockOverview) Overview(ctx context.Context, symbol string) (string, error) {
	args := m.Called(ctx, symbol)
	return args.String(0), args.Error(1)
}

type MockModel struct{ mock.Mock }

func (m *MockModel) ID() string { return "mock" }
func (m *MockModel) Call(ctx context.Context, payload provider.ChatPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

type MockUploader struct{ mock.Mock }

func (m *MockUploader) Upload(ctx context.Context, content string) (string, error) {
	args := m.Called(ctx, content)
	return args.String(0), args.Error(1)
}
func (m *MockUploader) GatewayURL(cid string) string { return "https://ipfs.io/ipfs/" + cid }

type MockTradeLog struct{ mock.Mock }

func (m *MockTradeLog) Load(ctx context.Context) ([]tradelog.TradeRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tradelog.TradeRecord), args.Error(1)
}
func (m *MockTradeLog) Save(ctx context.Context, records []tradelog.TradeRecord) error {
	return m.Called(ctx, records).Error(0)
}
func (m *MockTradeLog) Append(ctx context.Context, rec tradelog.TradeRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type fixture struct {
	ranker   *MockRanker
	candles  *MockCandles
	executor *MockExecutor
	overview *MockOverview
	model    *MockModel
	uploader *MockUploader
	trades   *MockTradeLog
	svc      *Service
}

// trendSeries 生成单边行情：step<0 时 RSI 为 0，step>0 时为 100。
func trendSeries(symbol string, step float64) market.Series {
	candles := make([]market.Candle, 0, 80)
	for i := 0; i < 80; i++ {
		c := 500 + step*float64(i)
		candles = append(candles, market.Candle{
			OpenTime:  int64(i) * time.Hour.Milliseconds(),
			CloseTime: int64(i+1)*time.Hour.Milliseconds() - 1,
			Open:      c - step/2,
			High:      c + 2,
			Low:       c - 2,
			Close:     c,
			Volume:    10,
		})
	}
	return market.NewSeries(symbol, "1h", candles)
}

// rsiDominant 让 RSI 规则的权重压过其它规则，结果只取决于 RSI 方向。
func rsiDominant() Analysis {
	a := DefaultAnalysis()
	a.Signal.RSIWeight = 10
	return a
}

func newFixture(t *testing.T, a Analysis) *fixture {
	t.Helper()
	f := &fixture{
		ranker:   new(MockRanker),
		candles:  new(MockCandles),
		executor: new(MockExecutor),
		overview: new(MockOverview),
		model:    new(MockModel),
		uploader: new(MockUploader),
		trades:   new(MockTradeLog),
	}
	svc, err := NewService(ServiceParams{
		Ranker:   f.ranker,
		Candles:  f.candles,
		Executor: f.executor,
		Overview: f.overview,
		Model:    f.model,
		Uploader: f.uploader,
		Trades:   f.trades,
		Analysis: a,
	})
	require.NoError(t, err)
	svc.pick = func(int) int { return 0 }
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local) }
	f.svc = svc
	return f
}

func receipt(symbol string) exchange.OrderReceipt {
	return exchange.OrderReceipt{OrderID: 42, Symbol: symbol, Side: "BUY", Quantity: "0.016", Price: 3000, Leverage: 5, Status: "FILLED"}
}

func TestRunCycleTradedLong(t *testing.T) {
	f := newFixture(t, rsiDominant())
	f.ranker.On("Top", mock.Anything, 20).Return([]string{"ETH/USDT", "BTC/USDT"}, nil)
	f.candles.On("FetchCandles", mock.Anything, "ETH/USDT", "1h", 200).Return(trendSeries("ETH/USDT", -1), nil)
	f.executor.On("OpenPosition", mock.Anything, "ETH/USDT", exchange.SideLong).Return(receipt("ETH/USDT"), nil)
	f.overview.On("Overview", mock.Anything, "ETH/USDT").Return("looks strong", nil)
	f.model.On("Call", mock.Anything, mock.MatchedBy(func(p provider.ChatPayload) bool {
		return strings.Contains(p.User, "Token Metrics AI: looks strong") && strings.Contains(p.User, "Signal: Long")
	})).Return("  Buy the dip.  ", nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return("bafyreport", nil)
	f.trades.On("Append", mock.Anything, mock.MatchedBy(func(rec tradelog.TradeRecord) bool {
		return rec.Symbol == "ETH/USDT" && rec.CID == "bafyreport" && rec.Datetime == "2025-01-02 03:04:05" &&
			rec.Side == "long" && rec.Meta["order_id"] == "42" && rec.TraceID != ""
	})).Return(nil)

	res, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTraded, res.Outcome)
	assert.NotNil(t, res.Patterns)
	assert.Equal(t, "ETH/USDT", res.Symbol)
	assert.Equal(t, decision.Long, res.Decision.Signal)
	assert.False(t, res.Levels.IsZero())
	assert.True(t, res.Levels.StopLoss.LessThan(res.Levels.Entry))
	assert.Contains(t, res.Report, "Pair:         ETH/USDT")
	assert.Contains(t, res.Report, "AI Summary:   Buy the dip.")
	assert.Contains(t, res.Report, "Risk-Reward:  1:2.0")
	assert.Equal(t, "Uploaded to Storacha: https://ipfs.io/ipfs/bafyreport", res.UploadReply)
	assert.Equal(t, []string{res.Report, res.UploadReply}, res.Replies())

	f.uploader.AssertCalled(t, "Upload", mock.Anything, res.Report)
	mock.AssertExpectationsForObjects(t, f.ranker, f.candles, f.executor, f.overview, f.model, f.uploader, f.trades)
}

func TestRunCycleShortWithDegradedNarrative(t *testing.T) {
	f := newFixture(t, rsiDominant())
	f.ranker.On("Top", mock.Anything, 20).Return([]string{"SOL/USDT"}, nil)
	f.candles.On("FetchCandles", mock.Anything, "SOL/USDT", "1h", 200).Return(trendSeries("SOL/USDT", 1), nil)
	f.executor.On("OpenPosition", mock.Anything, "SOL/USDT", exchange.SideShort).Return(receipt("SOL/USDT"), nil)
	f.overview.On("Overview", mock.Anything, "SOL/USDT").Return("", errors.New("tm down"))
	f.model.On("Call", mock.Anything, mock.Anything).Return("", errors.New("quota"))
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return("", errors.New("timeout"))
	f.trades.On("Append", mock.Anything, mock.MatchedBy(func(rec tradelog.TradeRecord) bool {
		return rec.CID == "Error uploading to Storacha: timeout"
	})).Return(nil)

	res, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, decision.Short, res.Decision.Signal)
	assert.False(t, res.Overview.OK())
	assert.Contains(t, res.Report, "AI Summary:   Error generating summary: quota")
	assert.Equal(t, "Upload failed: Error uploading to Storacha: timeout", res.UploadReply)
	assert.True(t, res.Levels.StopLoss.GreaterThan(res.Levels.Entry))
	f.trades.AssertExpectations(t)
}

func TestRunCycleNeutral(t *testing.T) {
	a := DefaultAnalysis()
	a.Signal.DecisionMargin = 1000
	f := newFixture(t, a)
	f.ranker.On("Top", mock.Anything, 20).Return([]string{"ETH/USDT"}, nil)
	f.candles.On("FetchCandles", mock.Anything, "ETH/USDT", "1h", 200).Return(trendSeries("ETH/USDT", -1), nil)

	res, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeutral, res.Outcome)
	assert.Equal(t, []string{"Signal is Neutral for ETH/USDT. No trade opened."}, res.Replies())
	f.executor.AssertNotCalled(t, "OpenPosition", mock.Anything, mock.Anything, mock.Anything)
	f.trades.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestRunCycleDataUnavailable(t *testing.T) {
	f := newFixture(t, DefaultAnalysis())
	f.ranker.On("Top", mock.Anything, 20).Return(nil, errors.New("connection refused"))

	_, err := f.svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, "Error fetching symbols: connection refused", FailureReply(err))
	f.candles.AssertNotCalled(t, "FetchCandles", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCycleNoSymbols(t *testing.T) {
	f := newFixture(t, DefaultAnalysis())
	f.ranker.On("Top", mock.Anything, 20).Return([]string{}, nil)

	_, err := f.svc.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrNoCandidate)
	assert.Equal(t, "No valid symbols found.", FailureReply(err))
}

func TestRunCycleExhaustsAttempts(t *testing.T) {
	f := newFixture(t, DefaultAnalysis())
	calls := 0
	f.svc.pick = func(n int) int {
		calls++
		return calls % n
	}
	f.ranker.On("Top", mock.Anything, 20).Return([]string{"A/USDT", "B/USDT"}, nil)
	f.candles.On("FetchCandles", mock.Anything, "A/USDT", "1h", 200).Return(market.Series{}, nil)
	f.candles.On("FetchCandles", mock.Anything, "B/USDT", "1h", 200).Return(market.Series{}, errors.New("429"))

	_, err := f.svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCandidate)
	assert.Contains(t, err.Error(), "5 attempts failed")
	assert.Contains(t, err.Error(), "A/USDT: empty series")
	assert.Contains(t, err.Error(), "B/USDT: fetch candles: 429")
	assert.Equal(t, "Unable to find a valid trading pair.", FailureReply(err))
	f.candles.AssertNumberOfCalls(t, "FetchCandles", 5)
}

func TestRunCycleExecutionFailureWritesNoLog(t *testing.T) {
	f := newFixture(t, rsiDominant())
	f.ranker.On("Top", mock.Anything, 20).Return([]string{"ETH/USDT"}, nil)
	f.candles.On("FetchCandles", mock.Anything, "ETH/USDT", "1h", 200).Return(trendSeries("ETH/USDT", -1), nil)
	f.executor.On("OpenPosition", mock.Anything, "ETH/USDT", exchange.SideLong).
		Return(exchange.OrderReceipt{}, errors.New("insufficient margin"))

	_, err := f.svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecution)
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "ETH/USDT", ce.Symbol)
	assert.Equal(t, "Failed to open position: insufficient margin", FailureReply(err))
	f.trades.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestRunCycleLogFailureIsReported(t *testing.T) {
	f := newFixture(t, rsiDominant())
	f.ranker.On("Top", mock.Anything, 20).Return([]string{"ETH/USDT"}, nil)
	f.candles.On("FetchCandles", mock.Anything, "ETH/USDT", "1h", 200).Return(trendSeries("ETH/USDT", -1), nil)
	f.executor.On("OpenPosition", mock.Anything, "ETH/USDT", exchange.SideLong).Return(receipt("ETH/USDT"), nil)
	f.overview.On("Overview", mock.Anything, "ETH/USDT").Return("x", nil)
	f.model.On("Call", mock.Anything, mock.Anything).Return("y", nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return("bafy", nil)
	f.trades.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	res, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)
	replies := res.Replies()
	require.Len(t, replies, 3)
	assert.Equal(t, "Trade log write failed: disk full", replies[2])
}

func TestListTrades(t *testing.T) {
	f := newFixture(t, DefaultAnalysis())
	f.trades.On("Load", mock.Anything).Return([]tradelog.TradeRecord{
		{Symbol: "ETH/USDT", Datetime: "2025-01-01 00:00:00", CID: "bafy"},
	}, nil).Once()
	msgs, err := f.svc.ListTrades(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1. ETH/USDT, 2025-01-01 00:00:00, https://ipfs.io/ipfs/bafy"}, msgs)

	f.trades.On("Load", mock.Anything).Return(nil, errors.New("locked")).Once()
	_, err = f.svc.ListTrades(context.Background())
	assert.ErrorContains(t, err, "locked")
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t, DefaultAnalysis())
	f.trades.On("Load", mock.Anything).Return([]tradelog.TradeRecord{}, nil)
	f.ranker.On("Top", mock.Anything, 20).Return(nil, errors.New("down"))

	var got []string
	reply := func(msg string) { got = append(got, msg) }

	f.svc.HandleCommand(context.Background(), notifier.Command{Name: "trades"}, reply)
	assert.Equal(t, []string{"No trades recorded yet."}, got)

	got = nil
	f.svc.HandleCommand(context.Background(), notifier.Command{Name: "auto"}, reply)
	assert.Equal(t, []string{"Generating signal & executing trade…", "Error fetching symbols: down"}, got)

	got = nil
	f.svc.HandleCommand(context.Background(), notifier.Command{Name: "unknown"}, reply)
	assert.Empty(t, got)
}

func TestUpdateAnalysis(t *testing.T) {
	f := newFixture(t, DefaultAnalysis())
	assert.Equal(t, 2.0, f.svc.RiskReward())
	a := DefaultAnalysis()
	a.Levels.RiskReward = 3
	f.svc.UpdateAnalysis(a)
	assert.Equal(t, 3.0, f.svc.RiskReward())
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}

func TestAnalyzeDoesNotTrade(t *testing.T) {
	f := newFixture(t, rsiDominant())
	f.candles.On("FetchCandles", mock.Anything, "ETH/USDT", "1h", 200).Return(trendSeries("ETH/USDT", -1), nil)

	snap, err := f.svc.Analyze(context.Background(), " eth/usdt ")
	require.NoError(t, err)
	assert.Equal(t, "ETH/USDT", snap.Symbol)
	assert.Equal(t, decision.Long, snap.Decision.Signal)
	assert.False(t, snap.Levels.IsZero())
	assert.Contains(t, snap.Text(), "ETH/USDT: Long")
	assert.Contains(t, snap.Text(), "Entry ")
	f.executor.AssertNotCalled(t, "OpenPosition", mock.Anything, mock.Anything, mock.Anything)
	f.trades.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestAnalyzeErrors(t *testing.T) {
	f := newFixture(t, DefaultAnalysis())
	f.candles.On("FetchCandles", mock.Anything, "X/USDT", "1h", 200).Return(market.Series{}, nil)

	_, err := f.svc.Analyze(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoCandidate)

	_, err = f.svc.Analyze(context.Background(), "X/USDT")
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorContains(t, err, "empty series")

	var got []string
	f.svc.HandleCommand(context.Background(), notifier.Command{Name: "analyze"}, func(msg string) { got = append(got, msg) })
	assert.Equal(t, []string{"Usage: /analyze BTC/USDT"}, got)
}
