package report

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpbot/internal/analysis/trend"
	"perpbot/internal/decision"
	"perpbot/internal/store/tradelog"
	"perpbot/internal/strategy"
)

func gateway(cid string) string { return "https://ipfs.io/ipfs/" + cid }

func TestCycleRender(t *testing.T) {
	c := Cycle{
		Symbol:   "ETH/USDT",
		Decision: decision.Decision{Signal: decision.Long, Strength: 2.75},
		Levels: strategy.TradeLevels{
			Entry:      decimal.NewFromInt(100),
			StopLoss:   decimal.RequireFromString("97.4"),
			TakeProfit: decimal.RequireFromString("105.2"),
		},
		RiskReward: 2,
		Summary:    TextOf("Go long.", nil),
	}
	want := strings.Join([]string{
		"Pair:         ETH/USDT",
		"Signal:       Long (Strength: 2.75/5)",
		"Entry Price:  100.0000",
		"Stop Loss:    97.4000 (2.60%)",
		"Take Profit:  105.2000 (5.20%)",
		"Risk-Reward:  1:2.0",
		strings.Repeat("-", 60),
		"AI Summary:   Go long.",
	}, "\n")
	assert.Equal(t, want, c.Render())
}

func TestCycleRenderZeroLevelsAndFailedSummary(t *testing.T) {
	c := Cycle{
		Symbol:     "ETH/USDT",
		Decision:   decision.Decision{Signal: decision.Short, Strength: 1},
		RiskReward: 2,
		Summary:    TextOf("", errors.New("rate limited")),
	}
	out := c.Render()
	assert.Contains(t, out, "Stop Loss:    0.0000 (N/A)")
	assert.Contains(t, out, "Take Profit:  0.0000 (N/A)")
	assert.Contains(t, out, "AI Summary:   Error generating summary: rate limited")
}

func TestUploadResult(t *testing.T) {
	ok := UploadOf("bafy", nil)
	assert.False(t, ok.Failed())
	assert.Equal(t, "bafy", ok.Record())
	assert.Equal(t, "Uploaded to Storacha: https://ipfs.io/ipfs/bafy", UploadReply(ok, gateway))

	bad := UploadOf("", errors.New("timeout"))
	assert.True(t, bad.Failed())
	assert.Equal(t, "Error uploading to Storacha: timeout", bad.Record())
	assert.True(t, IsErrorCID(bad.Record()))
	assert.Equal(t, "Upload failed: Error uploading to Storacha: timeout", UploadReply(bad, gateway))
}

func TestSummaryPrompt(t *testing.T) {
	p := SummaryPrompt("BTC/USDT", decision.Decision{Signal: decision.Short, Strength: 3},
		"order 1 SELL", TextOf("", errors.New("boom")), trend.Bearish)
	assert.Contains(t, p, "Based on technical analysis for BTC/USDT:\n")
	assert.Contains(t, p, "Signal: Short (strength: 3.00/5)\n")
	assert.Contains(t, p, "Order Info: order 1 SELL\n\n")
	assert.Contains(t, p, "Token Metrics AI: Error fetching AI overview: boom\n")
	assert.Contains(t, p, "Trend: Bearish.\n")
}

func TestTradeList(t *testing.T) {
	assert.Equal(t, []string{MsgNoTrades}, TradeList(nil, gateway))

	recs := []tradelog.TradeRecord{
		{Symbol: "ETH/USDT", Datetime: "2025-01-01 00:00:00", CID: "bafy1"},
		{Symbol: "SOL/USDT", Datetime: "2025-01-01 01:00:00", CID: "Error uploading to Storacha: x"},
		{},
	}
	got := TradeList(recs, gateway)
	require.Len(t, got, 1)
	assert.Equal(t, strings.Join([]string{
		"1. ETH/USDT, 2025-01-01 00:00:00, https://ipfs.io/ipfs/bafy1",
		"2. SOL/USDT, 2025-01-01 01:00:00, Error uploading to Storacha: x",
		"3. N/A, N/A, https://ipfs.io/ipfs/",
	}, "\n"), got[0])
}

func TestTradeListChunks(t *testing.T) {
	recs := make([]tradelog.TradeRecord, 0, 120)
	for i := 0; i < 120; i++ {
		recs = append(recs, tradelog.TradeRecord{Symbol: fmt.Sprintf("C%d/USDT", i), Datetime: "d", CID: "c"})
	}
	got := TradeList(recs, gateway)
	require.Len(t, got, 3)
	assert.Len(t, strings.Split(got[0], "\n"), 50)
	assert.Len(t, strings.Split(got[2], "\n"), 20)
	assert.True(t, strings.HasPrefix(got[1], "51. C50/USDT"))
}
