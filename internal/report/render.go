package report

import (
	"fmt"
	"strings"

	"perpbot/internal/analysis/trend"
	"perpbot/internal/decision"
	"perpbot/internal/store/tradelog"
	"perpbot/internal/strategy"
)

const (
	// TradesPerMessage 是交易列表每条消息的最大行数。
	TradesPerMessage = 50

	MsgGenerating    = "Generating signal & executing trade…"
	MsgNoSymbols     = "No valid symbols found."
	MsgNoCandidate   = "Unable to find a valid trading pair."
	MsgNoTrades      = "No trades recorded yet."
	SummarySystemMsg = "You are an expert crypto trading analyst. Provide a concise 2–3 sentence recommendation."
)

var divider = strings.Repeat("-", 60)

// GatewayFunc 把 CID 转成可访问的地址。
type GatewayFunc func(cid string) string

// Cycle 是一次交易周期的报告内容。
type Cycle struct {
	Symbol     string
	Decision   decision.Decision
	Levels     strategy.TradeLevels
	RiskReward float64
	Summary    Text
}

// Render 输出固定列宽的多行报告，也是上传到存储的正文。
func (c Cycle) Render() string {
	lines := []string{
		"Pair:         " + c.Symbol,
		fmt.Sprintf("Signal:       %s (Strength: %.2f/5)", c.Decision.Signal, c.Decision.Strength),
		fmt.Sprintf("Entry Price:  %.4f", c.Levels.EntryFloat()),
		fmt.Sprintf("Stop Loss:    %.4f (%s)", c.Levels.StopLossFloat(), pct(c.Levels.StopLossPct())),
		fmt.Sprintf("Take Profit:  %.4f (%s)", c.Levels.TakeProfitFloat(), pct(c.Levels.TakeProfitPct())),
		fmt.Sprintf("Risk-Reward:  1:%.1f", c.RiskReward),
		divider,
		"AI Summary:   " + c.Summary.Summary(),
	}
	return strings.Join(lines, "\n")
}

func pct(v float64, ok bool) string {
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", v)
}

// SummaryPrompt 组装交给模型的用户提示词。
func SummaryPrompt(symbol string, d decision.Decision, order string, overview Text, tr trend.Trend) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on technical analysis for %s:\n", symbol)
	fmt.Fprintf(&b, "Signal: %s (strength: %.2f/5)\n", d.Signal, d.Strength)
	fmt.Fprintf(&b, "Order Info: %s\n\n", order)
	fmt.Fprintf(&b, "Token Metrics AI: %s\n", overview.Overview())
	fmt.Fprintf(&b, "Trend: %s.\n", tr)
	return b.String()
}

// UploadReply 是上传结果的回复文本。
func UploadReply(u Upload, gateway GatewayFunc) string {
	if u.Failed() {
		return "Upload failed: " + u.Record()
	}
	return "Uploaded to Storacha: " + gateway(u.CID)
}

func NeutralMessage(symbol string) string {
	return fmt.Sprintf("Signal is Neutral for %s. No trade opened.", symbol)
}

func SymbolsErrorMessage(err error) string {
	return "Error fetching symbols: " + err.Error()
}

func ExecutionErrorMessage(err error) string {
	return "Failed to open position: " + err.Error()
}

// TradeList 把交易日志渲染成若干条消息，每条最多 TradesPerMessage 行。
func TradeList(records []tradelog.TradeRecord, gateway GatewayFunc) []string {
	if len(records) == 0 {
		return []string{MsgNoTrades}
	}
	lines := make([]string, 0, len(records))
	for i, rec := range records {
		lines = append(lines, fmt.Sprintf("%d. %s, %s, %s", i+1, orNA(rec.Symbol), orNA(rec.Datetime), cidLink(rec.CID, gateway)))
	}
	chunks := make([]string, 0, (len(lines)+TradesPerMessage-1)/TradesPerMessage)
	for start := 0; start < len(lines); start += TradesPerMessage {
		end := min(start+TradesPerMessage, len(lines))
		chunks = append(chunks, strings.Join(lines[start:end], "\n"))
	}
	return chunks
}

func cidLink(cid string, gateway GatewayFunc) string {
	if IsErrorCID(cid) {
		return cid
	}
	return gateway(cid)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
