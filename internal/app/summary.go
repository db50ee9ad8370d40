package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"perpbot/internal/config"
)

type StartupSummary struct {
	Market   MarketSummary
	Trading  TradingSummary
	Services []ServiceLine
}

type MarketSummary struct {
	Quote       string
	Interval    string
	CandleLimit int
	TopCount    int
	StableBases []string
}

type TradingSummary struct {
	DryRun     bool
	TradeUSD   float64
	Leverage   int
	RiskReward float64
	Margin     float64
	Backend    string
}

// ServiceLine 是一行启用状态，例如 "HTTP  :9991"。
type ServiceLine struct {
	Name    string
	Enabled bool
	Detail  string
}

func buildSummary(cfg *config.Config, nar narrative) *StartupSummary {
	trades := cfg.Storage.TradesPath
	if cfg.Storage.Backend == config.BackendSQLite {
		trades = cfg.Storage.SQLitePath
	}
	model := "-"
	if nar.model != nil {
		model = nar.model.ID()
	}
	return &StartupSummary{
		Market: MarketSummary{
			Quote:       cfg.Market.QuoteAsset,
			Interval:    cfg.Market.Interval,
			CandleLimit: cfg.Market.CandleLimit,
			TopCount:    cfg.Market.TopCount,
			StableBases: cfg.Market.StableBases,
		},
		Trading: TradingSummary{
			DryRun:     cfg.Trading.DryRun,
			TradeUSD:   cfg.Trading.TradeUSDSize,
			Leverage:   cfg.Trading.Leverage,
			RiskReward: cfg.Trading.RiskReward,
			Margin:     cfg.Signal.DecisionMargin,
			Backend:    cfg.Storage.Backend + " " + trades,
		},
		Services: []ServiceLine{
			{Name: "HTTP", Enabled: cfg.HTTP.Enabled, Detail: cfg.HTTP.Addr},
			{Name: "Telegram", Enabled: cfg.Notify.Telegram.Enabled, Detail: "chat " + cfg.Notify.Telegram.ChatID},
			{Name: "Schedule", Enabled: cfg.Schedule.Enabled, Detail: cfg.Schedule.Cron},
			{Name: "Summary model", Enabled: true, Detail: model},
		},
	}
}

func (s *StartupSummary) Print() {
	s.WriteTo(os.Stdout)
}

func (s *StartupSummary) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	title := "启动配置摘要 (STARTUP SUMMARY)"
	b.WriteString(strings.Repeat("=", 80) + "\n")
	fmt.Fprintf(&b, "%*s\n", 40+len(title)/2, title)
	b.WriteString(strings.Repeat("=", 80) + "\n")

	b.WriteString("[行情 (MARKET)]\n")
	fmt.Fprintf(&b, "  结算币种: %s\n", s.Market.Quote)
	fmt.Fprintf(&b, "  K线周期: %s x %d\n", s.Market.Interval, s.Market.CandleLimit)
	fmt.Fprintf(&b, "  候选数量: %d\n", s.Market.TopCount)
	fmt.Fprintf(&b, "  排除稳定币: %s\n", formatList(s.Market.StableBases))
	b.WriteString("\n")

	b.WriteString("[交易 (TRADING)]\n")
	mode := "LIVE"
	if s.Trading.DryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(&b, "  模式: %s\n", mode)
	fmt.Fprintf(&b, "  名义金额: %.2f USD x%d\n", s.Trading.TradeUSD, s.Trading.Leverage)
	fmt.Fprintf(&b, "  盈亏比: 1:%.1f  判定分差: %.2f\n", s.Trading.RiskReward, s.Trading.Margin)
	fmt.Fprintf(&b, "  交易记录: %s\n", s.Trading.Backend)
	b.WriteString("\n")

	b.WriteString("[入口 (SERVICES)]\n")
	for _, line := range s.Services {
		state := "off"
		if line.Enabled {
			state = "on"
		}
		fmt.Fprintf(&b, "  %-14s %-3s %s\n", line.Name, state, line.Detail)
	}
	b.WriteString(strings.Repeat("=", 80) + "\n")

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
