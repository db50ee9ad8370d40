package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"perpbot/internal/analysis/pattern"
	"perpbot/internal/analysis/trend"
	"perpbot/internal/decision"
	"perpbot/internal/gateway/exchange"
	"perpbot/internal/gateway/provider"
	"perpbot/internal/logger"
	"perpbot/internal/market"
	"perpbot/internal/report"
	"perpbot/internal/store/tradelog"
	"perpbot/internal/strategy"
)

// Outcome 是周期正常结束时的结果。
type Outcome string

const (
	OutcomeTraded  Outcome = "traded"
	OutcomeNeutral Outcome = "neutral"
)

var errNoSymbols = errors.New("no symbols passed the liquidity filter")

// CycleResult 汇总一次周期的产物。Neutral 时只有 Symbol/Scores/Decision 有值。
type CycleResult struct {
	TraceID  string
	Symbol   string
	Outcome  Outcome
	Scores   decision.Breakdown
	Decision decision.Decision
	Levels   strategy.TradeLevels
	Trend    trend.Trend
	Patterns []pattern.Pattern
	Order    *exchange.OrderReceipt
	Overview report.Text
	Summary  report.Text
	Report   string
	Upload   report.Upload
	// UploadReply 是上传结果的回复文本。
	UploadReply string
	Record      *tradelog.TradeRecord
	LogErr      error
}

// Replies 返回周期结束后依次发给用户的消息。
func (r CycleResult) Replies() []string {
	if r.Outcome == OutcomeNeutral {
		return []string{report.NeutralMessage(r.Symbol)}
	}
	out := []string{r.Report, r.UploadReply}
	if r.LogErr != nil {
		out = append(out, "Trade log write failed: "+r.LogErr.Error())
	}
	return out
}

// FailureReply 把周期错误转换成用户可读的消息。
func FailureReply(err error) string {
	var ce *CycleError
	if !errors.As(err, &ce) {
		return "Cycle failed: " + err.Error()
	}
	switch ce.Kind {
	case KindDataUnavailable:
		return report.SymbolsErrorMessage(ce.Err)
	case KindNoCandidate:
		if errors.Is(ce.Err, errNoSymbols) {
			return report.MsgNoSymbols
		}
		return report.MsgNoCandidate
	case KindExecution:
		return report.ExecutionErrorMessage(ce.Err)
	}
	return "Cycle failed: " + err.Error()
}

// RunCycle 执行一次交易周期。数据不可用、无候选、下单失败以 *CycleError 返回；
// Neutral 是正常结果。叙述与上传失败只降级为文本，不中止周期。
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	pipe := s.pipe.Load()
	res := CycleResult{TraceID: uuid.NewString()}
	log := logger.With("trace_id", res.TraceID)

	symbols, err := s.topSymbols(ctx)
	if err != nil {
		log.Errorf("[agent] list symbols: %v", err)
		return res, cycleErr(KindDataUnavailable, "", err)
	}
	if len(symbols) == 0 {
		log.Warnf("[agent] no symbols after filtering")
		return res, cycleErr(KindNoCandidate, "", errNoSymbols)
	}

	symbol, series, err := s.sample(ctx, pipe, symbols, log)
	if err != nil {
		return res, cycleErr(KindNoCandidate, "", err)
	}
	res.Symbol = symbol
	log = log.With("symbol", symbol)

	res.Scores = pipe.scorer.Score(series)
	res.Decision = pipe.resolver.Resolve(res.Scores.Scores)
	log.Infof("[agent] scores %s -> %s %.2f", res.Scores.Scores, res.Decision.Signal, res.Decision.Strength)
	if !res.Decision.Directional() {
		res.Outcome = OutcomeNeutral
		return res, nil
	}

	side := exchange.SideLong
	if res.Decision.Signal == decision.Short {
		side = exchange.SideShort
	}
	orderCtx, cancel := context.WithTimeout(ctx, s.opts.Timeouts.Order)
	receipt, err := s.executor.OpenPosition(orderCtx, symbol, side)
	cancel()
	if err != nil {
		log.Errorf("[agent] open %s position: %v", side, err)
		return res, cycleErr(KindExecution, symbol, err)
	}
	res.Order = &receipt
	log.Infof("[agent] %s", receipt)

	res.Overview = s.fetchOverview(ctx, symbol)
	res.Trend = trend.Classify(series)
	res.Patterns = pattern.Detect(series)
	res.Summary = s.summarize(ctx, report.SummaryPrompt(symbol, res.Decision, receipt.String(), res.Overview, res.Trend))
	res.Levels = pipe.levels.Calculate(series, res.Decision)

	res.Report = report.Cycle{
		Symbol:     symbol,
		Decision:   res.Decision,
		Levels:     res.Levels,
		RiskReward: pipe.levels.Params().RiskReward,
		Summary:    res.Summary,
	}.Render()
	logger.InfoBlock(res.Report)

	res.Upload = s.upload(ctx, res.Report)
	res.UploadReply = report.UploadReply(res.Upload, s.gatewayURL)
	if res.Upload.Failed() {
		log.Warnf("[agent] upload report: %v", res.Upload.Err)
	}

	rec := tradelog.TradeRecord{
		Symbol:   symbol,
		Datetime: tradelog.Stamp(s.now()),
		CID:      res.Upload.Record(),
		TraceID:  res.TraceID,
		Side:     string(side),
		Strength: res.Decision.Strength,
		Meta: map[string]string{
			"order_id": strconv.FormatInt(receipt.OrderID, 10),
			"quantity": receipt.Quantity,
		},
	}
	res.Record = &rec
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeouts.Log)
	res.LogErr = s.trades.Append(logCtx, rec)
	cancel()
	if res.LogErr != nil {
		log.Errorf("[agent] append trade log: %v", res.LogErr)
	}
	res.Outcome = OutcomeTraded
	return res, nil
}

func (s *Service) topSymbols(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeouts.Market)
	defer cancel()
	return s.ranker.Top(ctx, s.opts.TopCount)
}

// sample 从候选中随机抽取，直到拿到可用的序列；失败原因逐条记录并拼进错误。
func (s *Service) sample(ctx context.Context, pipe *pipeline, symbols []string, log logger.Entry) (string, market.Series, error) {
	reasons := make([]string, 0, s.opts.SampleAttempts)
	for attempt := 1; attempt <= s.opts.SampleAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", market.Series{}, err
		}
		candidate := symbols[s.pick(len(symbols))]
		series, reason := s.loadSeries(ctx, pipe, candidate)
		if reason == "" {
			return candidate, series, nil
		}
		log.Warnf("[agent] attempt %d/%d %s unusable: %s", attempt, s.opts.SampleAttempts, candidate, reason)
		reasons = append(reasons, candidate+": "+reason)
	}
	return "", market.Series{}, fmt.Errorf("%d attempts failed: %s", s.opts.SampleAttempts, strings.Join(reasons, "; "))
}

func (s *Service) loadSeries(ctx context.Context, pipe *pipeline, symbol string) (market.Series, string) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.Timeouts.Market)
	series, err := s.candles.FetchCandles(fetchCtx, symbol, s.opts.Interval, s.opts.CandleLimit)
	cancel()
	if err != nil {
		return market.Series{}, "fetch candles: " + err.Error()
	}
	if series.Empty() {
		return market.Series{}, "empty series"
	}
	series = pipe.engine.Enrich(series)
	if px := series.Current().Close(); !px.Valid || px.Float <= 0 {
		return market.Series{}, "last close is not positive"
	}
	return series, ""
}

func (s *Service) fetchOverview(ctx context.Context, symbol string) report.Text {
	if s.overview == nil {
		return report.TextOf("", errors.New("overview provider not configured"))
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeouts.Overview)
	defer cancel()
	return report.TextOf(s.overview.Overview(ctx, symbol))
}

func (s *Service) summarize(ctx context.Context, prompt string) report.Text {
	if s.model == nil {
		return report.TextOf("", errors.New("model provider not configured"))
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeouts.Summary)
	defer cancel()
	out, err := s.model.Call(ctx, provider.ChatPayload{
		Purpose: "cycle_summary",
		System:  report.SummarySystemMsg,
		User:    prompt,
	})
	return report.TextOf(strings.TrimSpace(out), err)
}

func (s *Service) upload(ctx context.Context, content string) report.Upload {
	if s.uploader == nil {
		return report.UploadOf("", errors.New("uploader not configured"))
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeouts.Upload)
	defer cancel()
	return report.UploadOf(s.uploader.Upload(ctx, content))
}

func (s *Service) gatewayURL(cid string) string {
	if s.uploader == nil {
		return cid
	}
	return s.uploader.GatewayURL(cid)
}

// ListTrades 返回交易列表消息，每条至多 50 行。
func (s *Service) ListTrades(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeouts.Log)
	defer cancel()
	records, err := s.trades.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	return report.TradeList(records, s.gatewayURL), nil
}
