package agent

import (
	"errors"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"perpbot/internal/analysis/indicator"
	"perpbot/internal/decision"
	"perpbot/internal/gateway/exchange"
	"perpbot/internal/gateway/provider"
	"perpbot/internal/logger"
	"perpbot/internal/market"
	"perpbot/internal/store/tradelog"
	"perpbot/internal/strategy"
)

// Timeouts 是每类外部调用各自的超时。
type Timeouts struct {
	Market   time.Duration
	Order    time.Duration
	Overview time.Duration
	Summary  time.Duration
	Upload   time.Duration
	Log      time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Market:   15 * time.Second,
		Order:    20 * time.Second,
		Overview: 10 * time.Second,
		Summary:  60 * time.Second,
		Upload:   30 * time.Second,
		Log:      5 * time.Second,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	def := DefaultTimeouts()
	fill := func(v *time.Duration, d time.Duration) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&t.Market, def.Market)
	fill(&t.Order, def.Order)
	fill(&t.Overview, def.Overview)
	fill(&t.Summary, def.Summary)
	fill(&t.Upload, def.Upload)
	fill(&t.Log, def.Log)
	return t
}

// Options 控制选币与取数。
type Options struct {
	Interval       string
	CandleLimit    int
	TopCount       int
	SampleAttempts int
	Timeouts       Timeouts
}

func DefaultOptions() Options {
	return Options{Interval: "1h", CandleLimit: 200, TopCount: 20, SampleAttempts: 5, Timeouts: DefaultTimeouts()}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if strings.TrimSpace(o.Interval) == "" {
		o.Interval = def.Interval
	}
	if o.CandleLimit <= 0 {
		o.CandleLimit = def.CandleLimit
	}
	if o.TopCount <= 0 {
		o.TopCount = def.TopCount
	}
	if o.SampleAttempts <= 0 {
		o.SampleAttempts = def.SampleAttempts
	}
	o.Timeouts = o.Timeouts.withDefaults()
	return o
}

// Analysis 是可热更新的指标、评分与价位参数。
type Analysis struct {
	Indicators indicator.Settings
	Signal     decision.Params
	Levels     strategy.LevelParams
}

func DefaultAnalysis() Analysis {
	return Analysis{
		Indicators: indicator.DefaultSettings(),
		Signal:     decision.DefaultParams(),
		Levels:     strategy.DefaultLevelParams(),
	}
}

type pipeline struct {
	engine   *indicator.Engine
	scorer   *decision.Scorer
	resolver decision.Resolver
	levels   strategy.LevelCalculator
}

func newPipeline(a Analysis) *pipeline {
	return &pipeline{
		engine:   indicator.NewEngine(a.Indicators),
		scorer:   decision.NewScorer(a.Signal),
		resolver: decision.NewResolver(a.Signal),
		levels:   strategy.NewLevelCalculator(a.Levels),
	}
}

type ServiceParams struct {
	Ranker   PairRanker
	Candles  market.CandleSource
	Executor exchange.Executor
	Overview Overviewer
	Model    provider.ModelProvider
	Uploader Uploader
	Trades   tradelog.TradeLog
	Options  Options
	Analysis Analysis
}

// Service 执行一次完整的交易周期：选币、取数、评分、下单、生成报告、上传、记账。
type Service struct {
	ranker   PairRanker
	candles  market.CandleSource
	executor exchange.Executor
	overview Overviewer
	model    provider.ModelProvider
	uploader Uploader
	trades   tradelog.TradeLog
	opts     Options

	pipe atomic.Pointer[pipeline]

	now  func() time.Time
	pick func(n int) int
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Ranker == nil:
		return nil, errors.New("agent: pair ranker is required")
	case p.Candles == nil:
		return nil, errors.New("agent: candle source is required")
	case p.Executor == nil:
		return nil, errors.New("agent: order executor is required")
	case p.Trades == nil:
		return nil, errors.New("agent: trade log is required")
	}
	s := &Service{
		ranker:   p.Ranker,
		candles:  p.Candles,
		executor: p.Executor,
		overview: p.Overview,
		model:    p.Model,
		uploader: p.Uploader,
		trades:   p.Trades,
		opts:     p.Options.withDefaults(),
		now:      time.Now,
		pick:     rand.Intn,
	}
	s.pipe.Store(newPipeline(p.Analysis))
	return s, nil
}

// UpdateAnalysis 替换分析参数，从下一个周期开始生效。
func (s *Service) UpdateAnalysis(a Analysis) {
	s.pipe.Store(newPipeline(a))
	logger.Infof("[agent] analysis parameters reloaded")
}

// RiskReward 返回当前生效的盈亏比。
func (s *Service) RiskReward() float64 {
	return s.pipe.Load().levels.Params().RiskReward
}
