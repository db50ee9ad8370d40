package app

import (
	"context"
	"fmt"
	"io"

	"perpbot/internal/agent"
	"perpbot/internal/coins"
	"perpbot/internal/config"
	"perpbot/internal/gateway/exchange"
	"perpbot/internal/gateway/notifier"
	"perpbot/internal/logger"
	"perpbot/internal/market"
	"perpbot/internal/scheduler"
	"perpbot/internal/store/tradelog"
	apihttp "perpbot/internal/transport/http/api"
)

type AppBuilder struct {
	cfg        *config.Config
	configPath string

	marketFn    func(*config.Config) (market.Source, error)
	executorFn  func(*config.Config) (exchange.Executor, error)
	tradeLogFn  func(config.StorageConfig) (tradelog.TradeLog, io.Closer, error)
	narrativeFn func(*config.Config) narrative
	telegramFn  func(config.TelegramConfig) *notifier.Telegram
}

type AppBuilderOption func(*AppBuilder)

// WithConfigPath 启用配置热更新。
func WithConfigPath(path string) AppBuilderOption {
	return func(b *AppBuilder) { b.configPath = path }
}

func WithMarketSource(src market.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		b.marketFn = func(*config.Config) (market.Source, error) { return src, nil }
	}
}

func WithExecutor(exec exchange.Executor) AppBuilderOption {
	return func(b *AppBuilder) {
		b.executorFn = func(*config.Config) (exchange.Executor, error) { return exec, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		marketFn:    buildMarketSource,
		executorFn:  buildExecutor,
		tradeLogFn:  buildTradeLog,
		narrativeFn: buildNarrative,
		telegramFn:  newTelegram,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	app := &App{cfg: cfg, configPath: b.configPath}

	source, err := b.marketFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("build market source: %w", err)
	}
	executor, err := b.executorFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("build executor: %w", err)
	}
	trades, closer, err := b.tradeLogFn(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("build trade log: %w", err)
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	nar := b.narrativeFn(cfg)

	svc, err := agent.NewService(agent.ServiceParams{
		Ranker: coins.NewSelector(source, coins.Options{
			QuoteAsset:  cfg.Market.QuoteAsset,
			StableBases: cfg.Market.StableBases,
		}),
		Candles:  source,
		Executor: executor,
		Overview: nar.overview,
		Model:    nar.model,
		Uploader: nar.uploader,
		Trades:   trades,
		Options:  OptionsFromConfig(cfg),
		Analysis: AnalysisFromConfig(cfg),
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.service = svc

	if cfg.Notify.Telegram.Enabled {
		app.telegram = b.telegramFn(cfg.Notify.Telegram)
	}

	if cfg.HTTP.Enabled {
		srv, err := apihttp.NewServer(apihttp.ServerConfig{
			Addr:         cfg.HTTP.Addr,
			Cycles:       svc,
			CycleTimeout: seconds(cfg.Schedule.TimeoutSeconds),
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("build http server: %w", err)
		}
		app.http = srv
	}

	if cfg.Schedule.Enabled {
		sched := scheduler.NewCronScheduler(seconds(cfg.Schedule.TimeoutSeconds))
		if err := sched.Register("auto-cycle", cfg.Schedule.Cron, app.scheduledCycle); err != nil {
			app.Close()
			return nil, err
		}
		app.scheduler = sched
	}

	app.Summary = buildSummary(cfg, nar)
	logger.Infof("[app] components ready: http=%v telegram=%v schedule=%v backend=%s",
		app.http != nil, app.telegram != nil, app.scheduler != nil, cfg.Storage.Backend)
	return app, nil
}
