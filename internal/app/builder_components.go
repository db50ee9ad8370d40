package app

import (
	"fmt"
	"io"

	"perpbot/internal/agent"
	"perpbot/internal/config"
	"perpbot/internal/gateway"
	"perpbot/internal/gateway/exchange"
	"perpbot/internal/gateway/notifier"
	"perpbot/internal/gateway/provider"
	"perpbot/internal/gateway/storacha"
	"perpbot/internal/gateway/tokenmetrics"
	"perpbot/internal/market"
	"perpbot/internal/store/tradelog"
)

func buildMarketSource(cfg *config.Config) (market.Source, error) {
	return gateway.NewSourceFromConfig(cfg)
}

func buildExecutor(cfg *config.Config) (exchange.Executor, error) {
	return gateway.NewExecutorFromConfig(cfg)
}

func buildTradeLog(cfg config.StorageConfig) (tradelog.TradeLog, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		st, err := tradelog.NewGormStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case config.BackendJSON, "":
		st, err := tradelog.NewJSONStore(cfg.TradesPath)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// narrative 汇总报告链路上的三个外部服务：概览、总结、上传。
type narrative struct {
	overview agent.Overviewer
	model    provider.ModelProvider
	uploader agent.Uploader
}

func buildNarrative(cfg *config.Config) narrative {
	ai := cfg.AI
	return narrative{
		overview: tokenmetrics.New(ai.TokenMetricsURL, ai.TokenMetricsKey, seconds(ai.OverviewTimeoutSeconds)),
		model: &provider.OpenAIChatClient{
			BaseURL:      ai.BaseURL,
			APIKey:       ai.APIKey,
			Model:        ai.Model,
			Temperature:  ai.Temperature,
			Timeout:      seconds(ai.SummaryTimeoutSeconds),
			MaxRetries:   ai.MaxRetries,
			ExtraHeaders: ai.Headers,
		},
		uploader: storacha.New(cfg.Storage.MCPRestURL, cfg.Storage.GatewayURL, seconds(cfg.Storage.UploadTimeoutSeconds)),
	}
}

func newTelegram(cfg config.TelegramConfig) *notifier.Telegram {
	if !cfg.Enabled {
		return nil
	}
	return notifier.NewTelegram(cfg.BotToken, cfg.ChatID)
}
