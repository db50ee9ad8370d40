package gateway

import (
	"fmt"
	"time"

	"perpbot/internal/config"
	"perpbot/internal/gateway/binance"
)

func binanceConn(cfg *config.Config) binance.Config {
	return binance.Config{
		RESTBaseURL:  cfg.Market.RESTBaseURL,
		HTTPTimeout:  time.Duration(cfg.Market.TimeoutSeconds) * time.Second,
		ProxyEnabled: cfg.Market.Proxy.Enabled,
		RESTProxyURL: cfg.Market.Proxy.RESTURL,
		APIKey:       cfg.Trading.APIKey,
		SecretKey:    cfg.Trading.SecretKey,
	}
}

// NewSourceFromConfig 构造行情源（ticker + K 线）。
func NewSourceFromConfig(cfg *config.Config) (*binance.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return binance.New(binanceConn(cfg), cfg.Market.QuoteAsset)
}

// NewExecutorFromConfig 构造下单执行器；dry_run 时不需要 API key。
func NewExecutorFromConfig(cfg *config.Config) (*binance.Executor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return binance.NewExecutor(binanceConn(cfg), binance.ExecutorConfig{
		TradeUSDSize: cfg.Trading.TradeUSDSize,
		Leverage:     cfg.Trading.Leverage,
		DryRun:       cfg.Trading.DryRun,
	})
}
