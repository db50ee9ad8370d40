package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"perpbot/internal/logger"
	"perpbot/internal/market"
	"perpbot/internal/pkg/circuit"
	"perpbot/internal/pkg/convert"
	symbolpkg "perpbot/internal/pkg/symbol"
)

const maxHistoryLimit = 1500

// Source 基于 go-binance SDK 实现 market.Source（USDT 本位合约）。
type Source struct {
	cfg     Config
	client  *futures.Client
	quote   string
	breaker *circuit.CircuitBreaker
	now     func() time.Time
}

// New 创建只读行情源；quote 用于把 ETHUSDT 还原为 ETH/USDT。
func New(cfg Config, quote string) (*Source, error) {
	final := cfg.withDefaults()
	client, err := newClient(final, "", "")
	if err != nil {
		return nil, err
	}
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if quote == "" {
		quote = "USDT"
	}
	return &Source{
		cfg:     final,
		client:  client,
		quote:   quote,
		breaker: circuit.NewCircuitBreaker("binance-market", 5, 30*time.Second),
		now:     time.Now,
	}, nil
}

// ListTickers 返回 24h 成交统计，key 为内部格式 symbol。无法解析成交额的条目被跳过。
func (s *Source) ListTickers(ctx context.Context) (map[string]market.Ticker, error) {
	var stats []*futures.PriceChangeStats
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		stats, err = s.client.NewListPriceChangeStatsService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("binance 24h tickers: %w", err)
	}
	out := make(map[string]market.Ticker, len(stats))
	for _, st := range stats {
		if st == nil {
			continue
		}
		sym := symbolpkg.Binance.FromExchange(st.Symbol, s.quote)
		if sym == "" {
			sym = symbolpkg.Normalize(st.Symbol)
		}
		if sym == "" {
			continue
		}
		vol, ok := convert.ParseFloat(st.QuoteVolume)
		if !ok {
			continue
		}
		out[sym] = market.Ticker{
			Symbol:      sym,
			QuoteVolume: vol,
			LastPrice:   convert.FloatOrZero(st.LastPrice),
		}
	}
	logger.Debugf("[binance] tickers fetched=%d usable=%d", len(stats), len(out))
	return out, nil
}

// FetchCandles 拉取已收盘的 K 线；limit 限制在 [1,1500]。
func (s *Source) FetchCandles(ctx context.Context, symbol, interval string, limit int) (market.Series, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	symbol = symbolpkg.Normalize(symbol)
	if symbol == "" {
		return market.Series{}, fmt.Errorf("symbol is required")
	}
	interval = market.NormalizeInterval(interval)
	if interval == "" {
		return market.Series{}, fmt.Errorf("interval is required")
	}
	cleanSymbol := symbolpkg.Binance.ToExchange(symbol)

	var kls []*futures.Kline
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		kls, err = s.client.NewKlinesService().Symbol(cleanSymbol).Interval(interval).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return market.Series{}, fmt.Errorf("binance klines %s: %w", cleanSymbol, err)
	}
	candles := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		c := market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      convert.FloatOrZero(kl.Open),
			High:      convert.FloatOrZero(kl.High),
			Low:       convert.FloatOrZero(kl.Low),
			Close:     convert.FloatOrZero(kl.Close),
			Volume:    convert.FloatOrZero(kl.Volume),
			Trades:    kl.TradeNum,
		}
		if !c.Valid() {
			logger.Debugf("[binance] %s drop invalid candle open_time=%d", cleanSymbol, c.OpenTime)
			continue
		}
		if n := len(candles); n > 0 && c.OpenTime <= candles[n-1].OpenTime {
			continue
		}
		candles = append(candles, c)
	}
	if dur, ok := market.ParseInterval(interval); ok {
		candles = market.DropUnclosed(candles, dur, s.now())
	}
	return market.NewSeries(symbol, interval, candles), nil
}
