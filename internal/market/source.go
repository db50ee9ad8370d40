package market

import "context"

// TickerSource 列出结算币种下的全部合约行情。
type TickerSource interface {
	ListTickers(ctx context.Context) (map[string]Ticker, error)
}

// CandleSource 拉取单个 symbol 的历史 K 线。
type CandleSource interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) (Series, error)
}

// Source 聚合选币与 K 线两类行情接口。
type Source interface {
	TickerSource
	CandleSource
}
