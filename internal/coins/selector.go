package coins

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"perpbot/internal/market"
)

// ErrNoTickers 表示行情源返回了空列表。
var ErrNoTickers = errors.New("market data source returned no tickers")

// DefaultStableBases 是默认排除的稳定币 base。
var DefaultStableBases = []string{"USDC", "BUSD", "DAI", "USDP", "TUSD", "USDT"}

// Options 控制结算币种与稳定币排除集。
type Options struct {
	QuoteAsset  string
	StableBases []string
}

// Selector 按成交额挑选候选交易对。
type Selector struct {
	source market.TickerSource
	quote  string
	stable map[string]struct{}
}

func NewSelector(source market.TickerSource, opts Options) *Selector {
	quote := strings.TrimSpace(opts.QuoteAsset)
	if quote == "" {
		quote = "USDT"
	}
	bases := opts.StableBases
	if bases == nil {
		bases = DefaultStableBases
	}
	stable := make(map[string]struct{}, len(bases))
	for _, b := range bases {
		if b = strings.TrimSpace(b); b != "" {
			stable[b] = struct{}{}
		}
	}
	return &Selector{source: source, quote: quote, stable: stable}
}

// Top 返回成交额最高的至多 n 个交易对。全部被过滤时返回空切片，不是错误。
func (s *Selector) Top(ctx context.Context, n int) ([]string, error) {
	if s.source == nil {
		return nil, errors.New("ticker source not configured")
	}
	tickers, err := s.source.ListTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}
	return s.Rank(tickers, n), nil
}

// Rank 先过滤结算币种与稳定币 base，再按成交额降序（同额按 symbol 升序）截断。
func (s *Selector) Rank(tickers map[string]market.Ticker, n int) []string {
	if n <= 0 {
		return []string{}
	}
	type candidate struct {
		symbol string
		volume float64
	}
	list := make([]candidate, 0, len(tickers))
	for sym, t := range tickers {
		base, quote, ok := splitPair(sym)
		if !ok || quote != s.quote {
			continue
		}
		if _, excluded := s.stable[base]; excluded {
			continue
		}
		list = append(list, candidate{symbol: sym, volume: t.QuoteVolume})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].volume != list[j].volume {
			return list[i].volume > list[j].volume
		}
		return list[i].symbol < list[j].symbol
	})
	if len(list) > n {
		list = list[:n]
	}
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.symbol
	}
	return out
}

// splitPair 拆分 "BASE/QUOTE[:SETTLE]"，大小写保持不变。
func splitPair(sym string) (base, quote string, ok bool) {
	base, quote, ok = strings.Cut(sym, "/")
	if !ok || base == "" {
		return "", "", false
	}
	if idx := strings.IndexByte(quote, ':'); idx >= 0 {
		quote = quote[:idx]
	}
	return base, quote, quote != ""
}
