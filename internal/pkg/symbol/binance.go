package symbol

import "strings"

// BinanceConverter 在内部格式与 Binance 合约格式（ETHUSDT）之间转换。
type BinanceConverter struct{}

func (BinanceConverter) ToExchange(internal string) string {
	s := strings.ToUpper(strings.TrimSpace(internal))
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	return strings.ReplaceAll(s, "/", "")
}

// FromExchange 只信任显式给定的结算币种后缀，避免 "BTCDOMUSDT" 之类被误拆。
func (BinanceConverter) FromExchange(raw, quote string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if quote == "" {
		return Parse(raw).Internal()
	}
	if !strings.HasSuffix(raw, quote) || len(raw) <= len(quote) {
		return ""
	}
	return Symbol{Base: raw[:len(raw)-len(quote)], Quote: quote}.Internal()
}

var Binance = BinanceConverter{}
