package market

import (
	"strconv"
	"strings"
	"time"
)

// DefaultKlineGrace 是判定 K 线已收盘时额外等待的时间。
const DefaultKlineGrace = 10 * time.Second

// NormalizeInterval 统一周期写法：单位 "M"（月）区分大小写，其余单位转小写。
func NormalizeInterval(interval string) string {
	interval = strings.TrimSpace(interval)
	if strings.HasSuffix(interval, "M") {
		return strings.ToLower(interval[:len(interval)-1]) + "M"
	}
	return strings.ToLower(interval)
}

// ParseInterval parses "15m", "1h", "4h", "1d", "1w", "1M" into time.Duration.
// A month counts as 31 days so the running monthly bar is always treated as unclosed.
// Returns (0, false) on invalid input.
func ParseInterval(interval string) (time.Duration, bool) {
	interval = NormalizeInterval(interval)
	if len(interval) < 2 {
		return 0, false
	}
	unit := interval[len(interval)-1]
	n, err := strconv.Atoi(strings.TrimSpace(interval[:len(interval)-1]))
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	case 'M':
		return time.Duration(n) * 31 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// DropUnclosed 去掉仍在进行中的最后一根 K 线（交易所会返回当前未收盘的那根）。
func DropUnclosed(candles []Candle, interval time.Duration, now time.Time) []Candle {
	if len(candles) == 0 || interval <= 0 {
		return candles
	}
	last := candles[len(candles)-1]
	if last.OpenTime <= 0 {
		return candles
	}
	cutoff := last.OpenTime + interval.Milliseconds() + DefaultKlineGrace.Milliseconds()
	if now.UnixMilli() < cutoff {
		return candles[:len(candles)-1]
	}
	return candles
}
