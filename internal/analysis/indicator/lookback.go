package indicator

// lookbackSet 记录每个指标第一个有效值的下标（与 TA-Lib lookback 定义一致）。
type lookbackSet struct {
	sma20, sma50 int
	ema20, ema50 int
	rsi          int
	macd         int
	bollinger    int
	atr          int
	stoch        int
	adx          int
	cci          int
}

func lookbacks(cfg Settings) lookbackSet {
	return lookbackSet{
		sma20:     shortMALength - 1,
		sma50:     longMALength - 1,
		ema20:     shortMALength - 1,
		ema50:     longMALength - 1,
		rsi:       cfg.RSIPeriod,
		macd:      (cfg.MACDSlow - 1) + (cfg.MACDSignal - 1),
		bollinger: cfg.BollingerPeriod - 1,
		atr:       cfg.ATRPeriod,
		stoch:     (cfg.StochK - 1) + (cfg.StochSmoothK - 1) + (cfg.StochD - 1),
		adx:       2*cfg.ADXPeriod - 1,
		cci:       cfg.CCIPeriod - 1,
	}
}

// WarmUp 返回所有指标都有定义所需的最少 K 线数量。
func WarmUp(cfg Settings) int {
	lb := lookbacks(cfg.withDefaults())
	max := 0
	for _, v := range []int{lb.sma20, lb.sma50, lb.ema20, lb.ema50, lb.rsi, lb.macd, lb.bollinger, lb.atr, lb.stoch, lb.adx, lb.cci} {
		if v > max {
			max = v
		}
	}
	return max + 1
}
