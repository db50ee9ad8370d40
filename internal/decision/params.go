package decision

// Params 汇总评分阈值、权重与判定边际。
type Params struct {
	RSIOversold     float64 `json:"rsi_oversold"`
	RSIOverbought   float64 `json:"rsi_overbought"`
	StochOversold   float64 `json:"stoch_oversold"`
	StochOverbought float64 `json:"stoch_overbought"`
	ADXThreshold    float64 `json:"adx_threshold"`
	CCIThreshold    float64 `json:"cci_threshold"`

	RSIWeight       float64 `json:"rsi_weight"`
	MACDWeight      float64 `json:"macd_weight"`
	EMAWeight       float64 `json:"ema_weight"`
	BollingerWeight float64 `json:"bollinger_weight"`
	StochWeight     float64 `json:"stoch_weight"`
	ADXWeight       float64 `json:"adx_weight"`
	CCIWeight       float64 `json:"cci_weight"`

	// DecisionMargin 是胜出一侧必须超过另一侧的分差。
	DecisionMargin float64 `json:"decision_margin"`
}

func DefaultParams() Params {
	return Params{
		RSIOversold:     35,
		RSIOverbought:   65,
		StochOversold:   20,
		StochOverbought: 80,
		ADXThreshold:    25,
		CCIThreshold:    100,
		RSIWeight:       2,
		MACDWeight:      2,
		EMAWeight:       0.5,
		BollingerWeight: 0.75,
		StochWeight:     0.5,
		ADXWeight:       0.5,
		CCIWeight:       0.5,
		DecisionMargin:  0.5,
	}
}

// withDefaults 只补齐非正的字段，DecisionMargin 允许显式为 0。
func (p Params) withDefaults() Params {
	def := DefaultParams()
	fill := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&p.RSIOversold, def.RSIOversold)
	fill(&p.RSIOverbought, def.RSIOverbought)
	fill(&p.StochOversold, def.StochOversold)
	fill(&p.StochOverbought, def.StochOverbought)
	fill(&p.ADXThreshold, def.ADXThreshold)
	fill(&p.CCIThreshold, def.CCIThreshold)
	fill(&p.RSIWeight, def.RSIWeight)
	fill(&p.MACDWeight, def.MACDWeight)
	fill(&p.EMAWeight, def.EMAWeight)
	fill(&p.BollingerWeight, def.BollingerWeight)
	fill(&p.StochWeight, def.StochWeight)
	fill(&p.ADXWeight, def.ADXWeight)
	fill(&p.CCIWeight, def.CCIWeight)
	if p.DecisionMargin < 0 {
		p.DecisionMargin = def.DecisionMargin
	}
	return p
}
