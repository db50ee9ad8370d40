package visual

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"perpbot/internal/analysis/pattern"
	"perpbot/internal/market"
	"perpbot/internal/strategy"
)

// Input 是一张行情快照图需要的全部数据。Series 应已计算指标列。
type Input struct {
	Series   market.Series
	Signal   string
	Levels   strategy.TradeLevels
	Patterns []pattern.Pattern
	// Bars 只画最近的若干根；0 表示全部
	Bars int
}

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorEMA20         = "#3b82f6"
	colorEMA50         = "#fbbf24"
	colorEntry         = "#e5e7eb"
	colorMACD          = "#22d3ee"
	colorSignal        = "#fb7185"

	chartWidthPx   = 1600
	klineHeightPx  = 600
	volumeHeightPx = 220
	macdHeightPx   = 220
)

var ErrNoCandles = errors.New("visual: no candles to render")

// RenderHTML 输出 K 线 + EMA + 入场/止损/止盈、成交量与 MACD 三个图表。
func RenderHTML(w io.Writer, in Input) error {
	page, err := buildPage(in)
	if err != nil {
		return err
	}
	return page.Render(w)
}

// RenderPNG 用无头 Chrome 截图；本机没有 Chrome 时返回错误。
func RenderPNG(ctx context.Context, in Input) ([]byte, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return nil, fmt.Errorf("headless chrome unavailable: %w", err)
	}
	var buf bytes.Buffer
	if err := RenderHTML(&buf, in); err != nil {
		return nil, err
	}
	return renderHTMLToPNG(ctx, buf.Bytes(), chartWidthPx, klineHeightPx+volumeHeightPx+macdHeightPx+80)
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		parent, cancel := chromedp.NewContext(context.WithoutCancel(ctx))
		defer cancel()
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

func buildPage(in Input) (*components.Page, error) {
	series := in.Series
	if series.Empty() {
		return nil, ErrNoCandles
	}
	start := 0
	if in.Bars > 0 && series.Len() > in.Bars {
		start = series.Len() - in.Bars
	}
	candles := series.Candles[start:]
	xAxis := buildXAxis(candles)

	kline := buildKline(series.Symbol, series.Interval, in, candles)
	kline.SetXAxis(xAxis)
	overlay := charts.NewLine()
	overlay.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	overlay.SetXAxis(xAxis)
	overlay.AddSeries("EMA20", columnData(series, market.EMA20, start), charts.WithLineStyleOpts(opts.LineStyle{Color: colorEMA20, Width: 2}))
	overlay.AddSeries("EMA50", columnData(series, market.EMA50, start), charts.WithLineStyleOpts(opts.LineStyle{Color: colorEMA50, Width: 2}))
	if !in.Levels.IsZero() {
		overlay.AddSeries("Entry", flatData(in.Levels.EntryFloat(), len(candles)), charts.WithLineStyleOpts(opts.LineStyle{Color: colorEntry, Width: 1, Type: "dashed"}))
		overlay.AddSeries("Stop", flatData(in.Levels.StopLoss.InexactFloat64(), len(candles)), charts.WithLineStyleOpts(opts.LineStyle{Color: colorBear, Width: 1, Type: "dashed"}))
		overlay.AddSeries("Target", flatData(in.Levels.TakeProfit.InexactFloat64(), len(candles)), charts.WithLineStyleOpts(opts.LineStyle{Color: colorBull, Width: 1, Type: "dashed"}))
	}
	kline.Overlap(overlay)

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(kline, buildVolume(xAxis, candles), buildMACD(xAxis, series, start))
	return page, nil
}

func subtitle(in Input) string {
	parts := []string{}
	if in.Signal != "" {
		parts = append(parts, "Signal "+in.Signal)
	}
	if v := in.Series.Current().Get(market.RSI); v.Valid {
		parts = append(parts, fmt.Sprintf("RSI %.1f", v.Float))
	}
	if len(in.Patterns) > 0 {
		names := make([]string, len(in.Patterns))
		for i, p := range in.Patterns {
			names[i] = p.String()
		}
		parts = append(parts, strings.Join(names, ", "))
	}
	return strings.Join(parts, " | ")
}

func initOpts(height int) opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", height),
		BackgroundColor: colorBackground,
	}
}

func buildKline(symbol, interval string, in Input, candles []market.Candle) *charts.Kline {
	lo, hi := priceBounds(candles, in.Levels)
	padding := (hi - lo) * 0.05
	if padding <= 0 {
		padding = math.Max(1e-8, math.Abs(hi)*0.01)
	}
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(klineHeightPx)),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s %s", strings.ToUpper(symbol), interval),
			Subtitle:      subtitle(in),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       round(lo-padding, 6),
			Max:       round(hi+padding, 6),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	kline.SetSeriesOptions(charts.WithItemStyleOpts(opts.ItemStyle{
		Color:        colorBull,
		Color0:       colorBear,
		BorderColor:  colorBull,
		BorderColor0: colorBear,
	}))
	data := make([]opts.KlineData, len(candles))
	for i, c := range candles {
		data[i] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
	}
	kline.AddSeries("Price", data)
	return kline
}

func buildVolume(xAxis []string, candles []market.Candle) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(volumeHeightPx)),
		charts.WithTitleOpts(opts.Title{Title: "Volume", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary}}),
	)
	vols := make([]opts.BarData, len(candles))
	for i, c := range candles {
		color := colorBear
		if c.Close >= c.Open {
			color = colorBull
		}
		vols[i] = opts.BarData{Value: c.Volume, ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.6)}}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Volume", vols)
	return bar
}

// buildMACD 直接使用序列里已算好的 MACD 列。
func buildMACD(xAxis []string, series market.Series, start int) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(macdHeightPx)),
		charts.WithTitleOpts(opts.Title{Title: "MACD", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextSecondary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
	)
	hist := series.Column(market.MACDHist)
	bars := make([]opts.BarData, 0, len(xAxis))
	for i := start; i < series.Len(); i++ {
		if i >= len(hist) || !hist[i].Valid {
			bars = append(bars, opts.BarData{Value: nil})
			continue
		}
		color := colorBear
		if hist[i].Float >= 0 {
			color = colorBull
		}
		bars = append(bars, opts.BarData{Value: round(hist[i].Float, 6), ItemStyle: &opts.ItemStyle{Color: color}})
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Hist", bars)

	line := charts.NewLine()
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	line.SetXAxis(xAxis)
	line.AddSeries("MACD", columnData(series, market.MACD, start), charts.WithLineStyleOpts(opts.LineStyle{Color: colorMACD, Width: 2}))
	line.AddSeries("Signal", columnData(series, market.MACDSignal, start), charts.WithLineStyleOpts(opts.LineStyle{Color: colorSignal, Width: 2}))
	bar.Overlap(line)
	return bar
}

func buildXAxis(candles []market.Candle) []string {
	x := make([]string, len(candles))
	for i, c := range candles {
		x[i] = c.Time().Format("01-02 15:04")
	}
	return x
}

// columnData 把未定义的值留空，图上显示为断点。
func columnData(series market.Series, col market.Column, start int) []opts.LineData {
	out := make([]opts.LineData, 0, series.Len()-start)
	for i := start; i < series.Len(); i++ {
		v := series.At(col, i)
		if !v.Valid {
			out = append(out, opts.LineData{Value: nil})
			continue
		}
		out = append(out, opts.LineData{Value: round(v.Float, 6)})
	}
	return out
}

func flatData(v float64, n int) []opts.LineData {
	out := make([]opts.LineData, n)
	for i := range out {
		out[i] = opts.LineData{Value: round(v, 6)}
	}
	return out
}

func round(val float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

// priceBounds 同时覆盖 K 线与价位，保证止损止盈在图内。
func priceBounds(candles []market.Candle, levels strategy.TradeLevels) (lo, hi float64) {
	lo, hi = candles[0].Low, candles[0].High
	for _, c := range candles {
		lo = math.Min(lo, c.Low)
		hi = math.Max(hi, c.High)
	}
	if !levels.IsZero() {
		for _, d := range []float64{levels.EntryFloat(), levels.StopLoss.InexactFloat64(), levels.TakeProfit.InexactFloat64()} {
			lo = math.Min(lo, d)
			hi = math.Max(hi, d)
		}
	}
	return lo, hi
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate("data:text/html;base64," + base64.StdEncoding.EncodeToString(html)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 100),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
