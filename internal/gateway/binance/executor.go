package binance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"perpbot/internal/gateway/exchange"
	"perpbot/internal/logger"
	"perpbot/internal/pkg/circuit"
	"perpbot/internal/pkg/convert"
	symbolpkg "perpbot/internal/pkg/symbol"
	"perpbot/internal/pkg/trading"
)

// ExecutorConfig 是下单参数。
type ExecutorConfig struct {
	TradeUSDSize float64
	Leverage     int
	DryRun       bool
}

// Executor 在 USDT 本位合约上开市价仓位，实现 exchange.Executor。
type Executor struct {
	client  *futures.Client
	cfg     ExecutorConfig
	breaker *circuit.CircuitBreaker
	now     func() time.Time

	precisionMu sync.Mutex
	precision   map[string]int32

	simSeq atomic.Int64
}

func NewExecutor(conn Config, cfg ExecutorConfig) (*Executor, error) {
	final := conn.withDefaults()
	if !cfg.DryRun && (final.APIKey == "" || final.SecretKey == "") {
		return nil, errors.New("binance api key and secret are required unless dry_run is enabled")
	}
	if cfg.TradeUSDSize <= 0 {
		cfg.TradeUSDSize = 10
	}
	if cfg.Leverage <= 0 {
		cfg.Leverage = 5
	}
	client, err := newClient(final, final.APIKey, final.SecretKey)
	if err != nil {
		return nil, err
	}
	return &Executor{
		client:    client,
		cfg:       cfg,
		breaker:   circuit.NewCircuitBreaker("binance-orders", 3, time.Minute),
		now:       time.Now,
		precision: make(map[string]int32),
	}, nil
}

var _ exchange.Executor = (*Executor)(nil)

// OpenPosition 设置杠杆（失败重试一次）、读取最新价、按精度截断数量后下市价单。
func (e *Executor) OpenPosition(ctx context.Context, symbol string, side exchange.Side) (exchange.OrderReceipt, error) {
	internal := symbolpkg.Normalize(symbol)
	if internal == "" {
		return exchange.OrderReceipt{}, fmt.Errorf("invalid symbol %q", symbol)
	}
	if side != exchange.SideLong && side != exchange.SideShort {
		return exchange.OrderReceipt{}, fmt.Errorf("invalid side %q", side)
	}
	sym := symbolpkg.Binance.ToExchange(internal)

	if e.cfg.DryRun {
		return e.simulate(ctx, sym, internal, side)
	}

	if err := e.setLeverage(ctx, sym); err != nil {
		return exchange.OrderReceipt{}, err
	}
	price, err := e.lastPrice(ctx, sym)
	if err != nil {
		return exchange.OrderReceipt{}, err
	}
	prec, err := e.quantityPrecision(ctx, sym)
	if err != nil {
		return exchange.OrderReceipt{}, err
	}
	qty, err := trading.OrderQuantity(e.cfg.TradeUSDSize, e.cfg.Leverage, price, prec)
	if err != nil {
		return exchange.OrderReceipt{}, fmt.Errorf("%s quantity: %w", sym, err)
	}

	orderSide := futures.SideTypeBuy
	if side == exchange.SideShort {
		orderSide = futures.SideTypeSell
	}
	var res *futures.CreateOrderResponse
	err = e.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = e.client.NewCreateOrderService().
			Symbol(sym).
			Side(orderSide).
			Type(futures.OrderTypeMarket).
			Quantity(qty.String()).
			ReduceOnly(false).
			Do(ctx)
		return err
	})
	if err != nil {
		return exchange.OrderReceipt{}, fmt.Errorf("%s market order: %w", sym, err)
	}
	if res == nil {
		return exchange.OrderReceipt{}, fmt.Errorf("%s market order: empty response", sym)
	}
	receipt := exchange.OrderReceipt{
		OrderID:   res.OrderID,
		Symbol:    internal,
		Side:      string(res.Side),
		Quantity:  res.OrigQuantity,
		Price:     price,
		Leverage:  e.cfg.Leverage,
		Status:    string(res.Status),
		CreatedAt: e.now(),
	}
	if res.UpdateTime > 0 {
		receipt.CreatedAt = time.UnixMilli(res.UpdateTime)
	}
	if receipt.Quantity == "" {
		receipt.Quantity = qty.String()
	}
	logger.Infof("[binance] %s", receipt)
	return receipt, nil
}

func (e *Executor) setLeverage(ctx context.Context, sym string) error {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		_, err := e.client.NewChangeLeverageService().Symbol(sym).Leverage(e.cfg.Leverage).Do(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		logger.Warnf("[binance] set leverage %s x%d attempt %d failed: %v", sym, e.cfg.Leverage, attempt, err)
	}
	return fmt.Errorf("%s set leverage x%d: %w", sym, e.cfg.Leverage, lastErr)
}

func (e *Executor) lastPrice(ctx context.Context, sym string) (float64, error) {
	var prices []*futures.SymbolPrice
	err := e.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		prices, err = e.client.NewListPricesService().Symbol(sym).Do(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s price: %w", sym, err)
	}
	for _, p := range prices {
		if p == nil || !strings.EqualFold(p.Symbol, sym) {
			continue
		}
		price, ok := convert.ParseFloat(p.Price)
		if !ok || price <= 0 {
			return 0, fmt.Errorf("%s invalid price %q", sym, p.Price)
		}
		return price, nil
	}
	return 0, fmt.Errorf("%s price not found", sym)
}

// quantityPrecision 首次调用时拉取 exchangeInfo 并缓存全部合约精度。
func (e *Executor) quantityPrecision(ctx context.Context, sym string) (int32, error) {
	e.precisionMu.Lock()
	defer e.precisionMu.Unlock()
	if p, ok := e.precision[sym]; ok {
		return p, nil
	}
	info, err := e.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("exchange info: %w", err)
	}
	for _, s := range info.Symbols {
		e.precision[s.Symbol] = int32(s.QuantityPrecision)
	}
	p, ok := e.precision[sym]
	if !ok {
		return 0, fmt.Errorf("%s not listed in exchange info", sym)
	}
	return p, nil
}

// simulate 只读取价格，不触碰账户。
func (e *Executor) simulate(ctx context.Context, sym, internal string, side exchange.Side) (exchange.OrderReceipt, error) {
	price, err := e.lastPrice(ctx, sym)
	if err != nil {
		return exchange.OrderReceipt{}, err
	}
	qty, err := trading.OrderQuantity(e.cfg.TradeUSDSize, e.cfg.Leverage, price, 3)
	if err != nil {
		return exchange.OrderReceipt{}, fmt.Errorf("%s quantity: %w", sym, err)
	}
	receipt := exchange.OrderReceipt{
		OrderID:   -e.simSeq.Add(1),
		Symbol:    internal,
		Side:      side.OrderSide(),
		Quantity:  qty.String(),
		Price:     price,
		Leverage:  e.cfg.Leverage,
		Status:    "SIMULATED",
		Simulated: true,
		CreatedAt: e.now(),
	}
	logger.Infof("[binance] %s", receipt)
	return receipt, nil
}
