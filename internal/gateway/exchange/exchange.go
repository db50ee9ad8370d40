// Package exchange defines the order-placement abstraction the trading cycle consumes.
package exchange

import (
	"context"
	"fmt"
	"time"
)

// Side 是开仓方向。
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// OrderSide 返回市价单方向 BUY / SELL。
func (s Side) OrderSide() string {
	if s == SideShort {
		return "SELL"
	}
	return "BUY"
}

// Executor 开出一笔杠杆市价仓位；任何失败都返回错误。
type Executor interface {
	OpenPosition(ctx context.Context, symbol string, side Side) (OrderReceipt, error)
}

// OrderReceipt 是下单成功后的回执。
type OrderReceipt struct {
	OrderID   int64     `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Quantity  string    `json:"quantity"`
	Price     float64   `json:"price"`
	Leverage  int       `json:"leverage"`
	Status    string    `json:"status"`
	Simulated bool      `json:"simulated,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (r OrderReceipt) String() string {
	prefix := ""
	if r.Simulated {
		prefix = "[dry-run] "
	}
	return fmt.Sprintf("%sorder %d %s %s qty=%s @%.4f x%d status=%s",
		prefix, r.OrderID, r.Side, r.Symbol, r.Quantity, r.Price, r.Leverage, r.Status)
}
