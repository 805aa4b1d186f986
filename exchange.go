// FILE: exchange.go
// Package main – Exchange abstractions shared by all gateway backends.
//
// This file defines the minimal interface the quoting loop needs to talk to
// a trading venue (paper or real):
//   • Exchange interface: order book, balances, price, kline history,
//     place/cancel orders, open-order count
//   • Common types: OrderSide, OrderBook, AssetBalance, BalanceSnapshot
//   • Error taxonomy: RemoteError (gateway failure), ErrOrderRejected
//
// Two concrete implementations live in separate files:
//   • exchange_paper.go – in-memory paper venue (no external calls)
//   • exchange_lbank.go – signed REST client for the LBank spot API
package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// OrderSide is the side of a maker quote, in the exchange's wire vocabulary.
type OrderSide string

const (
	SideBuyMaker  OrderSide = "buy_maker"
	SideSellMaker OrderSide = "sell_maker"
)

// OrderBook is a top-of-book snapshot for the configured pair.
type OrderBook struct {
	Bid    float64
	Ask    float64
	BidQty float64
	AskQty float64
}

// Valid reports whether the snapshot carries a usable two-sided quote.
func (b OrderBook) Valid() bool { return b.Bid > 0 && b.Ask > 0 }

// Mid returns the midpoint price of the snapshot.
func (b OrderBook) Mid() float64 { return (b.Bid + b.Ask) / 2 }

// AssetBalance is the per-asset free/locked pair reported by the venue.
type AssetBalance struct {
	Free   float64
	Locked float64
}

// Total is the full balance, resting orders included.
func (a AssetBalance) Total() float64 { return a.Free + a.Locked }

// BalanceSnapshot maps lowercase asset code to its balance.
type BalanceSnapshot map[string]AssetBalance

// Exchange is the minimal surface the quoting loop needs to operate.
type Exchange interface {
	Name() string
	GetOrderBook(ctx context.Context, symbol string) (OrderBook, error)
	FetchAccountBalance(ctx context.Context) (BalanceSnapshot, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)

	// PlaceOrder submits a maker order and returns the exchange-assigned id.
	// A non-success response surfaces as an error wrapping ErrOrderRejected.
	PlaceOrder(ctx context.Context, symbol string, side OrderSide, amount, price float64) (string, error)

	CancelAllOrders(ctx context.Context, symbol string) error
	CancelOneOrder(ctx context.Context, symbol, orderID string) error
	// CancelListOfOrders is best-effort and skips silently when ids is empty.
	CancelListOfOrders(ctx context.Context, symbol string, ids []string) error
	GetOpenOrderCount(ctx context.Context, symbol string) (int, error)

	// FetchHistoricalPrices returns minute closes covering the trailing
	// periodMinutes window, oldest first.
	FetchHistoricalPrices(ctx context.Context, symbol string, periodMinutes int) ([]float64, error)
}

// ErrOrderRejected marks a placement the venue acknowledged but refused.
// The loop swallows these per ladder level (counted, not escalated).
var ErrOrderRejected = errors.New("order rejected")

// RemoteError is a gateway-reported failure (network/auth/exchange error).
type RemoteError struct {
	Endpoint string
	Code     int
	Msg      string
}

func (e *RemoteError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("remote %s: code=%d %s", e.Endpoint, e.Code, e.Msg)
	}
	return fmt.Sprintf("remote %s: %s", e.Endpoint, e.Msg)
}

// splitSymbol splits a pair like "token_usdt" into ("token", "usdt").
func splitSymbol(symbol string) (base, quote string) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(symbol)), "_", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], "usdt"
}
