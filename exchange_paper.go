// FILE: exchange_paper.go
// Package main – In-memory paper exchange (no external calls).
//
// This venue simulates just enough exchange behavior for dry runs and tests:
// a synthetic top-of-book around a seeded mid, seeded balances, and a resting
// order table that honors single/list/bulk cancels and the open-order count.
// Historical prices are a deterministic gentle oscillation so the volatility
// estimator always has something non-flat to chew on.
package main

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// paperHalfSpread is the synthetic book's half-spread around mid.
const paperHalfSpread = 0.0002

type paperOrder struct {
	ID     string
	Side   OrderSide
	Amount float64
	Price  float64
	At     time.Time
}

// PaperExchange keeps all venue state behind one mutex.
type PaperExchange struct {
	mu       sync.Mutex
	symbol   string
	mid      float64
	balances BalanceSnapshot
	orders   map[string]paperOrder
}

func NewPaperExchange(cfg Config) *PaperExchange {
	base, quote := splitSymbol(cfg.Symbol)
	return &PaperExchange{
		symbol: cfg.Symbol,
		mid:    cfg.PaperMidPrice,
		balances: BalanceSnapshot{
			base:  {Free: cfg.PaperBaseBalance},
			quote: {Free: cfg.PaperQuoteBalance},
		},
		orders: make(map[string]paperOrder),
	}
}

func (p *PaperExchange) Name() string { return "paper" }

func (p *PaperExchange) GetOrderBook(ctx context.Context, symbol string) (OrderBook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return OrderBook{
		Bid:    p.mid * (1 - paperHalfSpread),
		Ask:    p.mid * (1 + paperHalfSpread),
		BidQty: 1000,
		AskQty: 1000,
	}, nil
}

func (p *PaperExchange) FetchAccountBalance(ctx context.Context) (BalanceSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(BalanceSnapshot, len(p.balances))
	for k, v := range p.balances {
		out[k] = v
	}
	return out, nil
}

func (p *PaperExchange) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mid, nil
}

func (p *PaperExchange) PlaceOrder(ctx context.Context, symbol string, side OrderSide, amount, price float64) (string, error) {
	if amount <= 0 || price <= 0 {
		return "", ErrOrderRejected
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	o := paperOrder{
		ID:     uuid.New().String(),
		Side:   side,
		Amount: amount,
		Price:  price,
		At:     time.Now().UTC(),
	}
	p.orders[o.ID] = o
	return o.ID, nil
}

func (p *PaperExchange) CancelAllOrders(ctx context.Context, symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = make(map[string]paperOrder)
	return nil
}

func (p *PaperExchange) CancelOneOrder(ctx context.Context, symbol, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.orders[orderID]; !ok {
		return errors.New("paper: unknown order " + orderID)
	}
	delete(p.orders, orderID)
	return nil
}

func (p *PaperExchange) CancelListOfOrders(ctx context.Context, symbol string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		delete(p.orders, id)
	}
	return nil
}

func (p *PaperExchange) GetOpenOrderCount(ctx context.Context, symbol string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.orders), nil
}

// FetchHistoricalPrices synthesizes one close per minute: a small sine wobble
// around mid so the stddev of fractional changes is deterministic and > 0.
func (p *PaperExchange) FetchHistoricalPrices(ctx context.Context, symbol string, periodMinutes int) ([]float64, error) {
	p.mu.Lock()
	mid := p.mid
	p.mu.Unlock()

	if periodMinutes <= 0 {
		periodMinutes = 60
	}
	out := make([]float64, periodMinutes)
	for i := range out {
		out[i] = mid * (1 + 0.002*math.Sin(float64(i)/5))
	}
	return out, nil
}

// SetMid moves the synthetic market (tests and demos).
func (p *PaperExchange) SetMid(mid float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mid = mid
}
