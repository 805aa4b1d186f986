// FILE: loop.go
// Package main – The quoting loop orchestrator.
//
// MarketMaker owns the per-session state (drawdown guard, tracked order id
// lists, last volatility) and drives the cancel/replace cycle:
//   • Fetch the freshest top-of-book (ws feed when fresh, REST otherwise)
//   • Refresh balances and the drawdown pause flags
//   • Reconcile outstanding orders (targeted vs bulk cancel)
//   • Compute anchors, sizes, ladder prices; place maker orders per level
//   • Sleep a volatility-adaptive interval and repeat
//
// Any error inside an iteration is logged and followed by a fixed 10s
// backoff — the process never exits on a single bad iteration. On interrupt
// the loop best-effort cancels every order it still tracks.

package main

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	iterationBackoff = 10 * time.Second

	// Caps on the fresh-book anchor used while the opposite side is paused.
	buyFallbackCap  = 0.98 // buy anchor = 98% of current ask
	sellFallbackCap = 1.02 // sell anchor = 102% of current bid
)

// MarketMaker is the single logical worker; nothing here needs locking.
type MarketMaker struct {
	cfg  Config
	ex   Exchange
	feed *BookFeed // optional; nil means REST-only

	guard        *drawdownGuard
	buyOrderIDs  []string
	sellOrderIDs []string

	// carried across iterations so a skipped pass still paces sanely
	lastVol float64
}

func NewMarketMaker(cfg Config, ex Exchange, feed *BookFeed) *MarketMaker {
	return &MarketMaker{cfg: cfg, ex: ex, feed: feed}
}

// Run captures the session baseline and quotes until ctx is cancelled.
// A failed baseline fetch is fatal: the loop never starts.
func (m *MarketMaker) Run(ctx context.Context) error {
	initial, err := m.ex.FetchAccountBalance(ctx)
	if err != nil {
		return fmt.Errorf("startup balance fetch: %w", err)
	}
	base, quote := splitSymbol(m.cfg.Symbol)
	m.guard = newDrawdownGuard(initial, base, quote)

	log.Printf("[BOOT] %s quoting %s | baseline %s=%.4f %s=%.4f | levels=%d step=%.5f%% spread=%.2f%%",
		m.ex.Name(), m.cfg.Symbol,
		base, initial[base].Total(), quote, initial[quote].Total(),
		m.cfg.NumOrders, m.cfg.BasePriceStepPct*100, m.cfg.SpreadPct*100)

	for ctx.Err() == nil {
		if err := m.runIteration(ctx); err != nil {
			IncIterationError()
			log.Printf("[LOOP] iteration error: %v (backing off %s)", err, iterationBackoff)
			if !sleepCtx(ctx, iterationBackoff) {
				break
			}
			continue
		}
		d := dynamicSleep(m.lastVol)
		SetSleepMetric(d)
		if !sleepCtx(ctx, d) {
			break
		}
	}

	m.cleanup()
	return nil
}

// runIteration performs one full cancel/replace pass.
func (m *MarketMaker) runIteration(ctx context.Context) error {
	book, err := m.freshBook(ctx)
	if err != nil {
		return err
	}

	bal, err := m.ex.FetchAccountBalance(ctx)
	if err != nil {
		return err
	}
	base, quote := splitSymbol(m.cfg.Symbol)
	m.guard.Update(bal)
	SetPauseMetric(base, m.guard.Paused(base))
	SetPauseMetric(quote, m.guard.Paused(quote))
	SetBalanceMetric(base, bal[base].Total())
	SetBalanceMetric(quote, bal[quote].Total())

	if !book.Valid() {
		log.Printf("[QUOTE] book unusable (bid=%.8f ask=%.8f), skipping pass", book.Bid, book.Ask)
		return nil
	}

	vol, err := estimateVolatility(ctx, m.ex, m.cfg.Symbol, m.cfg.VolWindowMin)
	if err != nil {
		return err
	}
	m.lastVol = vol
	SetVolatilityMetric(vol)

	refPrice, err := m.ex.GetCurrentPrice(ctx, m.cfg.Symbol)
	if err != nil || refPrice <= 0 {
		// price endpoint is non-fatal; mid is close enough for sizing
		refPrice = book.Mid()
	}

	if err := m.reconcileOrders(ctx); err != nil {
		return err
	}

	baseBuy := book.Bid * (1 - m.cfg.SpreadPct)
	baseSell := book.Ask * (1 + m.cfg.SpreadPct)

	buyTotal := totalOrderSize(vol, m.cfg.MaxOrderSize, m.cfg.MinOrderSize,
		bal[quote].Free/refPrice, m.cfg.RiskFraction)
	sellTotal := totalOrderSize(vol, m.cfg.MaxOrderSize, m.cfg.MinOrderSize,
		bal[base].Free, m.cfg.RiskFraction)
	buySizes := ladderSplit(buyTotal, m.cfg.NumOrders)
	sellSizes := ladderSplit(sellTotal, m.cfg.NumOrders)

	// Anchors are the spread-derived prices unless the opposite asset is
	// paused; then a capped fresh-book price biases fills toward the side
	// that is still healthy.
	buyAnchor := baseBuy
	if m.guard.Paused(base) {
		buyAnchor = book.Ask * buyFallbackCap
	}
	sellAnchor := baseSell
	if m.guard.Paused(quote) {
		sellAnchor = book.Bid * sellFallbackCap
	}

	var placedBuys, placedSells int
	for i := 0; i < m.cfg.NumOrders; i++ {
		step := priceStep(i, m.cfg.BasePriceStepPct)

		if !m.guard.Paused(quote) {
			price := buyAnchor
			if i > 0 {
				price = buyAnchor * (1 - float64(i)*step)
			}
			if id, err := m.ex.PlaceOrder(ctx, m.cfg.Symbol, SideBuyMaker, buySizes[i], price); err != nil {
				IncOrderRejected("buy")
			} else {
				m.buyOrderIDs = append(m.buyOrderIDs, id)
				IncOrderPlaced("buy")
				placedBuys++
			}
		}

		if !m.guard.Paused(base) {
			price := sellAnchor
			if i > 0 {
				price = sellAnchor * (1 + float64(i)*step)
			}
			if id, err := m.ex.PlaceOrder(ctx, m.cfg.Symbol, SideSellMaker, sellSizes[i], price); err != nil {
				IncOrderRejected("sell")
			} else {
				m.sellOrderIDs = append(m.sellOrderIDs, id)
				IncOrderPlaced("sell")
				placedSells++
			}
		}
	}

	log.Printf("[QUOTE] vol=%.5f buys=%d sells=%d buy_anchor=%.8f sell_anchor=%.8f %s=%+.2f%% %s=%+.2f%%",
		vol, placedBuys, placedSells, buyAnchor, sellAnchor,
		base, m.guard.Change(base), quote, m.guard.Change(quote))
	return nil
}

// reconcileOrders clears the previous pass. When more orders rest than this
// bot quotes, something foreign may be in the book, so only the tracked ids
// are cancelled; otherwise a bulk cancel is faster and safe enough. Both
// paths end with the tracked lists empty.
func (m *MarketMaker) reconcileOrders(ctx context.Context) error {
	count, err := m.ex.GetOpenOrderCount(ctx, m.cfg.Symbol)
	if err != nil {
		return err
	}
	if count > m.cfg.NumOrders {
		if err := m.ex.CancelListOfOrders(ctx, m.cfg.Symbol, m.sellOrderIDs); err != nil {
			log.Printf("[CANCEL] targeted sell cancel: %v", err)
		}
		if err := m.ex.CancelListOfOrders(ctx, m.cfg.Symbol, m.buyOrderIDs); err != nil {
			log.Printf("[CANCEL] targeted buy cancel: %v", err)
		}
		IncCancelPass("targeted")
	} else {
		if err := m.ex.CancelAllOrders(ctx, m.cfg.Symbol); err != nil {
			return err
		}
		IncCancelPass("bulk")
	}
	m.buyOrderIDs = m.buyOrderIDs[:0]
	m.sellOrderIDs = m.sellOrderIDs[:0]
	return nil
}

// freshBook prefers the websocket cache when it is young enough, falling
// back to a REST snapshot.
func (m *MarketMaker) freshBook(ctx context.Context) (OrderBook, error) {
	if m.feed != nil {
		maxAge := time.Duration(m.cfg.BookFeedMaxAgeSec) * time.Second
		if book, at, ok := m.feed.Snapshot(); ok && time.Since(at) <= maxAge {
			return book, nil
		}
	}
	return m.ex.GetOrderBook(ctx, m.cfg.Symbol)
}

// cleanup best-effort cancels every order the loop still tracks. Runs on a
// fresh context because the loop's own context is already cancelled.
func (m *MarketMaker) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	buys, sells := len(m.buyOrderIDs), len(m.sellOrderIDs)
	if err := m.ex.CancelListOfOrders(ctx, m.cfg.Symbol, m.buyOrderIDs); err != nil {
		log.Printf("[EXIT] buy cleanup: %v", err)
		buys = 0
	}
	if err := m.ex.CancelListOfOrders(ctx, m.cfg.Symbol, m.sellOrderIDs); err != nil {
		log.Printf("[EXIT] sell cleanup: %v", err)
		sells = 0
	}
	log.Printf("[EXIT] cancelled tracked orders (buy=%d sell=%d)", buys, sells)
}

// sleepCtx sleeps for d unless ctx ends first; returns false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
