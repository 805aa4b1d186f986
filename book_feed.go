// FILE: book_feed.go
// Package main – Optional websocket top-of-book feed.
//
// BookFeed keeps the freshest bid/ask for the configured pair in memory by
// subscribing to the venue's depth channel. The loop asks for Snapshot()
// each iteration and falls back to REST when the cache is stale or the feed
// was never started. The read loop reconnects forever with exponential
// backoff; a dead feed degrades the bot, it never stops it.

package main

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	feedHandshakeTimeout = 10 * time.Second
	feedReadTimeout      = 60 * time.Second
	feedBackoffBase      = 1 * time.Second
	feedBackoffMax       = 60 * time.Second
)

// BookFeed caches the latest depth top for one pair.
type BookFeed struct {
	url    string
	symbol string

	mu   sync.RWMutex
	book OrderBook
	at   time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBookFeed(url, symbol string) *BookFeed {
	return &BookFeed{url: url, symbol: symbol}
}

// Start launches the connect/read loop. Call Stop to tear it down.
func (f *BookFeed) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go f.runLoop(ctx)
}

func (f *BookFeed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
}

// Snapshot returns the cached top-of-book, its receive time, and whether the
// feed has ever produced one.
func (f *BookFeed) Snapshot() (OrderBook, time.Time, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.book, f.at, !f.at.IsZero()
}

func (f *BookFeed) runLoop(ctx context.Context) {
	defer f.wg.Done()
	retry := 0

	for ctx.Err() == nil {
		conn, err := f.connect(ctx)
		if err != nil {
			delay := feedBackoff(retry)
			retry++
			if ctx.Err() == nil {
				log.Printf("[FEED] %v (reconnect in %s)", err, delay)
			}
			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}
		retry = 0
		f.readLoop(ctx, conn)
		conn.Close()
	}
}

// connect dials the venue and subscribes to the pair's depth channel.
func (f *BookFeed) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: feedHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return nil, err
	}

	sub := map[string]string{
		"action":    "subscribe",
		"subscribe": "depth",
		"depth":     "10",
		"pair":      f.symbol,
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, err
	}
	log.Printf("[FEED] subscribed depth %s", f.symbol)
	return conn, nil
}

// readLoop consumes pushes until the connection breaks or ctx ends.
func (f *BookFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close() // unblocks ReadMessage
		case <-done:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(feedReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[FEED] read: %v", err)
			}
			return
		}
		f.handleMessage(conn, msg)
	}
}

// feedMessage covers both the depth push and the server's ping frame.
type feedMessage struct {
	Action string `json:"action"`
	Ping   string `json:"ping"`
	Type   string `json:"type"`
	Pair   string `json:"pair"`
	Depth  *struct {
		Asks [][]float64 `json:"asks"`
		Bids [][]float64 `json:"bids"`
	} `json:"depth"`
}

func (f *BookFeed) handleMessage(conn *websocket.Conn, msg []byte) {
	var m feedMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return
	}
	if m.Action == "ping" && m.Ping != "" {
		_ = conn.WriteJSON(map[string]string{"action": "pong", "pong": m.Ping})
		return
	}
	if m.Type != "depth" || m.Depth == nil {
		return
	}
	book, ok := topOfDepth(m.Depth.Bids, m.Depth.Asks)
	if !ok {
		return
	}
	f.mu.Lock()
	f.book = book
	f.at = time.Now()
	f.mu.Unlock()
}

// topOfDepth extracts the best bid/ask from depth rows of [price, qty].
func topOfDepth(bids, asks [][]float64) (OrderBook, bool) {
	if len(bids) == 0 || len(asks) == 0 || len(bids[0]) < 2 || len(asks[0]) < 2 {
		return OrderBook{}, false
	}
	book := OrderBook{
		Bid:    bids[0][0],
		BidQty: bids[0][1],
		Ask:    asks[0][0],
		AskQty: asks[0][1],
	}
	return book, book.Valid()
}

func feedBackoff(retry int) time.Duration {
	if retry < 0 {
		return feedBackoffBase
	}
	if retry > 6 {
		return feedBackoffMax
	}
	d := feedBackoffBase * time.Duration(1<<retry)
	if d > feedBackoffMax {
		d = feedBackoffMax
	}
	return d
}
