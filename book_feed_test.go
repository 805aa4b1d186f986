package main

import (
	"testing"
	"time"
)

func TestTopOfDepth(t *testing.T) {
	book, ok := topOfDepth(
		[][]float64{{0.054761, 724.1}, {0.0547, 100}},
		[][]float64{{0.055, 78.43}, {0.0551, 50}},
	)
	if !ok {
		t.Fatal("well-formed depth must parse")
	}
	if !almostEqual(book.Bid, 0.054761, 1e-12) || !almostEqual(book.Ask, 0.055, 1e-12) {
		t.Errorf("top = %+v", book)
	}
	if !almostEqual(book.BidQty, 724.1, 1e-9) || !almostEqual(book.AskQty, 78.43, 1e-9) {
		t.Errorf("top qtys = %+v", book)
	}

	if _, ok := topOfDepth(nil, [][]float64{{0.055, 1}}); ok {
		t.Error("missing bids must not parse")
	}
	if _, ok := topOfDepth([][]float64{{0.054}}, [][]float64{{0.055, 1}}); ok {
		t.Error("short depth rows must not parse")
	}
	if _, ok := topOfDepth([][]float64{{0, 1}}, [][]float64{{0.055, 1}}); ok {
		t.Error("zero prices must not produce a valid book")
	}
}

func TestFeedDepthMessageUpdatesSnapshot(t *testing.T) {
	f := NewBookFeed("wss://unused", "token_usdt")

	if _, _, ok := f.Snapshot(); ok {
		t.Fatal("fresh feed must report no snapshot")
	}

	msg := []byte(`{"type":"depth","pair":"token_usdt","depth":{"bids":[[0.054761,724.1]],"asks":[[0.055,78.43]]}}`)
	f.handleMessage(nil, msg)

	book, at, ok := f.Snapshot()
	if !ok {
		t.Fatal("snapshot expected after a depth push")
	}
	if !almostEqual(book.Bid, 0.054761, 1e-12) || !almostEqual(book.Ask, 0.055, 1e-12) {
		t.Errorf("cached book = %+v", book)
	}
	if time.Since(at) > time.Second {
		t.Errorf("snapshot timestamp too old: %s", at)
	}
}

func TestFeedIgnoresMalformedMessages(t *testing.T) {
	f := NewBookFeed("wss://unused", "token_usdt")

	f.handleMessage(nil, []byte(`not json`))
	f.handleMessage(nil, []byte(`{"type":"tick"}`))
	f.handleMessage(nil, []byte(`{"type":"depth","depth":{"bids":[],"asks":[]}}`))

	if _, _, ok := f.Snapshot(); ok {
		t.Error("malformed pushes must not populate the cache")
	}
}

func TestFeedBackoffSchedule(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{6, 60 * time.Second},  // 64s capped
		{50, 60 * time.Second}, // still capped
		{-1, 1 * time.Second},
	}
	for _, tt := range tests {
		if got := feedBackoff(tt.retry); got != tt.want {
			t.Errorf("feedBackoff(%d) = %s, want %s", tt.retry, got, tt.want)
		}
	}
}
