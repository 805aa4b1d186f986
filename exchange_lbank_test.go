package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func lbankForTest(base string) *LBankExchange {
	cfg := testConfig()
	cfg.LBankAPIBase = base
	cfg.LBankAPIKey = "test-key"
	cfg.LBankAPISecret = "test-secret"
	cfg.LBankPriceDigits = 8
	cfg.LBankAmountDigits = 4
	return NewLBankExchange(cfg)
}

func TestLBankGetOrderBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/supplement/ticker/bookTicker.do" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "token_usdt" {
			t.Errorf("symbol = %q, want token_usdt", got)
		}
		_, _ = w.Write([]byte(`{"result":"true","error_code":0,"data":{"symbol":"token_usdt","bidPrice":"0.054761","bidQty":"724.1","askPrice":"0.055","askQty":"78.43"}}`))
	}))
	defer srv.Close()

	book, err := lbankForTest(srv.URL).GetOrderBook(context.Background(), "token_usdt")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if !almostEqual(book.Bid, 0.054761, 1e-12) || !almostEqual(book.Ask, 0.055, 1e-12) {
		t.Errorf("book = %+v", book)
	}
	if !book.Valid() {
		t.Error("parsed book should be valid")
	}
}

func TestLBankResultFalseIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// result arrives as a bare bool on some endpoints
		_, _ = w.Write([]byte(`{"result":false,"error_code":10007,"msg":"signature error"}`))
	}))
	defer srv.Close()

	_, err := lbankForTest(srv.URL).GetOrderBook(context.Background(), "token_usdt")
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("want *RemoteError, got %v", err)
	}
	if re.Code != 10007 {
		t.Errorf("code = %d, want 10007", re.Code)
	}
}

func TestLBankPlaceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		for _, key := range []string{"api_key", "sign", "timestamp", "echostr", "signature_method"} {
			if r.PostForm.Get(key) == "" {
				t.Errorf("signed request missing %q", key)
			}
		}
		if got := r.PostForm.Get("type"); got != "buy_maker" {
			t.Errorf("type = %q, want buy_maker", got)
		}
		if got := r.PostForm.Get("price"); got != "0.054213" {
			t.Errorf("price = %q, want 0.054213 (rounded wire format)", got)
		}
		_, _ = w.Write([]byte(`{"result":"true","error_code":0,"data":{"order_id":"abc-123"}}`))
	}))
	defer srv.Close()

	id, err := lbankForTest(srv.URL).PlaceOrder(context.Background(), "token_usdt", SideBuyMaker, 30.5, 0.054213)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if id != "abc-123" {
		t.Errorf("order id = %q, want abc-123", id)
	}
}

func TestLBankPlaceOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"false","error_code":10016,"msg":"insufficient balance"}`))
	}))
	defer srv.Close()

	_, err := lbankForTest(srv.URL).PlaceOrder(context.Background(), "token_usdt", SideSellMaker, 10, 0.056)
	if !errors.Is(err, ErrOrderRejected) {
		t.Fatalf("want ErrOrderRejected, got %v", err)
	}
}

func TestLBankFetchAccountBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"true","error_code":0,"data":[{"coin":"TOKEN","usableAmt":"1200.5","freezeAmt":"300"},{"coin":"usdt","usableAmt":"4000","freezeAmt":"0"}]}`))
	}))
	defer srv.Close()

	bal, err := lbankForTest(srv.URL).FetchAccountBalance(context.Background())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got := bal["token"]; !almostEqual(got.Free, 1200.5, 1e-9) || !almostEqual(got.Locked, 300, 1e-9) {
		t.Errorf("token balance = %+v", got)
	}
	if got := bal["usdt"].Total(); !almostEqual(got, 4000, 1e-9) {
		t.Errorf("usdt total = %g, want 4000", got)
	}
}

func TestLBankOpenOrderCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"true","error_code":0,"data":{"total":"15","orders":[]}}`))
	}))
	defer srv.Close()

	n, err := lbankForTest(srv.URL).GetOpenOrderCount(context.Background(), "token_usdt")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 15 {
		t.Errorf("count = %d, want 15", n)
	}
}

func TestLBankOpenOrderCountFallsBackToPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// no usable total field: count comes from the returned page
		_, _ = w.Write([]byte(`{"result":"true","error_code":0,"data":{"orders":[{},{},{}]}}`))
	}))
	defer srv.Close()

	n, err := lbankForTest(srv.URL).GetOpenOrderCount(context.Background(), "token_usdt")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3 from the page fallback", n)
	}
}

func TestLBankHistoricalCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"true","error_code":0,"data":[[1700000000,0.054,0.056,0.053,0.0545,1000],[1700000060,0.0545,0.0551,0.054,0.055,900]]}`))
	}))
	defer srv.Close()

	prices, err := lbankForTest(srv.URL).FetchHistoricalPrices(context.Background(), "token_usdt", 60)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(prices) != 2 || !almostEqual(prices[0], 0.0545, 1e-12) || !almostEqual(prices[1], 0.055, 1e-12) {
		t.Errorf("closes = %v", prices)
	}
}

func TestLBankCancelListSkipsEmpty(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = w.Write([]byte(`{"result":"true","error_code":0}`))
	}))
	defer srv.Close()

	lb := lbankForTest(srv.URL)
	if err := lb.CancelListOfOrders(context.Background(), "token_usdt", nil); err != nil {
		t.Fatalf("empty list: %v", err)
	}
	if called {
		t.Error("empty cancel list must not hit the wire")
	}

	if err := lb.CancelListOfOrders(context.Background(), "token_usdt", []string{"a", "b"}); err != nil {
		t.Fatalf("list cancel: %v", err)
	}
	if !called {
		t.Error("non-empty cancel list must hit the wire")
	}
}

func TestLBankSignDeterministic(t *testing.T) {
	lb := lbankForTest("http://unused")
	q := url.Values{}
	q.Set("symbol", "token_usdt")
	q.Set("timestamp", "1700000000000")

	a := lb.sign(q)
	b := lb.sign(q)
	if a == "" || a != b {
		t.Errorf("sign not deterministic: %q vs %q", a, b)
	}

	other := lbankForTest("http://unused")
	other.apiSecret = "different"
	if other.sign(q) == a {
		t.Error("different secrets must produce different signatures")
	}
}
