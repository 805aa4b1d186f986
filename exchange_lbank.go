// FILE: exchange_lbank.go
// Package main — LBank spot gateway (direct REST, signed).
//
// Implements the Exchange interface against the LBank v2 REST API.
// - Signing: sorted params → uppercase MD5 hex digest → HMAC-SHA256(secret),
//   with timestamp/echostr/signature_method added per the v2 scheme.
// - Wire prices/amounts are rounded with shopspring/decimal so order payloads
//   never carry float artifacts.
// - result:"false" responses map to *RemoteError; refused placements wrap
//   ErrOrderRejected so the loop can swallow them per level.
//
// Required env (loaded via mm.env allowlist or process env):
//   LBANK_API_KEY=<key>
//   LBANK_API_SECRET=<secret>
// Optional:
//   LBANK_API_BASE=https://api.lbkex.com
//   LBANK_PRICE_DIGITS=8  LBANK_AMOUNT_DIGITS=4

package main

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LBankExchange struct {
	apiKey       string
	apiSecret    string
	baseURL      string
	priceDigits  int32
	amountDigits int32
	hc           *http.Client
}

func NewLBankExchange(cfg Config) *LBankExchange {
	return &LBankExchange{
		apiKey:       cfg.LBankAPIKey,
		apiSecret:    cfg.LBankAPISecret,
		baseURL:      strings.TrimRight(cfg.LBankAPIBase, "/"),
		priceDigits:  int32(cfg.LBankPriceDigits),
		amountDigits: int32(cfg.LBankAmountDigits),
		hc:           &http.Client{Timeout: 10 * time.Second},
	}
}

func (lb *LBankExchange) Name() string { return "lbank" }

// ----- Wire envelope -----

// lbankResp is the common LBank response envelope. result arrives as the
// string "true"/"false" on some endpoints and a bare bool on others.
type lbankResp struct {
	Result    json.RawMessage `json:"result"`
	ErrorCode int             `json:"error_code"`
	Msg       string          `json:"msg"`
	Data      json.RawMessage `json:"data"`
}

func (r *lbankResp) ok() bool {
	s := strings.Trim(string(r.Result), `"`)
	return s == "true"
}

// ----- Signing & transport -----

// sign implements the v2 scheme: HMAC-SHA256 over the uppercased MD5 hex of
// the sorted parameter string.
func (lb *LBankExchange) sign(q url.Values) string {
	digest := md5.Sum([]byte(q.Encode()))
	preimage := strings.ToUpper(hex.EncodeToString(digest[:]))
	mac := hmac.New(sha256.New, []byte(lb.apiSecret))
	_, _ = io.WriteString(mac, preimage)
	return hex.EncodeToString(mac.Sum(nil))
}

func (lb *LBankExchange) get(ctx context.Context, path string, q url.Values) (*lbankResp, error) {
	if q == nil {
		q = url.Values{}
	}
	u := lb.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return lb.do(req, path)
}

func (lb *LBankExchange) post(ctx context.Context, path string, q url.Values) (*lbankResp, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", lb.apiKey)
	q.Set("signature_method", "HmacSHA256")
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	q.Set("echostr", strings.ReplaceAll(uuid.New().String(), "-", ""))
	q.Set("sign", lb.sign(q))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lb.baseURL+path, strings.NewReader(q.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return lb.do(req, path)
}

func (lb *LBankExchange) do(req *http.Request, path string) (*lbankResp, error) {
	res, err := lb.hc.Do(req)
	if err != nil {
		return nil, &RemoteError{Endpoint: path, Msg: err.Error()}
	}
	defer res.Body.Close()
	bs, _ := io.ReadAll(res.Body)
	if res.StatusCode/100 != 2 {
		return nil, &RemoteError{Endpoint: path, Code: res.StatusCode, Msg: string(bs)}
	}
	var out lbankResp
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil, &RemoteError{Endpoint: path, Msg: "decode: " + err.Error()}
	}
	return &out, nil
}

// ----- Formatting -----

func (lb *LBankExchange) formatPrice(p float64) string {
	return decimal.NewFromFloat(p).Round(lb.priceDigits).String()
}

func (lb *LBankExchange) formatAmount(a float64) string {
	return decimal.NewFromFloat(a).Round(lb.amountDigits).String()
}

// ----- Market data -----

func (lb *LBankExchange) GetOrderBook(ctx context.Context, symbol string) (OrderBook, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	resp, err := lb.get(ctx, "/v2/supplement/ticker/bookTicker.do", q)
	if err != nil {
		return OrderBook{}, err
	}
	if !resp.ok() {
		return OrderBook{}, &RemoteError{Endpoint: "bookTicker", Code: resp.ErrorCode, Msg: resp.Msg}
	}
	var data struct {
		BidPrice string `json:"bidPrice"`
		BidQty   string `json:"bidQty"`
		AskPrice string `json:"askPrice"`
		AskQty   string `json:"askQty"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return OrderBook{}, &RemoteError{Endpoint: "bookTicker", Msg: "decode: " + err.Error()}
	}
	return OrderBook{
		Bid:    parseFloat(data.BidPrice),
		Ask:    parseFloat(data.AskPrice),
		BidQty: parseFloat(data.BidQty),
		AskQty: parseFloat(data.AskQty),
	}, nil
}

func (lb *LBankExchange) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	resp, err := lb.get(ctx, "/v2/supplement/ticker/price.do", q)
	if err != nil {
		return 0, err
	}
	if !resp.ok() {
		return 0, &RemoteError{Endpoint: "ticker/price", Code: resp.ErrorCode, Msg: resp.Msg}
	}
	var rows []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(resp.Data, &rows); err != nil {
		return 0, &RemoteError{Endpoint: "ticker/price", Msg: "decode: " + err.Error()}
	}
	if len(rows) == 0 {
		return 0, &RemoteError{Endpoint: "ticker/price", Msg: "empty price list"}
	}
	return parseFloat(rows[0].Price), nil
}

// FetchHistoricalPrices pulls one-minute klines covering the trailing window
// and returns the closes, oldest first.
func (lb *LBankExchange) FetchHistoricalPrices(ctx context.Context, symbol string, periodMinutes int) ([]float64, error) {
	if periodMinutes <= 0 {
		periodMinutes = 60
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("type", "minute1")
	q.Set("size", strconv.Itoa(periodMinutes))
	q.Set("time", strconv.FormatInt(time.Now().Add(-time.Duration(periodMinutes)*time.Minute).Unix(), 10))
	resp, err := lb.get(ctx, "/v2/kline.do", q)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, &RemoteError{Endpoint: "kline", Code: resp.ErrorCode, Msg: resp.Msg}
	}
	// rows: [timestamp, open, high, low, close, volume]
	var rows [][]float64
	if err := json.Unmarshal(resp.Data, &rows); err != nil {
		return nil, &RemoteError{Endpoint: "kline", Msg: "decode: " + err.Error()}
	}
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if len(r) >= 5 {
			out = append(out, r[4])
		}
	}
	return out, nil
}

// ----- Account -----

func (lb *LBankExchange) FetchAccountBalance(ctx context.Context) (BalanceSnapshot, error) {
	resp, err := lb.post(ctx, "/v2/supplement/user_info_account.do", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, &RemoteError{Endpoint: "user_info_account", Code: resp.ErrorCode, Msg: resp.Msg}
	}
	var rows []struct {
		Coin      string `json:"coin"`
		UsableAmt string `json:"usableAmt"`
		FreezeAmt string `json:"freezeAmt"`
	}
	if err := json.Unmarshal(resp.Data, &rows); err != nil {
		return nil, &RemoteError{Endpoint: "user_info_account", Msg: "decode: " + err.Error()}
	}
	out := make(BalanceSnapshot, len(rows))
	for _, r := range rows {
		out[strings.ToLower(r.Coin)] = AssetBalance{
			Free:   parseFloat(r.UsableAmt),
			Locked: parseFloat(r.FreezeAmt),
		}
	}
	return out, nil
}

// ----- Orders -----

func (lb *LBankExchange) PlaceOrder(ctx context.Context, symbol string, side OrderSide, amount, price float64) (string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("type", string(side))
	q.Set("amount", lb.formatAmount(amount))
	q.Set("price", lb.formatPrice(price))
	resp, err := lb.post(ctx, "/v2/supplement/create_order.do", q)
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", fmt.Errorf("%w: code=%d %s", ErrOrderRejected, resp.ErrorCode, resp.Msg)
	}
	var data struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.OrderID == "" {
		return "", fmt.Errorf("%w: missing order_id", ErrOrderRejected)
	}
	return data.OrderID, nil
}

func (lb *LBankExchange) CancelAllOrders(ctx context.Context, symbol string) error {
	q := url.Values{}
	q.Set("symbol", symbol)
	resp, err := lb.post(ctx, "/v2/supplement/cancel_order_by_symbol.do", q)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return &RemoteError{Endpoint: "cancel_order_by_symbol", Code: resp.ErrorCode, Msg: resp.Msg}
	}
	return nil
}

func (lb *LBankExchange) CancelOneOrder(ctx context.Context, symbol, orderID string) error {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("orderId", orderID)
	resp, err := lb.post(ctx, "/v2/supplement/cancel_order.do", q)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return &RemoteError{Endpoint: "cancel_order", Code: resp.ErrorCode, Msg: resp.Msg}
	}
	return nil
}

// CancelListOfOrders cancels in one call (LBank takes a comma list); empty
// input is a silent no-op.
func (lb *LBankExchange) CancelListOfOrders(ctx context.Context, symbol string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("orderId", strings.Join(ids, ","))
	resp, err := lb.post(ctx, "/v2/supplement/cancel_order.do", q)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return &RemoteError{Endpoint: "cancel_order(list)", Code: resp.ErrorCode, Msg: resp.Msg}
	}
	return nil
}

func (lb *LBankExchange) GetOpenOrderCount(ctx context.Context, symbol string) (int, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("current_page", "1")
	q.Set("page_length", "200")
	resp, err := lb.post(ctx, "/v2/supplement/orders_info_no_deal.do", q)
	if err != nil {
		return 0, err
	}
	if !resp.ok() {
		return 0, &RemoteError{Endpoint: "orders_info_no_deal", Code: resp.ErrorCode, Msg: resp.Msg}
	}
	var data struct {
		Total  json.RawMessage   `json:"total"`
		Orders []json.RawMessage `json:"orders"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return 0, &RemoteError{Endpoint: "orders_info_no_deal", Msg: "decode: " + err.Error()}
	}
	// total is a string on this endpoint; venues that omit or mangle it fall
	// back to the page length, capped at the single 200-row page requested
	if n, err := strconv.Atoi(strings.Trim(string(data.Total), `"`)); err == nil && n >= 0 {
		return n, nil
	}
	return len(data.Orders), nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
