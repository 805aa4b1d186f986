// FILE: config.go
// Package main – Runtime configuration model and loader.
//
// This file defines the Config struct (all the knobs the bot uses) and a
// helper to populate it from environment variables. The mm.env file is read
// by loadBotEnv() (see env.go), so you can tune behavior without exports.
//
// Typical flow (see main.go):
//   loadBotEnv()
//   cfg := loadConfigFromEnv()
package main

// Config holds all runtime knobs for quoting and operations.
// Immutable for the lifetime of a run.
type Config struct {
	// Quoting target
	Symbol string // e.g., "token_usdt"

	// Ladder shape & sizing bounds
	MaxOrderSize     float64 // per-side total ceiling (asset units)
	MinOrderSize     float64 // per-side total floor (asset units)
	NumOrders        int     // ladder levels per side
	BasePriceStepPct float64 // fractional step between adjacent levels
	SpreadPct        float64 // fractional offset of base quotes from the touch
	RiskFraction     float64 // share of free balance committed to sizing

	// Volatility estimation
	VolWindowMin int // trailing kline window in minutes

	// Ops
	Port int

	// LBank gateway
	LBankAPIBase      string
	LBankAPIKey       string
	LBankAPISecret    string
	LBankWSURL        string
	LBankPriceDigits  int
	LBankAmountDigits int
	BookFeedMaxAgeSec int // freshest-feed staleness bound

	// Paper venue seeds
	PaperBaseBalance  float64
	PaperQuoteBalance float64
	PaperMidPrice     float64
}

// loadConfigFromEnv reads the process env (already hydrated by loadBotEnv())
// and returns a Config with sane defaults if keys are missing.
func loadConfigFromEnv() Config {
	return Config{
		Symbol: getEnv("SYMBOL", "token_usdt"),

		MaxOrderSize:     getEnvFloat("MAX_ORDER_SIZE", 1000.0),
		MinOrderSize:     getEnvFloat("MIN_ORDER_SIZE", 10.0),
		NumOrders:        getEnvInt("NUM_ORDERS", 10),
		BasePriceStepPct: getEnvFloat("BASE_PRICE_STEP_PCT", 0.00009),
		SpreadPct:        getEnvFloat("SPREAD_PCT", 0.01),
		RiskFraction:     getEnvFloat("RISK_FRACTION", 1.0),

		VolWindowMin: getEnvInt("VOL_WINDOW_MIN", 60),

		Port: getEnvInt("PORT", 8080),

		LBankAPIBase:      getEnv("LBANK_API_BASE", "https://api.lbkex.com"),
		LBankAPIKey:       getEnv("LBANK_API_KEY", ""),
		LBankAPISecret:    getEnv("LBANK_API_SECRET", ""),
		LBankWSURL:        getEnv("LBANK_WS_URL", "wss://www.lbkex.net/ws/V2/"),
		LBankPriceDigits:  getEnvInt("LBANK_PRICE_DIGITS", 8),
		LBankAmountDigits: getEnvInt("LBANK_AMOUNT_DIGITS", 4),
		BookFeedMaxAgeSec: getEnvInt("BOOK_FEED_MAX_AGE_SEC", 5),

		PaperBaseBalance:  getEnvFloat("PAPER_BASE_BALANCE", 100000.0),
		PaperQuoteBalance: getEnvFloat("PAPER_QUOTE_BALANCE", 5000.0),
		PaperMidPrice:     getEnvFloat("PAPER_MID_PRICE", 0.055),
	}
}

// BaseAsset returns the traded asset code parsed from Symbol.
func (c *Config) BaseAsset() string {
	base, _ := splitSymbol(c.Symbol)
	return base
}

// QuoteAsset returns the quote asset code parsed from Symbol.
func (c *Config) QuoteAsset() string {
	_, quote := splitSymbol(c.Symbol)
	return quote
}
