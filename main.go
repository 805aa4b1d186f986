// FILE: main.go
// Package main – Program entrypoint and HTTP/metrics server.
//
// Boot sequence:
//   1) loadBotEnv()               – read mm.env (no shell exports required)
//   2) cfg := loadConfigFromEnv() – build runtime Config
//   3) wire exchange (lbank or paper) and the optional book feed
//   4) start Prometheus /healthz server on cfg.Port
//   5) run the quoting loop until SIGINT/SIGTERM
//
// Flags:
//   -paper   Force the in-memory paper venue (also used when no API key set)
//   -feed    Subscribe to the websocket depth feed for fresher books
//
// Example:
//   go run . -paper
//
// Notes:
//   - Keep editing mm.env and restart; no environment exports are needed.
//   - Interrupting the process best-effort cancels every tracked order
//     before exit.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// ---- Flags ----
	var paper bool
	var useFeed bool
	flag.BoolVar(&paper, "paper", false, "Use the in-memory paper venue")
	flag.BoolVar(&useFeed, "feed", false, "Subscribe to the websocket depth feed")
	flag.Parse()

	// ---- Environment & Config ----
	loadBotEnv()
	cfg := loadConfigFromEnv()

	// ---- Exchange wiring ----
	var ex Exchange
	if paper || cfg.LBankAPIKey == "" {
		if !paper {
			log.Printf("[BOOT] no LBANK_API_KEY set, falling back to paper venue")
		}
		ex = NewPaperExchange(cfg)
	} else {
		ex = NewLBankExchange(cfg)
	}

	// ---- HTTP metrics/health ----
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		log.Printf("serving metrics on :%d/metrics", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	// ---- Run the loop ----
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var feed *BookFeed
	if useFeed {
		feed = NewBookFeed(cfg.LBankWSURL, cfg.Symbol)
		feed.Start(ctx)
		defer feed.Stop()
	}

	mm := NewMarketMaker(cfg, ex, feed)
	if err := mm.Run(ctx); err != nil {
		log.Fatalf("startup: %v", err)
	}

	// ---- Graceful shutdown for HTTP server ----
	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}
