package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"algoforge-api/internal/cli"
	"algoforge-api/internal/config"
	"algoforge-api/pkg/market"

	// Import for side-effects: registers the yahoo quote provider
	_ "algoforge-api/pkg/market/providers/yahoo"
)

const (
	pollInterval    = 2 * time.Minute // Quote provider monitoring interval
	apiTimeout      = 8 * time.Second // Timeout for individual API calls
	shutdownTimeout = 10 * time.Second
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting market monitor...")

	// Load application configuration
	var appCfg *config.Config
	var err error
	configPath := "etc/algoforge.yaml"
	appCfg, err = config.Load(configPath)
	if err != nil {
		log.Printf("[main] Warning: Failed to load app config: %v", err)
		log.Printf("[main] Using default configuration")
		appCfg = &config.Config{Env: "test"}
	}

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	marketCfg := appCfg.Market.Value
	marketPath := appCfg.Market.File
	if marketCfg == nil {
		marketCfg = config.MustLoadMarket()
		if marketPath == "" {
			marketPath = "etc/market.yaml (default)"
		}
	}

	log.Printf("  - Market Config Path: %s", marketPath)
	log.Printf("  - Indices: %v", marketCfg.Indices)
	log.Printf("  - Stocks: %d symbols", len(marketCfg.Stocks))
	log.Printf("  - Monitoring Interval: %s", pollInterval)

	providers, err := marketCfg.BuildProviders()
	if err != nil {
		log.Fatalf("[main] Failed to build market providers: %v", err)
	}

	provider, ok := providers[marketCfg.Default]
	if !ok {
		log.Fatalf("[main] Default market provider %q not found", marketCfg.Default)
	}

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runQuoteMonitor(ctx, provider, marketCfg)
	}()

	log.Println("[main] Market monitor started. Press Ctrl+C to stop.")

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, stopping tasks...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[main] All tasks stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}

	log.Println("[main] Market monitor stopped")
}

// runQuoteMonitor exercises the quote provider on a schedule
func runQuoteMonitor(ctx context.Context, provider market.Provider, cfg *market.Config) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// Run once immediately on startup
	monitorQuotes(ctx, provider, cfg)

	for {
		select {
		case <-ctx.Done():
			log.Println("[quotes] Stopping quote monitor")
			return
		case <-ticker.C:
			monitorQuotes(ctx, provider, cfg)
		}
	}
}

// monitorQuotes calls the quote interfaces and logs results
func monitorQuotes(parentCtx context.Context, provider market.Provider, cfg *market.Config) {
	if parentCtx.Err() != nil {
		return
	}

	// Index quotes: the batch is all-or-nothing, so a single failure here
	// mirrors a failed poll cycle in the server.
	func() {
		ctx, cancel := context.WithTimeout(parentCtx, apiTimeout)
		defer cancel()

		start := time.Now()
		indices, err := provider.IndexQuotes(ctx, cfg.Indices)
		elapsed := time.Since(start)

		if err != nil {
			log.Printf("[quotes.indices] [ERROR] %v, took %dms", err, elapsed.Milliseconds())
			return
		}

		log.Printf("[quotes.indices] [OK] %d indices, took %dms", len(indices), elapsed.Milliseconds())
		for _, idx := range indices {
			log.Printf("  - %s (%s): %.2f (%+.2f, %+.2f%%)",
				idx.Name, idx.Symbol, idx.Value, idx.Change, idx.ChangePercent)
		}
	}()

	// Stock quotes: best effort, dropped rows only shrink the derived stats.
	if len(cfg.Stocks) == 0 {
		return
	}
	func() {
		ctx, cancel := context.WithTimeout(parentCtx, apiTimeout)
		defer cancel()

		start := time.Now()
		stocks, err := provider.StockQuotes(ctx, cfg.Stocks)
		elapsed := time.Since(start)

		if err != nil {
			log.Printf("[quotes.stocks] [ERROR] %v, took %dms", err, elapsed.Milliseconds())
			return
		}

		log.Printf("[quotes.stocks] [OK] %d of %d symbols priced, took %dms",
			len(stocks), len(cfg.Stocks), elapsed.Milliseconds())

		snapshot := market.BuildSnapshot(nil, stocks, time.Now())
		log.Printf("  - Breadth: advances=%d declines=%d unchanged=%d ratio=%.2f",
			snapshot.Breadth.Advances, snapshot.Breadth.Declines,
			snapshot.Breadth.Unchanged, snapshot.Breadth.Ratio)
		for _, g := range snapshot.TopGainers {
			log.Printf("  - Gainer %s: %.2f (%+.2f%%)", g.Symbol, g.Price, g.ChangePercent)
		}
		for _, l := range snapshot.TopLosers {
			log.Printf("  - Loser %s: %.2f (%+.2f%%)", l.Symbol, l.Price, l.ChangePercent)
		}
	}()
}
