// Command watch tails the market snapshot WebSocket feed and logs a one-line
// summary per frame. Useful for eyeballing a running server without a browser.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"algoforge-api/pkg/market"
	"algoforge-api/pkg/wsclient"
)

var feedURL = flag.String("url", "ws://localhost:5000/ws/market", "market feed URL")

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := wsclient.New(wsclient.Config{
		URL:        *feedURL,
		OnSnapshot: printSnapshot,
		OnStateChange: func(s wsclient.State) {
			log.Printf("[watch] feed %s", s)
		},
	})
	if err != nil {
		log.Fatalf("[watch] %v", err)
	}

	log.Printf("[watch] tailing %s, press Ctrl+C to stop", *feedURL)
	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("[watch] %v", err)
	}
	log.Println("[watch] stopped")
}

func printSnapshot(s *market.Snapshot) {
	log.Printf("[watch] snapshot: %d indices, %d gainers, %d losers, breadth %d/%d (ratio %.2f)",
		len(s.Indices), len(s.TopGainers), len(s.TopLosers),
		s.Breadth.Advances, s.Breadth.Declines, s.Breadth.Ratio)
	for _, idx := range s.Indices {
		log.Printf("  - %s (%s): %.2f (%+.2f, %+.2f%%)",
			idx.Name, idx.Symbol, idx.Value, idx.Change, idx.ChangePercent)
	}
}
