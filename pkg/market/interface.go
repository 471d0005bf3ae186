package market

import (
	"context"
	"time"
)

// Provider exposes normalized quote data from an upstream market data source.
type Provider interface {
	// IndexQuotes fetches quotes for the given index symbols. The result is
	// all-or-nothing: one failed or malformed symbol fails the whole batch.
	IndexQuotes(ctx context.Context, symbols []string) ([]IndexQuote, error)
	// StockQuotes fetches quotes for the given stock symbols. Rows the
	// upstream cannot price are dropped rather than failing the batch.
	StockQuotes(ctx context.Context, symbols []string) ([]StockQuote, error)
}

// IndexQuote is the normalized quote for one market index.
type IndexQuote struct {
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
}

// StockQuote is the normalized quote for one listed stock.
type StockQuote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        float64 `json:"volume"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previousClose"`
}

// Breadth summarises advancing versus declining stocks in one snapshot.
type Breadth struct {
	Advances  int     `json:"advances"`
	Declines  int     `json:"declines"`
	Unchanged int     `json:"unchanged"`
	Ratio     float64 `json:"ratio"`
}

// Snapshot is the full market view captured by one poll cycle. A snapshot is
// immutable once built; a new cycle always constructs a fresh value, so
// readers never observe a half-updated structure.
//
// The JSON shape is the wire contract shared by the REST response body and
// every WebSocket frame. CapturedAt is bookkeeping and stays off the wire.
type Snapshot struct {
	Indices    []IndexQuote `json:"indices"`
	TopGainers []StockQuote `json:"topGainers"`
	TopLosers  []StockQuote `json:"topLosers"`
	TopStocks  []StockQuote `json:"topStocks"`
	Breadth    Breadth      `json:"marketBreadth"`
	CapturedAt time.Time    `json:"-"`
}
