package market

import (
	"math"
	"sort"
	"time"
)

const topListSize = 5

// BuildSnapshot assembles an immutable snapshot from fetched quotes, deriving
// the gainer/loser lists and market breadth from the stock universe.
func BuildSnapshot(indices []IndexQuote, stocks []StockQuote, capturedAt time.Time) *Snapshot {
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	valid := make([]StockQuote, 0, len(stocks))
	for _, stock := range stocks {
		if !validNumbers(stock.Price, stock.Change, stock.ChangePercent) {
			continue
		}
		valid = append(valid, stock)
	}

	gainers := topMovers(valid, true)
	losers := topMovers(valid, false)
	top := make([]StockQuote, 0, len(gainers)+len(losers))
	top = append(top, gainers...)
	top = append(top, losers...)

	return &Snapshot{
		Indices:    append([]IndexQuote(nil), indices...),
		TopGainers: gainers,
		TopLosers:  losers,
		TopStocks:  top,
		Breadth:    computeBreadth(valid),
		CapturedAt: capturedAt,
	}
}

func topMovers(stocks []StockQuote, gainers bool) []StockQuote {
	movers := make([]StockQuote, 0, len(stocks))
	for _, stock := range stocks {
		if gainers && stock.ChangePercent > 0 {
			movers = append(movers, stock)
		}
		if !gainers && stock.ChangePercent < 0 {
			movers = append(movers, stock)
		}
	}
	sort.SliceStable(movers, func(i, j int) bool {
		if gainers {
			return movers[i].ChangePercent > movers[j].ChangePercent
		}
		return movers[i].ChangePercent < movers[j].ChangePercent
	})
	if len(movers) > topListSize {
		movers = movers[:topListSize]
	}
	return movers
}

func computeBreadth(stocks []StockQuote) Breadth {
	var breadth Breadth
	for _, stock := range stocks {
		switch {
		case stock.Change > 0:
			breadth.Advances++
		case stock.Change < 0:
			breadth.Declines++
		default:
			breadth.Unchanged++
		}
	}
	ratio := float64(breadth.Advances)
	if breadth.Declines > 0 {
		ratio = float64(breadth.Advances) / float64(breadth.Declines)
	}
	breadth.Ratio = math.Round(ratio*100) / 100
	return breadth
}

// validNumbers reports whether every value is a real, finite number. NaN and
// infinities from the upstream must never reach a snapshot.
func validNumbers(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
