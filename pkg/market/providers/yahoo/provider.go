package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"algoforge-api/pkg/market"
)

const (
	defaultRequestTimeout = 8 * time.Second
	maxConcurrentFetches  = 8
)

// ErrMalformedQuote indicates an upstream row missing required numeric fields.
var ErrMalformedQuote = errors.New("yahoo: malformed quote")

func init() {
	market.RegisterProvider("yahoo", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []Option{}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.MaxRetries > 0 {
			opts = append(opts, WithMaxRetries(cfg.MaxRetries))
		}
		if cfg.HTTPTimeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		provider := &Provider{
			client:  NewClient(opts...),
			timeout: cfg.Timeout,
		}
		if provider.timeout <= 0 {
			provider.timeout = defaultRequestTimeout
		}
		return provider, nil
	})
}

// Provider implements market.Provider against the Yahoo-style quote endpoint.
// Symbols are fetched one request each, concurrently, so batch latency is
// bounded by the slowest single quote rather than the sum.
type Provider struct {
	client  *Client
	timeout time.Duration
}

// NewProvider constructs a provider around an existing client. Used by tests
// and callers that configure the client themselves.
func NewProvider(client *Client) *Provider {
	return &Provider{client: client, timeout: defaultRequestTimeout}
}

// IndexQuotes fetches index quotes all-or-nothing, preserving symbol order.
func (p *Provider) IndexQuotes(ctx context.Context, symbols []string) ([]market.IndexQuote, error) {
	rows, err := p.fetchAll(ctx, symbols)
	if err != nil {
		return nil, err
	}
	quotes := make([]market.IndexQuote, len(rows))
	for i, row := range rows {
		if row.err != nil {
			return nil, fmt.Errorf("quote %s: %w", symbols[i], row.err)
		}
		quote, err := normalizeIndex(symbols[i], row.quote)
		if err != nil {
			return nil, err
		}
		quotes[i] = quote
	}
	return quotes, nil
}

// StockQuotes fetches stock quotes best-effort: rows that fail to fetch or
// normalize are dropped. It only errors when every symbol failed, which is
// indistinguishable from a dead upstream.
func (p *Provider) StockQuotes(ctx context.Context, symbols []string) ([]market.StockQuote, error) {
	rows, err := p.fetchAll(ctx, symbols)
	if err != nil {
		return nil, err
	}
	quotes := make([]market.StockQuote, 0, len(rows))
	var lastErr error
	for i, row := range rows {
		if row.err != nil {
			lastErr = fmt.Errorf("quote %s: %w", symbols[i], row.err)
			continue
		}
		quote, err := normalizeStock(symbols[i], row.quote)
		if err != nil {
			lastErr = err
			continue
		}
		quotes = append(quotes, quote)
	}
	if len(quotes) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return quotes, nil
}

type fetchRow struct {
	quote *QuoteResult
	err   error
}

func (p *Provider) fetchAll(ctx context.Context, symbols []string) ([]fetchRow, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("yahoo: symbols cannot be empty")
	}
	fetchCtx := ctx
	if _, ok := ctx.Deadline(); !ok && p.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	rows := make([]fetchRow, len(symbols))
	sem := make(chan struct{}, maxConcurrentFetches)
	done := make(chan int, len(symbols))
	for i, symbol := range symbols {
		i, symbol := i, symbol
		go func() {
			sem <- struct{}{}
			defer func() { <-sem }()
			quote, err := p.client.Quote(fetchCtx, symbol)
			rows[i] = fetchRow{quote: quote, err: err}
			done <- i
		}()
	}
	for range symbols {
		<-done
	}
	if err := fetchCtx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func normalizeIndex(symbol string, row *QuoteResult) (market.IndexQuote, error) {
	if err := requireNumeric(symbol, row); err != nil {
		return market.IndexQuote{}, err
	}
	name := row.ShortName
	if name == "" {
		name = row.Symbol
	}
	if name == "" {
		name = symbol
	}
	sym := row.Symbol
	if sym == "" {
		sym = symbol
	}
	return market.IndexQuote{
		Name:          name,
		Symbol:        sym,
		Value:         *row.RegularMarketPrice,
		Change:        *row.RegularMarketChange,
		ChangePercent: *row.RegularMarketChangePercent,
		High:          deref(row.RegularMarketDayHigh),
		Low:           deref(row.RegularMarketDayLow),
	}, nil
}

func normalizeStock(symbol string, row *QuoteResult) (market.StockQuote, error) {
	if err := requireNumeric(symbol, row); err != nil {
		return market.StockQuote{}, err
	}
	sym := row.Symbol
	if sym == "" {
		sym = symbol
	}
	return market.StockQuote{
		Symbol:        sym,
		Price:         *row.RegularMarketPrice,
		Change:        *row.RegularMarketChange,
		ChangePercent: *row.RegularMarketChangePercent,
		Volume:        deref(row.RegularMarketVolume),
		High:          deref(row.RegularMarketDayHigh),
		Low:           deref(row.RegularMarketDayLow),
		Open:          deref(row.RegularMarketOpen),
		PreviousClose: deref(row.RegularMarketPreviousClose),
	}, nil
}

// requireNumeric enforces the snapshot invariant: price, change, and
// changePercent must be present and finite before a row may leave this package.
func requireNumeric(symbol string, row *QuoteResult) error {
	if row == nil {
		return fmt.Errorf("%w: %s: empty row", ErrMalformedQuote, symbol)
	}
	for field, v := range map[string]*float64{
		"regularMarketPrice":         row.RegularMarketPrice,
		"regularMarketChange":        row.RegularMarketChange,
		"regularMarketChangePercent": row.RegularMarketChangePercent,
	} {
		if v == nil {
			return fmt.Errorf("%w: %s: missing %s", ErrMalformedQuote, symbol, field)
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return fmt.Errorf("%w: %s: non-finite %s", ErrMalformedQuote, symbol, field)
		}
	}
	return nil
}
