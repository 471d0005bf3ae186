package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// quoteServer serves canned quoteResponse rows keyed by symbol. Unknown
// symbols get an empty result set, matching the upstream's behaviour.
func quoteServer(t *testing.T, rows map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbols")
		w.Header().Set("Content-Type", "application/json")
		row, ok := rows[symbol]
		if !ok {
			fmt.Fprint(w, `{"quoteResponse":{"result":[],"error":null}}`)
			return
		}
		fmt.Fprintf(w, `{"quoteResponse":{"result":[%s],"error":null}}`, row)
	}))
}

const niftyRow = `{"symbol":"^NSEI","shortName":"NIFTY 50","regularMarketPrice":24100.5,"regularMarketChange":120.3,"regularMarketChangePercent":0.5,"regularMarketDayHigh":24200.1,"regularMarketDayLow":23980.4}`

func TestClientQuote(t *testing.T) {
	server := quoteServer(t, map[string]string{"^NSEI": niftyRow})
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxRetries(0))
	row, err := client.Quote(context.Background(), "^NSEI")
	require.NoError(t, err)
	require.Equal(t, "^NSEI", row.Symbol)
	require.Equal(t, "NIFTY 50", row.ShortName)
	require.NotNil(t, row.RegularMarketPrice)
	require.InDelta(t, 24100.5, *row.RegularMarketPrice, 1e-9)
}

func TestClientQuoteSymbolNotFound(t *testing.T) {
	server := quoteServer(t, nil)
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxRetries(0))
	_, err := client.Quote(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestClientQuoteProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteResponse":{"result":[],"error":{"code":"Bad Request","description":"invalid symbols"}}}`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxRetries(0))
	_, err := client.Quote(context.Background(), "^NSEI")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid symbols")
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"quoteResponse":{"result":[%s],"error":null}}`, niftyRow)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxRetries(2))
	row, err := client.Quote(context.Background(), "^NSEI")
	require.NoError(t, err)
	require.Equal(t, int32(3), calls.Load())
	require.NotNil(t, row.RegularMarketPrice)
}

func TestClientRetryBudgetExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxRetries(1))
	_, err := client.Quote(context.Background(), "^NSEI")
	require.Error(t, err)
	require.Contains(t, err.Error(), "after 2 attempts")
}

func TestProviderIndexQuotesPreservesOrder(t *testing.T) {
	server := quoteServer(t, map[string]string{
		"^NSEI":  niftyRow,
		"^BSESN": `{"symbol":"^BSESN","shortName":"S&P BSE SENSEX","regularMarketPrice":80123.45,"regularMarketChange":-210.1,"regularMarketChangePercent":-0.26}`,
	})
	defer server.Close()

	provider := NewProvider(NewClient(WithBaseURL(server.URL), WithMaxRetries(0)))
	quotes, err := provider.IndexQuotes(context.Background(), []string{"^BSESN", "^NSEI"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	require.Equal(t, "^BSESN", quotes[0].Symbol)
	require.Equal(t, "S&P BSE SENSEX", quotes[0].Name)
	require.Equal(t, "^NSEI", quotes[1].Symbol)
	require.InDelta(t, 24100.5, quotes[1].Value, 1e-9)
	require.InDelta(t, 24200.1, quotes[1].High, 1e-9)
}

func TestProviderIndexQuotesAllOrNothing(t *testing.T) {
	// ^BSESN is missing regularMarketChange, which must sink the whole batch.
	server := quoteServer(t, map[string]string{
		"^NSEI":  niftyRow,
		"^BSESN": `{"symbol":"^BSESN","regularMarketPrice":80123.45,"regularMarketChangePercent":-0.26}`,
	})
	defer server.Close()

	provider := NewProvider(NewClient(WithBaseURL(server.URL), WithMaxRetries(0)))
	_, err := provider.IndexQuotes(context.Background(), []string{"^NSEI", "^BSESN"})
	require.ErrorIs(t, err, ErrMalformedQuote)
}

func TestProviderIndexQuotesMissingSymbolFailsBatch(t *testing.T) {
	server := quoteServer(t, map[string]string{"^NSEI": niftyRow})
	defer server.Close()

	provider := NewProvider(NewClient(WithBaseURL(server.URL), WithMaxRetries(0)))
	_, err := provider.IndexQuotes(context.Background(), []string{"^NSEI", "^GONE"})
	require.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestProviderStockQuotesDropsBadRows(t *testing.T) {
	server := quoteServer(t, map[string]string{
		"RELIANCE.NS": `{"symbol":"RELIANCE.NS","regularMarketPrice":2915.2,"regularMarketChange":34.1,"regularMarketChangePercent":1.18,"regularMarketVolume":5200000,"regularMarketOpen":2890.0,"regularMarketPreviousClose":2881.1}`,
		"TCS.NS":      `{"symbol":"TCS.NS","regularMarketPrice":4110.9}`,
	})
	defer server.Close()

	provider := NewProvider(NewClient(WithBaseURL(server.URL), WithMaxRetries(0)))
	quotes, err := provider.StockQuotes(context.Background(), []string{"RELIANCE.NS", "TCS.NS", "GONE.NS"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Equal(t, "RELIANCE.NS", quotes[0].Symbol)
	require.InDelta(t, 2915.2, quotes[0].Price, 1e-9)
	require.InDelta(t, 5200000, quotes[0].Volume, 1e-9)
	require.InDelta(t, 2881.1, quotes[0].PreviousClose, 1e-9)
}

func TestProviderStockQuotesAllFailed(t *testing.T) {
	server := quoteServer(t, nil)
	defer server.Close()

	provider := NewProvider(NewClient(WithBaseURL(server.URL), WithMaxRetries(0)))
	_, err := provider.StockQuotes(context.Background(), []string{"GONE.NS", "ALSO.NS"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSymbolNotFound))
}

func TestProviderRejectsEmptySymbolList(t *testing.T) {
	provider := NewProvider(NewClient(WithMaxRetries(0)))
	_, err := provider.IndexQuotes(context.Background(), nil)
	require.Error(t, err)
}
