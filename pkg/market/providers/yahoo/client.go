package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL          = "https://query1.finance.yahoo.com/v7/finance/quote"
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 3
	defaultRetryBackoffBase = 150 * time.Millisecond
	defaultUserAgent        = "algoforge-market/1.0"
)

// ErrSymbolNotFound indicates that the upstream returned no row for a symbol.
var ErrSymbolNotFound = errors.New("yahoo: symbol not found")

// Client wraps access to a Yahoo-style quote endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	userAgent  string
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default quote endpoint URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// NewClient constructs a quote endpoint client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Quote fetches the raw quote row for one symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*QuoteResult, error) {
	var envelope quoteEnvelope
	query := url.Values{"symbols": []string{symbol}}
	if err := c.doRequest(ctx, query, &envelope); err != nil {
		return nil, err
	}
	if envelope.QuoteResponse.Error != nil {
		apiErr := envelope.QuoteResponse.Error
		return nil, fmt.Errorf("yahoo: provider error %s: %s", apiErr.Code, apiErr.Description)
	}
	if len(envelope.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return &envelope.QuoteResponse.Result[0], nil
}

// doRequest issues a GET with retries and decodes the response into result.
func (c *Client) doRequest(ctx context.Context, query url.Values, result interface{}) error {
	requestURL := c.baseURL
	if encoded := query.Encode(); encoded != "" {
		requestURL = c.baseURL + "?" + encoded
	}
	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return fmt.Errorf("yahoo: build request: %w", err)
		}
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("yahoo: read response: %w", readErr)
			} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = fmt.Errorf("yahoo: http status %d: %s", resp.StatusCode, string(body))
			} else {
				if result != nil {
					if err := json.Unmarshal(body, result); err != nil {
						return fmt.Errorf("yahoo: decode response: %w", err)
					}
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return fmt.Errorf("yahoo: request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
