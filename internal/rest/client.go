// Package rest is the retry-aware live-fetch client for last-mile futures
// data (premium index / mark+index price, open interest). Grounded on
// original_source/tests/test_rest_client.py for the exact retry-count and
// field-normalization contract, and on the teacher's
// internal/net/client/wrap.go typed-ProviderError + retry-on-429/5xx design
// and internal/data/derivs/funding.go's real Binance endpoint shapes.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minutelake/ingest/internal/archive"
)

// HTTPError is the typed error raised when retries are exhausted (or the
// response is a non-retryable 4xx), matching spec.md §7's REST-client error
// taxonomy entry.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("rest: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// Config configures the client.
type Config struct {
	BaseURL    string
	Retries    int
	Timeout    time.Duration
	Transport  http.RoundTripper // injectable for tests, mirrors httpx.MockTransport
	Backoff    func(attempt int, retryAfter time.Duration) time.Duration
	sleep      func(time.Duration)
}

// DefaultConfig mirrors original_source's BinanceRESTClient defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Retries: 5,
		Timeout: 10 * time.Second,
		Backoff: func(attempt int, retryAfter time.Duration) time.Duration {
			if retryAfter > 0 {
				return retryAfter
			}
			return time.Duration(attempt) * 50 * time.Millisecond
		},
	}
}

// Client is the retry-aware REST fetcher.
type Client struct {
	baseURL string
	http    *http.Client
	retries int
	backoff func(attempt int, retryAfter time.Duration) time.Duration
	sleep   func(time.Duration)

	// CallCount is exported purely for test observability, matching
	// test_rest_client.py's `call_count` assertions.
	CallCount int
}

// New builds a Client. Transport, when set, replaces the default transport —
// tests use this exactly as original_source's tests inject httpx.MockTransport.
func New(cfg Config) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Transport != nil {
		httpClient.Transport = cfg.Transport
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = DefaultConfig(cfg.BaseURL).Backoff
	}
	sleep := cfg.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Client{baseURL: cfg.BaseURL, http: httpClient, retries: cfg.Retries, backoff: backoff, sleep: sleep}
}

// FetchPremiumIndex calls `/fapi/v1/premiumIndex` for symbol.
func (c *Client) FetchPremiumIndex(ctx context.Context, symbol string) (PremiumIndex, error) {
	var wire premiumIndexWire
	if err := c.getJSON(ctx, "/fapi/v1/premiumIndex", url.Values{"symbol": {symbol}}, &wire); err != nil {
		return PremiumIndex{}, err
	}
	return wire.normalize(), nil
}

// FetchOpenInterest calls `/fapi/v1/openInterest` for symbol.
func (c *Client) FetchOpenInterest(ctx context.Context, symbol string) (OpenInterest, error) {
	var wire openInterestWire
	if err := c.getJSON(ctx, "/fapi/v1/openInterest", url.Values{"symbol": {symbol}}, &wire); err != nil {
		return OpenInterest{}, err
	}
	return wire.normalize(), nil
}

// FetchKlines calls `/fapi/v1/klines` for the "latest available klines" REST
// live path spec.md §4.8 names for the HOT band (and for a WARM hour whose
// Vision daily ZIP isn't published yet). Rows come back in archive.KlineRow's
// shape so they join through the transform engine's spine exactly like a
// decoded Vision archive does.
func (c *Client) FetchKlines(ctx context.Context, symbol, interval string, startMS, endMS int64, limit int) ([]archive.KlineRow, error) {
	query := url.Values{
		"symbol":    {symbol},
		"interval":  {interval},
		"startTime": {strconv.FormatInt(startMS, 10)},
		"endTime":   {strconv.FormatInt(endMS, 10)},
		"limit":     {strconv.Itoa(limit)},
	}
	var wire []klineWireRow
	if err := c.getJSON(ctx, "/fapi/v1/klines", query, &wire); err != nil {
		return nil, err
	}
	out := make([]archive.KlineRow, len(wire))
	for i, w := range wire {
		out[i] = archive.KlineRow(w)
	}
	return out, nil
}

// getJSON issues a GET with retry-on-429/5xx (respecting Retry-After),
// never retrying other 4xx statuses, and unmarshals the final 2xx body
// into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return err
		}
		c.CallCount++
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.sleep(c.backoff(attempt+1, 0))
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return json.Unmarshal(body, out)
		}
		if !retryable(resp.StatusCode) {
			return &HTTPError{URL: fullURL, StatusCode: resp.StatusCode, Body: string(body)}
		}
		lastErr = &HTTPError{URL: fullURL, StatusCode: resp.StatusCode, Body: string(body)}
		log.Warn().Str("url", fullURL).Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("rest call failed, retrying")
		if attempt < c.retries {
			c.sleep(c.backoff(attempt+1, retryAfterDuration(resp.Header.Get("Retry-After"))))
		}
	}
	return lastErr
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func retryAfterDuration(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
