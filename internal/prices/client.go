// Package prices fetches daily price series from the chart endpoint of
// the price data provider. Series are fetched on demand and never
// persisted; the system only reasons about daily candles.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL    = "https://query1.finance.yahoo.com"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 500 * time.Millisecond

	// defaultExchangeTZ is assumed when the provider omits the exchange
	// timezone. US listings dominate the universe.
	defaultExchangeTZ = "America/New_York"
)

// Client fetches daily candle series over HTTP.
type Client struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a price data client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chartResponse mirrors the provider's chart payload.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
				Adjclose []struct {
					Adjclose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailySeries fetches daily candles for the symbol covering [from, now].
// The lookback range is bucketed the way the provider expects; the
// returned series may be empty, which callers treat as a failed ticker.
func (c *Client) DailySeries(ctx context.Context, symbol string, from time.Time) (*domain.PriceSeries, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		c.baseURL, url.PathEscape(symbol), rangeFor(from, time.Now()))

	start := time.Now()
	body, err := c.get(ctx, endpoint)
	observability.RecordPriceFetch(time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", symbol, err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse chart for %s: %w", symbol, err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart error for %s: %s", symbol, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart result for %s", symbol)
	}

	r := parsed.Chart.Result[0]
	tz := r.Meta.ExchangeTimezoneName
	if tz == "" {
		tz = defaultExchangeTZ
	}

	series := &domain.PriceSeries{
		Ticker:           symbol,
		ExchangeTimeZone: tz,
		Points:           make([]domain.DailyPoint, len(r.Timestamp)),
	}

	var opens, closes, adjcloses []*float64
	if len(r.Indicators.Quote) > 0 {
		opens = r.Indicators.Quote[0].Open
		closes = r.Indicators.Quote[0].Close
	}
	if len(r.Indicators.Adjclose) > 0 {
		adjcloses = r.Indicators.Adjclose[0].Adjclose
	}

	for i, ts := range r.Timestamp {
		series.Points[i] = domain.DailyPoint{
			TradingDay: time.Unix(ts, 0).UTC(),
			Open:       at(opens, i),
			Close:      at(closes, i),
			AdjClose:   at(adjcloses, i),
		}
	}
	return series, nil
}

func at(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

// rangeFor buckets the anchor age into the provider's range labels.
func rangeFor(from, now time.Time) string {
	days := int(now.Sub(from).Hours() / 24)
	if days < 1 {
		days = 1
	}
	switch {
	case days <= 30:
		return "1mo"
	case days <= 62:
		return "3mo"
	case days <= 370:
		return "1y"
	default:
		return "5y"
	}
}

// get performs one GET with bounded retries on transient failures.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		case readErr != nil:
			lastErr = readErr
			continue
		}
		return data, nil
	}
	return nil, fmt.Errorf("after %d attempt(s): %w", c.maxRetries+1, lastErr)
}
