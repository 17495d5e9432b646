// Package feed pulls live quotes, index levels, and option chains from the
// upstream market-data gateway and fans them into the in-memory models the
// API serves from.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketdesk/internal/domain"
	"marketdesk/internal/util"
)

// Client is an HTTP JSON client for the upstream market-data gateway. All
// calls are paced through a shared rate limiter; the gateway throttles hard
// on bursts.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *util.RateLimiter
}

// NewClient creates a Client for the gateway at baseURL, allowing at most
// perMinute requests per minute.
func NewClient(baseURL string, perMinute int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    util.NewRateLimiter(perMinute),
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Quotes fetches the latest quotes for symbols in one batched call.
func (c *Client) Quotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	q := url.Values{"symbols": {strings.Join(symbols, ",")}}
	var out struct {
		Quotes []domain.Quote `json:"quotes"`
	}
	if err := c.get(ctx, "/v1/quotes", q, &out); err != nil {
		return nil, err
	}
	return out.Quotes, nil
}

// Indices fetches the latest levels for the benchmark indices.
func (c *Client) Indices(ctx context.Context) ([]domain.IndexQuote, error) {
	var out struct {
		Indices []domain.IndexQuote `json:"indices"`
	}
	if err := c.get(ctx, "/v1/indices", nil, &out); err != nil {
		return nil, err
	}
	return out.Indices, nil
}

// OptionChain fetches the nearest-expiry option chain for an underlying.
func (c *Client) OptionChain(ctx context.Context, symbol string) (*domain.OptionChain, error) {
	var chain domain.OptionChain
	if err := c.get(ctx, "/v1/options/"+url.PathEscape(strings.ToUpper(symbol)), nil, &chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

// DailyBars fetches daily OHLCV bars for a symbol over [start, end].
func (c *Client) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	q := url.Values{
		"start": {start.Format("2006-01-02")},
		"end":   {end.Format("2006-01-02")},
	}
	var out struct {
		Bars []domain.Bar `json:"bars"`
	}
	if err := c.get(ctx, "/v1/bars/"+url.PathEscape(strings.ToUpper(symbol)), q, &out); err != nil {
		return nil, err
	}
	return out.Bars, nil
}

// Fundamentals fetches the security-master row for a symbol.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (*domain.Fundamentals, error) {
	var f domain.Fundamentals
	if err := c.get(ctx, "/v1/fundamentals/"+url.PathEscape(strings.ToUpper(symbol)), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
