// Package marketdesk provides a typed Go client for the marketdesk
// dashboard API.
package marketdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx response from the server. Callers branch on Status;
// Message carries the server's error text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketdesk: %d %s", e.Status, e.Message)
}

// Client is a marketdesk API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues a request and decodes a JSON response into out (which may be
// nil for empty responses). Non-2xx statuses return *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody *bytes.Buffer = &bytes.Buffer{}
	if body != nil {
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// --- watchlist ---

// Watchlist fetches the authoritative watchlist.
func (c *Client) Watchlist(ctx context.Context) (*Watchlist, error) {
	var wl Watchlist
	if err := c.get(ctx, "/api/watchlist", nil, &wl); err != nil {
		return nil, err
	}
	return &wl, nil
}

// AddWatchlistSymbol adds a symbol. The server returns 409 for duplicates
// and 422 when the list is full.
func (c *Client) AddWatchlistSymbol(ctx context.Context, symbol string) (*Watchlist, error) {
	var wl Watchlist
	err := c.do(ctx, http.MethodPut, "/api/watchlist/"+url.PathEscape(symbol), nil, nil, &wl)
	if err != nil {
		return nil, err
	}
	return &wl, nil
}

// RemoveWatchlistSymbol removes a symbol. The server returns 404 when absent.
func (c *Client) RemoveWatchlistSymbol(ctx context.Context, symbol string) (*Watchlist, error) {
	var wl Watchlist
	err := c.do(ctx, http.MethodDelete, "/api/watchlist/"+url.PathEscape(symbol), nil, nil, &wl)
	if err != nil {
		return nil, err
	}
	return &wl, nil
}

// --- screener ---

// ScreenerFields fetches the filter metadata for the screener form.
func (c *Client) ScreenerFields(ctx context.Context) ([]FilterField, error) {
	var fields []FilterField
	if err := c.get(ctx, "/api/screener/filters", nil, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// ScreenerPresets fetches the canned filter sets.
func (c *Client) ScreenerPresets(ctx context.Context) ([]ScreenerPreset, error) {
	var presets []ScreenerPreset
	if err := c.get(ctx, "/api/screener/presets", nil, &presets); err != nil {
		return nil, err
	}
	return presets, nil
}

// RunScreener runs a screen and returns one page of matches.
func (c *Client) RunScreener(ctx context.Context, filters ScreenerFilters, page, perPage int, sortBy, sortOrder string) (*ScreenerResult, error) {
	req := struct {
		Filters   ScreenerFilters `json:"filters"`
		Page      int             `json:"page"`
		PerPage   int             `json:"perPage"`
		SortBy    string          `json:"sortBy,omitempty"`
		SortOrder string          `json:"sortOrder,omitempty"`
	}{filters, page, perPage, sortBy, sortOrder}

	var res ScreenerResult
	if err := c.do(ctx, http.MethodPost, "/api/screener/run", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SavedScreeners lists the persisted screeners.
func (c *Client) SavedScreeners(ctx context.Context) ([]SavedScreener, error) {
	var saved []SavedScreener
	if err := c.get(ctx, "/api/screener/saved", nil, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// SaveScreener persists a named filter set.
func (c *Client) SaveScreener(ctx context.Context, name string, filters ScreenerFilters) (*SavedScreener, error) {
	req := struct {
		Name    string          `json:"name"`
		Filters ScreenerFilters `json:"filters"`
	}{name, filters}

	var saved SavedScreener
	if err := c.do(ctx, http.MethodPost, "/api/screener/save", nil, req, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteSavedScreener removes a saved screener by id.
func (c *Client) DeleteSavedScreener(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/screener/saved/"+url.PathEscape(id), nil, nil, nil)
}

// --- options ---

// OptionSymbols lists the underlyings with a chain snapshot.
func (c *Client) OptionSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	if err := c.get(ctx, "/api/options/symbols", nil, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// OptionChain fetches the chain for an underlying, optionally trimmed to
// depth strikes around at-the-money (0 = full chain).
func (c *Client) OptionChain(ctx context.Context, symbol string, depth int) (*OptionChain, error) {
	var q url.Values
	if depth > 0 {
		q = url.Values{"depth": {strconv.Itoa(depth)}}
	}
	var chain OptionChain
	if err := c.get(ctx, "/api/options/"+url.PathEscape(symbol)+"/chain", q, &chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

// MaxPain fetches the max-pain strike and payout curve.
func (c *Client) MaxPain(ctx context.Context, symbol string) (*MaxPain, error) {
	var mp MaxPain
	if err := c.get(ctx, "/api/options/"+url.PathEscape(symbol)+"/maxpain", nil, &mp); err != nil {
		return nil, err
	}
	return &mp, nil
}

// PCR fetches put-call ratios for an underlying.
func (c *Client) PCR(ctx context.Context, symbol string) (*PCR, error) {
	var pcr PCR
	if err := c.get(ctx, "/api/options/"+url.PathEscape(symbol)+"/pcr", nil, &pcr); err != nil {
		return nil, err
	}
	return &pcr, nil
}

// OIAnalysis fetches open-interest support/resistance levels.
func (c *Client) OIAnalysis(ctx context.Context, symbol string) (*OIAnalysis, error) {
	var oi OIAnalysis
	if err := c.get(ctx, "/api/options/"+url.PathEscape(symbol)+"/oi", nil, &oi); err != nil {
		return nil, err
	}
	return &oi, nil
}

// IVPercentile ranks the current ATM IV against stored history.
func (c *Client) IVPercentile(ctx context.Context, symbol string) (*IVPercentile, error) {
	var ivp IVPercentile
	if err := c.get(ctx, "/api/options/"+url.PathEscape(symbol)+"/ivpercentile", nil, &ivp); err != nil {
		return nil, err
	}
	return &ivp, nil
}

// --- portfolio ---

// Holdings lists the portfolio positions.
func (c *Client) Holdings(ctx context.Context) ([]Holding, error) {
	var holdings []Holding
	if err := c.get(ctx, "/api/portfolio/holdings", nil, &holdings); err != nil {
		return nil, err
	}
	return holdings, nil
}

// UpsertHolding creates or replaces a position.
func (c *Client) UpsertHolding(ctx context.Context, h Holding) (*Holding, error) {
	var out Holding
	err := c.do(ctx, http.MethodPut, "/api/portfolio/holdings/"+url.PathEscape(h.Symbol), nil, h, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteHolding removes a position.
func (c *Client) DeleteHolding(ctx context.Context, symbol string) error {
	return c.do(ctx, http.MethodDelete, "/api/portfolio/holdings/"+url.PathEscape(symbol), nil, nil, nil)
}

// PortfolioSummary values the book against live prices.
func (c *Client) PortfolioSummary(ctx context.Context) (*PortfolioSummary, error) {
	var sum PortfolioSummary
	if err := c.get(ctx, "/api/portfolio/summary", nil, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// Transactions fetches one page of the ledger, newest first.
func (c *Client) Transactions(ctx context.Context, page, perPage int) (*Transactions, error) {
	q := url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(perPage)},
	}
	var txns Transactions
	if err := c.get(ctx, "/api/portfolio/transactions", q, &txns); err != nil {
		return nil, err
	}
	return &txns, nil
}

// AddTransaction records a BUY, SELL, or DIVIDEND.
func (c *Client) AddTransaction(ctx context.Context, t Transaction) (*Transaction, error) {
	var out Transaction
	if err := c.do(ctx, http.MethodPost, "/api/portfolio/transactions", nil, t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- signals ---

// Signals fetches the most recent signals.
func (c *Client) Signals(ctx context.Context, limit int) ([]Signal, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var signals []Signal
	if err := c.get(ctx, "/api/signals", q, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// SignalsBySymbol fetches recent signals for one symbol.
func (c *Client) SignalsBySymbol(ctx context.Context, symbol string, limit int) ([]Signal, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var signals []Signal
	if err := c.get(ctx, "/api/signals/"+url.PathEscape(symbol), q, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// SetSignalAction records what was done with a signal: ignored, reviewed,
// or traded.
func (c *Client) SetSignalAction(ctx context.Context, id, action string) error {
	req := struct {
		Action string `json:"action"`
	}{action}
	return c.do(ctx, http.MethodPost, "/api/signals/"+url.PathEscape(id)+"/action", nil, req, nil)
}

// --- market ---

// MarketSummary fetches index levels and breadth.
func (c *Client) MarketSummary(ctx context.Context) (*MarketSummary, error) {
	var sum MarketSummary
	if err := c.get(ctx, "/api/market/summary", nil, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// Price fetches the latest quote for a symbol.
func (c *Client) Price(ctx context.Context, symbol string) (*Quote, error) {
	var q Quote
	if err := c.get(ctx, "/api/market/price/"+url.PathEscape(symbol), nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Breadth fetches advance/decline counts over the tracked universe.
func (c *Client) Breadth(ctx context.Context) (*Breadth, error) {
	var b Breadth
	if err := c.get(ctx, "/api/market/breadth", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// --- news ---

// News fetches one page of the aggregated feed, optionally filtered by
// category and search query.
func (c *Client) News(ctx context.Context, page, perPage int, category, search string) (*News, error) {
	q := url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(perPage)},
	}
	if category != "" {
		q.Set("category", category)
	}
	if search != "" {
		q.Set("q", search)
	}
	var n News
	if err := c.get(ctx, "/api/news", q, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// --- health ---

// Health fetches the scorecard for one stock.
func (c *Client) Health(ctx context.Context, symbol string) (*HealthScorecard, error) {
	var card HealthScorecard
	if err := c.get(ctx, "/api/health/"+url.PathEscape(symbol), nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}
