package httpapi

import (
	"time"

	"marketdesk/internal/domain"
	"marketdesk/internal/health"
	"marketdesk/internal/screener"
)

// WatchlistResponse is the payload of GET /api/watchlist and of successful
// watchlist mutations. Symbols is never null; count always equals
// len(symbols).
type WatchlistResponse struct {
	Symbols []string `json:"symbols"`
	Count   int      `json:"count"`
	Limit   int      `json:"limit"`
}

// RunScreenerRequest is the body of POST /api/screener/run.
type RunScreenerRequest struct {
	Filters   screener.Filters `json:"filters"`
	Page      int              `json:"page"`
	PerPage   int              `json:"perPage"`
	SortBy    string           `json:"sortBy"`
	SortOrder string           `json:"sortOrder"`
}

// SaveScreenerRequest is the body of POST /api/screener/save.
type SaveScreenerRequest struct {
	Name    string           `json:"name"`
	Filters screener.Filters `json:"filters"`
}

// SignalActionRequest is the body of POST /api/signals/{id}/action.
type SignalActionRequest struct {
	Action string `json:"action"`
}

// TransactionsResponse is one page of the ledger, newest first.
type TransactionsResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
	Page         int                  `json:"page"`
	PerPage      int                  `json:"perPage"`
}

// NewsResponse is one page of the aggregated feed. LastSync is zero until
// the first refresh completes.
type NewsResponse struct {
	Articles []domain.NewsArticle `json:"articles"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PerPage  int                  `json:"perPage"`
	LastSync time.Time            `json:"lastSync"`
}

// MarketSummaryResponse is the dashboard header: index levels plus breadth
// over the tracked universe.
type MarketSummaryResponse struct {
	Indices    []domain.IndexQuote `json:"indices"`
	Breadth    health.Breadth      `json:"breadth"`
	MarketOpen bool                `json:"marketOpen"`
}

// IVPercentileResponse ranks the current at-the-money IV against stored
// history.
type IVPercentileResponse struct {
	Symbol     string  `json:"symbol"`
	ATMIV      float64 `json:"atmIv"`
	Percentile float64 `json:"percentile"`
	Samples    int     `json:"samples"`
}
