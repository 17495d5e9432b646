// Package store defines storage interfaces for persisting and retrieving
// domain objects such as watchlist entries, holdings, transactions, saved
// screeners, signals, fundamentals, and daily bars.
package store

import (
	"context"
	"errors"
	"time"

	"marketdesk/internal/domain"
)

// Sentinel errors callers branch on. Handlers map these to HTTP statuses.
var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: already exists")
)

// WatchlistStore persists the account's watchlist. Symbols are kept in
// insertion order, which drives display order on the dashboard.
type WatchlistStore interface {
	// GetWatchlist returns all symbols in insertion order.
	GetWatchlist(ctx context.Context) ([]string, error)

	// AddSymbol appends a symbol. Returns ErrDuplicate if already present.
	AddSymbol(ctx context.Context, symbol string) error

	// RemoveSymbol deletes a symbol. Returns ErrNotFound if absent.
	RemoveSymbol(ctx context.Context, symbol string) error
}

// PortfolioStore persists holdings and the transaction ledger.
type PortfolioStore interface {
	ListHoldings(ctx context.Context) ([]domain.Holding, error)
	GetHolding(ctx context.Context, symbol string) (*domain.Holding, error)
	UpsertHolding(ctx context.Context, h *domain.Holding) error
	DeleteHolding(ctx context.Context, symbol string) error

	AddTransaction(ctx context.Context, t *domain.Transaction) error
	// ListTransactions returns one page of transactions, newest first, plus
	// the total row count for pagination.
	ListTransactions(ctx context.Context, page, perPage int) ([]domain.Transaction, int, error)
}

// SavedScreener is a named, persisted filter set.
type SavedScreener struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Filters   string    `json:"filters"` // JSON-encoded screener.Filters
	CreatedAt time.Time `json:"createdAt"`
}

// ScreenerStore persists saved screeners.
type ScreenerStore interface {
	ListSavedScreeners(ctx context.Context) ([]SavedScreener, error)
	SaveScreener(ctx context.Context, s *SavedScreener) error
	DeleteScreener(ctx context.Context, id string) error
}

// SignalStore persists signals and user actions on them.
type SignalStore interface {
	SaveSignal(ctx context.Context, s *domain.Signal) error
	ListSignals(ctx context.Context, limit int) ([]domain.Signal, error)
	ListSignalsBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Signal, error)
	// SetSignalAction records what the user did with a signal. Returns
	// ErrNotFound for an unknown id.
	SetSignalAction(ctx context.Context, id string, action domain.SignalAction) error
}

// FundamentalsStore persists the security master the screener runs against.
type FundamentalsStore interface {
	UpsertFundamentals(ctx context.Context, f *domain.Fundamentals) error
	GetFundamentals(ctx context.Context, symbol string) (*domain.Fundamentals, error)
	ListFundamentals(ctx context.Context) ([]domain.Fundamentals, error)
}

// IVStore persists daily at-the-money implied volatility per underlying,
// used to rank the current IV against its own history.
type IVStore interface {
	RecordIV(ctx context.Context, symbol, date string, iv float64) error
	// IVHistory returns up to n most recent IV values, oldest first.
	IVHistory(ctx context.Context, symbol string, n int) ([]float64, error)
}

// BarStore persists and retrieves OHLCV daily bars.
type BarStore interface {
	WriteBars(ctx context.Context, bars []domain.Bar) error
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
	ListSymbols(ctx context.Context) ([]string, error)
}
