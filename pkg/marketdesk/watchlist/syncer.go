package watchlist

import (
	"context"
	"fmt"

	"marketdesk/pkg/marketdesk"
)

// Syncer pairs a Store with the API client and encodes the one mutation
// ordering used everywhere: validate locally, confirm with the server, then
// mutate the store. A failed or cancelled request never changes local state,
// so the store can only drift as far as one refresh behind the server and
// never ahead of it.
type Syncer struct {
	store  *Store
	client *marketdesk.Client
}

// NewSyncer creates a Syncer over the given store and client.
func NewSyncer(store *Store, client *marketdesk.Client) *Syncer {
	return &Syncer{store: store, client: client}
}

// Store returns the underlying session store.
func (s *Syncer) Store() *Store { return s.store }

// Load replaces local state from the authoritative server list.
func (s *Syncer) Load(ctx context.Context) error {
	wl, err := s.client.Watchlist(ctx)
	if err != nil {
		return fmt.Errorf("loading watchlist: %w", err)
	}
	s.store.Set(wl.Symbols, wl.Limit)
	return nil
}

// Add validates against local state, confirms the insert with the server,
// and then applies it locally. Duplicate and capacity violations surface as
// the store's sentinel errors without any network call.
func (s *Syncer) Add(ctx context.Context, symbol string) error {
	snap := s.store.Snapshot()
	sym := normalize(symbol)
	if s.store.Contains(sym) {
		return ErrDuplicateSymbol
	}
	if snap.Count >= snap.Limit {
		return ErrWatchlistFull
	}

	wl, err := s.client.AddWatchlistSymbol(ctx, sym)
	if err != nil {
		return fmt.Errorf("adding %s: %w", sym, err)
	}

	// The server response is authoritative; it already includes the insert.
	s.store.Set(wl.Symbols, wl.Limit)
	return nil
}

// Remove confirms the removal with the server, then applies it locally.
// Removing a symbol that is not on the local list is a no-op.
func (s *Syncer) Remove(ctx context.Context, symbol string) error {
	sym := normalize(symbol)
	if !s.store.Contains(sym) {
		return nil
	}

	wl, err := s.client.RemoveWatchlistSymbol(ctx, sym)
	if err != nil {
		return fmt.Errorf("removing %s: %w", sym, err)
	}

	s.store.Set(wl.Symbols, wl.Limit)
	return nil
}
