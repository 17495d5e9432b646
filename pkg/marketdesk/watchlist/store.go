// Package watchlist maintains the client-side watchlist session state: an
// ordered set of symbols with a capacity limit, kept consistent with the
// server through confirm-then-mutate synchronization.
package watchlist

import (
	"errors"
	"strings"
	"sync"
)

// Sentinel errors callers branch on before rendering feedback.
var (
	ErrDuplicateSymbol = errors.New("watchlist: symbol already present")
	ErrWatchlistFull   = errors.New("watchlist: limit reached")
)

// Snapshot is an immutable view of the store for renderers. Count always
// equals len(Symbols).
type Snapshot struct {
	Symbols []string
	Count   int
	Limit   int
}

// Store holds the watchlist session state. Symbols are unique after
// uppercase normalization and keep insertion order, which drives display
// order. All mutations are validated before any state changes; a rejected
// operation leaves the store exactly as it was.
type Store struct {
	mu      sync.Mutex
	symbols []string
	index   map[string]bool
	limit   int

	nextSubID int
	subs      map[int]chan Snapshot
}

// New creates an empty store with the given capacity limit.
func New(limit int) *Store {
	return &Store{
		index: make(map[string]bool),
		limit: limit,
		subs:  make(map[int]chan Snapshot),
	}
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Set replaces the whole list from an authoritative server fetch. Duplicates
// and blanks in the input are dropped defensively; limit replaces the
// store's capacity.
func (s *Store) Set(symbols []string, limit int) {
	s.mu.Lock()
	s.symbols = s.symbols[:0]
	s.index = make(map[string]bool, len(symbols))
	s.limit = limit
	for _, sym := range symbols {
		sym = normalize(sym)
		if sym == "" || s.index[sym] {
			continue
		}
		s.index[sym] = true
		s.symbols = append(s.symbols, sym)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Add appends a symbol after a confirmed server insert. Validation happens
// before any mutation: a duplicate returns ErrDuplicateSymbol and a full
// list returns ErrWatchlistFull, both leaving the store untouched. Add
// performs no network I/O; see Syncer for the confirmed path.
func (s *Store) Add(symbol string) error {
	sym := normalize(symbol)
	if sym == "" {
		return errors.New("watchlist: empty symbol")
	}

	s.mu.Lock()
	if s.index[sym] {
		s.mu.Unlock()
		return ErrDuplicateSymbol
	}
	if len(s.symbols) >= s.limit {
		s.mu.Unlock()
		return ErrWatchlistFull
	}
	s.index[sym] = true
	s.symbols = append(s.symbols, sym)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Remove deletes a symbol, preserving the relative order of the rest. It
// reports whether the symbol was present; removing an absent symbol is a
// no-op.
func (s *Store) Remove(symbol string) bool {
	sym := normalize(symbol)

	s.mu.Lock()
	if !s.index[sym] {
		s.mu.Unlock()
		return false
	}
	delete(s.index, sym)
	for i, existing := range s.symbols {
		if existing == sym {
			s.symbols = append(s.symbols[:i], s.symbols[i+1:]...)
			break
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// Contains reports whether symbol is on the list.
func (s *Store) Contains(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index[normalize(symbol)]
}

// Snapshot returns an immutable copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	symbols := make([]string, len(s.symbols))
	copy(symbols, s.symbols)
	return Snapshot{Symbols: symbols, Count: len(symbols), Limit: s.limit}
}

// Subscribe registers a change listener. Each state change delivers a
// Snapshot; a slow subscriber drops updates rather than blocking mutations.
func (s *Store) Subscribe(bufSize int) (id int, ch <-chan Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = s.nextSubID
	s.nextSubID++
	c := make(chan Snapshot, bufSize)
	s.subs[id] = c
	return id, c
}

// Unsubscribe removes a listener and closes its channel.
func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Store) notify(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
