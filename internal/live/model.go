// Package live provides a shared in-memory model for live quotes, with
// last-writer-wins semantics per symbol and pub/sub for streaming to
// WebSocket clients.
package live

import (
	"sort"
	"strings"
	"sync"

	"marketdesk/internal/domain"
)

// QuoteEvent is emitted to subscribers when a quote in the model is updated.
type QuoteEvent struct {
	Quote   domain.Quote
	IsIndex bool
}

// QuoteModel holds the latest quote per symbol and the latest level per
// index. Each write replaces its own keyed slot; no ordering is guaranteed
// across symbols.
type QuoteModel struct {
	mu      sync.RWMutex
	quotes  map[string]domain.Quote
	indices map[string]domain.IndexQuote

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan QuoteEvent
}

// NewQuoteModel creates an empty model.
func NewQuoteModel() *QuoteModel {
	return &QuoteModel{
		quotes:  make(map[string]domain.Quote),
		indices: make(map[string]domain.IndexQuote),
		subs:    make(map[int]chan QuoteEvent),
	}
}

// SetQuote stores the latest quote for its symbol and notifies subscribers.
// A stale write for one symbol never affects any other symbol's slot.
func (m *QuoteModel) SetQuote(q domain.Quote) {
	q.Symbol = strings.ToUpper(q.Symbol)

	m.mu.Lock()
	m.quotes[q.Symbol] = q
	m.mu.Unlock()

	m.notify(QuoteEvent{Quote: q})
}

// SetIndex stores the latest level for an index.
func (m *QuoteModel) SetIndex(iq domain.IndexQuote) {
	m.mu.Lock()
	m.indices[iq.Name] = iq
	m.mu.Unlock()

	m.notify(QuoteEvent{
		Quote: domain.Quote{
			Symbol:    iq.Name,
			Price:     iq.Value,
			Change:    iq.Change,
			ChangePct: iq.ChangePct,
		},
		IsIndex: true,
	})
}

// Quote returns the latest quote for symbol, or ok=false.
func (m *QuoteModel) Quote(symbol string) (domain.Quote, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotes[strings.ToUpper(symbol)]
	return q, ok
}

// Indices returns all index levels, sorted by name.
func (m *QuoteModel) Indices() []domain.IndexQuote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.IndexQuote, 0, len(m.indices))
	for _, iq := range m.indices {
		out = append(out, iq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Quotes returns a copy of all symbol quotes, sorted by symbol.
func (m *QuoteModel) Quotes() []domain.Quote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Quote, 0, len(m.quotes))
	for _, q := range m.quotes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (m *QuoteModel) notify(evt QuoteEvent) {
	m.subsMu.Lock()
	for _, ch := range m.subs {
		select {
		case ch <- evt:
		default:
			// Slow subscriber, drop event.
		}
	}
	m.subsMu.Unlock()
}

// Subscribe creates a new subscription channel for quote events.
func (m *QuoteModel) Subscribe(bufSize int) (id int, ch <-chan QuoteEvent) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id = m.nextSubID
	m.nextSubID++
	c := make(chan QuoteEvent, bufSize)
	m.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscription and closes its channel.
func (m *QuoteModel) Unsubscribe(id int) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if ch, ok := m.subs[id]; ok {
		close(ch)
		delete(m.subs, id)
	}
}
