package live

import (
	"testing"
	"time"

	"marketdesk/internal/domain"
)

func TestQuoteModelLastWriterWins(t *testing.T) {
	m := NewQuoteModel()

	m.SetQuote(domain.Quote{Symbol: "reliance", Price: 2900})
	m.SetQuote(domain.Quote{Symbol: "RELIANCE", Price: 2910})
	m.SetQuote(domain.Quote{Symbol: "TCS", Price: 4100})

	q, ok := m.Quote("RELIANCE")
	if !ok || q.Price != 2910 {
		t.Errorf("Quote(RELIANCE) = %+v ok=%v, want price 2910", q, ok)
	}
	// An update for one symbol must not touch another's slot.
	q, ok = m.Quote("tcs")
	if !ok || q.Price != 4100 {
		t.Errorf("Quote(tcs) = %+v ok=%v, want price 4100", q, ok)
	}

	quotes := m.Quotes()
	if len(quotes) != 2 || quotes[0].Symbol != "RELIANCE" || quotes[1].Symbol != "TCS" {
		t.Errorf("Quotes() = %+v, want [RELIANCE TCS]", quotes)
	}
}

func TestQuoteModelIndices(t *testing.T) {
	m := NewQuoteModel()
	m.SetIndex(domain.IndexQuote{Name: "NIFTY 50", Value: 23500, ChangePct: 0.4})
	m.SetIndex(domain.IndexQuote{Name: "BANK NIFTY", Value: 50200})
	m.SetIndex(domain.IndexQuote{Name: "NIFTY 50", Value: 23510})

	idx := m.Indices()
	if len(idx) != 2 {
		t.Fatalf("Indices() returned %d, want 2", len(idx))
	}
	if idx[0].Name != "BANK NIFTY" || idx[1].Name != "NIFTY 50" {
		t.Errorf("Indices() order = [%s %s], want sorted by name", idx[0].Name, idx[1].Name)
	}
	if idx[1].Value != 23510 {
		t.Errorf("NIFTY 50 = %v, want latest write 23510", idx[1].Value)
	}
}

func TestQuoteModelSubscribe(t *testing.T) {
	m := NewQuoteModel()
	id, ch := m.Subscribe(4)

	m.SetQuote(domain.Quote{Symbol: "INFY", Price: 1550})

	select {
	case evt := <-ch:
		if evt.Quote.Symbol != "INFY" || evt.IsIndex {
			t.Errorf("event = %+v, want INFY quote", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered to subscriber")
	}

	m.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Error("channel still open after Unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	m.SetQuote(domain.Quote{Symbol: "INFY", Price: 1551})
}

func TestQuoteModelSlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewQuoteModel()
	id, ch := m.Subscribe(1)
	defer m.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			m.SetQuote(domain.Quote{Symbol: "SBIN", Price: float64(800 + i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	// The buffered event is the oldest one that fit.
	evt := <-ch
	if evt.Quote.Symbol != "SBIN" {
		t.Errorf("buffered event = %+v, want SBIN", evt)
	}
}
