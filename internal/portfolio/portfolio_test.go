package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"marketdesk/internal/domain"
	"marketdesk/internal/store"
)

// memPortfolio is an in-memory PortfolioStore for exercising the math
// without SQLite.
type memPortfolio struct {
	holdings map[string]domain.Holding
	txns     []domain.Transaction
}

func newMemPortfolio() *memPortfolio {
	return &memPortfolio{holdings: make(map[string]domain.Holding)}
}

func (m *memPortfolio) ListHoldings(ctx context.Context) ([]domain.Holding, error) {
	out := make([]domain.Holding, 0, len(m.holdings))
	for _, h := range m.holdings {
		out = append(out, h)
	}
	return out, nil
}

func (m *memPortfolio) GetHolding(ctx context.Context, symbol string) (*domain.Holding, error) {
	h, ok := m.holdings[symbol]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &h, nil
}

func (m *memPortfolio) UpsertHolding(ctx context.Context, h *domain.Holding) error {
	m.holdings[h.Symbol] = *h
	return nil
}

func (m *memPortfolio) DeleteHolding(ctx context.Context, symbol string) error {
	delete(m.holdings, symbol)
	return nil
}

func (m *memPortfolio) AddTransaction(ctx context.Context, t *domain.Transaction) error {
	m.txns = append(m.txns, *t)
	return nil
}

func (m *memPortfolio) ListTransactions(ctx context.Context, page, perPage int) ([]domain.Transaction, int, error) {
	return m.txns, len(m.txns), nil
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func buy(symbol string, qty int64, price string) *domain.Transaction {
	return &domain.Transaction{Symbol: symbol, Type: domain.TxnBuy, Quantity: qty, Price: d(price)}
}

func TestApplyBuyAveragesCost(t *testing.T) {
	s := newMemPortfolio()
	ctx := context.Background()

	if err := ApplyTransaction(ctx, s, buy("TCS", 10, "4000")); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if err := ApplyTransaction(ctx, s, buy("tcs", 10, "4200")); err != nil {
		t.Fatalf("second buy: %v", err)
	}

	h, err := s.GetHolding(ctx, "TCS")
	if err != nil {
		t.Fatalf("GetHolding: %v", err)
	}
	if h.Quantity != 20 {
		t.Errorf("quantity = %d, want 20", h.Quantity)
	}
	if !h.AvgCost.Equal(d("4100")) {
		t.Errorf("avg cost = %s, want 4100", h.AvgCost)
	}
	if len(s.txns) != 2 {
		t.Errorf("ledger has %d entries, want 2", len(s.txns))
	}
}

func TestApplySellReducesAndCloses(t *testing.T) {
	s := newMemPortfolio()
	ctx := context.Background()

	if err := ApplyTransaction(ctx, s, buy("INFY", 10, "1500")); err != nil {
		t.Fatal(err)
	}

	sell := &domain.Transaction{Symbol: "INFY", Type: domain.TxnSell, Quantity: 4, Price: d("1600")}
	if err := ApplyTransaction(ctx, s, sell); err != nil {
		t.Fatalf("partial sell: %v", err)
	}
	h, _ := s.GetHolding(ctx, "INFY")
	if h.Quantity != 6 || !h.AvgCost.Equal(d("1500")) {
		t.Errorf("after partial sell: qty %d avg %s, want 6 @ 1500", h.Quantity, h.AvgCost)
	}

	sell = &domain.Transaction{Symbol: "INFY", Type: domain.TxnSell, Quantity: 6, Price: d("1650")}
	if err := ApplyTransaction(ctx, s, sell); err != nil {
		t.Fatalf("closing sell: %v", err)
	}
	if _, err := s.GetHolding(ctx, "INFY"); !errors.Is(err, store.ErrNotFound) {
		t.Error("position not closed at zero quantity")
	}
}

func TestApplySellOversell(t *testing.T) {
	s := newMemPortfolio()
	ctx := context.Background()

	sell := &domain.Transaction{Symbol: "SBIN", Type: domain.TxnSell, Quantity: 5, Price: d("800")}
	if err := ApplyTransaction(ctx, s, sell); !errors.Is(err, ErrOversell) {
		t.Errorf("sell with no position: err = %v, want ErrOversell", err)
	}

	if err := ApplyTransaction(ctx, s, buy("SBIN", 3, "790")); err != nil {
		t.Fatal(err)
	}
	if err := ApplyTransaction(ctx, s, sell); !errors.Is(err, ErrOversell) {
		t.Errorf("oversell: err = %v, want ErrOversell", err)
	}
	// Failed sell leaves the ledger untouched.
	if len(s.txns) != 1 {
		t.Errorf("ledger has %d entries, want 1", len(s.txns))
	}
}

func TestApplyDividendLedgerOnly(t *testing.T) {
	s := newMemPortfolio()
	ctx := context.Background()

	if err := ApplyTransaction(ctx, s, buy("ITC", 100, "430")); err != nil {
		t.Fatal(err)
	}
	div := &domain.Transaction{Symbol: "ITC", Type: domain.TxnDividend, Amount: d("637.50")}
	if err := ApplyTransaction(ctx, s, div); err != nil {
		t.Fatalf("dividend: %v", err)
	}

	h, _ := s.GetHolding(ctx, "ITC")
	if h.Quantity != 100 || !h.AvgCost.Equal(d("430")) {
		t.Errorf("dividend changed the position: %+v", h)
	}
	if len(s.txns) != 2 {
		t.Errorf("ledger has %d entries, want 2", len(s.txns))
	}
}

func TestSummarize(t *testing.T) {
	s := newMemPortfolio()
	ctx := context.Background()

	if err := ApplyTransaction(ctx, s, buy("TCS", 10, "4000")); err != nil {
		t.Fatal(err)
	}
	if err := ApplyTransaction(ctx, s, buy("RELIANCE", 20, "2800")); err != nil {
		t.Fatal(err)
	}

	prices := map[string]float64{"TCS": 4100} // RELIANCE has no live quote
	sum, err := Summarize(ctx, s, func(sym string) (float64, bool) {
		p, ok := prices[sym]
		return p, ok
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	// Invested 10*4000 + 20*2800 = 96000. TCS gains 1000; RELIANCE valued
	// at cost with zero P&L.
	if !sum.Invested.Equal(d("96000")) {
		t.Errorf("invested = %s, want 96000", sum.Invested)
	}
	if !sum.Value.Equal(d("97000")) {
		t.Errorf("value = %s, want 97000", sum.Value)
	}
	if !sum.PnL.Equal(d("1000")) {
		t.Errorf("pnl = %s, want 1000", sum.PnL)
	}
	if !sum.PnLPct.Equal(d("1.04")) {
		t.Errorf("pnlPct = %s, want 1.04", sum.PnLPct)
	}

	for _, p := range sum.Positions {
		if p.Symbol == "RELIANCE" && !p.PnL.IsZero() {
			t.Errorf("RELIANCE valued at cost should have zero P&L, got %s", p.PnL)
		}
	}
}
